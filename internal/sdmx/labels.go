package sdmx

import (
	"slices"
	"strconv"
	"strings"
)

// CompareLabels orders two varying-dimension labels. Labels that parse as
// numbers compare numerically, so "9" sorts before "10" and "2005" before
// "2030". A numeric label sorts before a non-numeric one; two non-numeric
// labels fall back to byte order. Ties between distinct spellings of the
// same number ("05" vs "5") break on byte order to stay deterministic.
//
// The result follows the usual contract: negative when a < b, zero when
// equal, positive when a > b.
func CompareLabels(a, b string) int {
	fa, aok := parseLabelNumber(a)
	fb, bok := parseLabelNumber(b)
	switch {
	case aok && bok:
		if fa < fb {
			return -1
		}
		if fa > fb {
			return 1
		}
		return strings.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func parseLabelNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// SortLabels sorts labels in place using CompareLabels.
func SortLabels(labels []string) {
	slices.SortFunc(labels, CompareLabels)
}
