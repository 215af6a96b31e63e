package probe

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritic marks: decompose, drop nonspacing marks,
// recompose.
func stripMarks(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	out, _, _ := transform.String(t, s)
	return out
}

// foldLabel canonicalizes a header for matching: trim, strip diacritics,
// lowercase, and unify separators, so "Kód kraje" folds equal to "KOD_KRAJE".
func foldLabel(s string) string {
	s = strings.ToLower(stripMarks(strings.TrimSpace(s)))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return '_'
		}
		return r
	}, s)
}

// normalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier usable in file names, table names, and component ids:
//  1. lowercase
//  2. strip accents
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func normalizeFieldName(s string) string {
	s = strings.ToLower(stripMarks(strings.TrimSpace(s)))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// truncateFieldName keeps identifiers inside PostgreSQL's 63-character
// limit: first 10 plus last 53 characters when over.
func truncateFieldName(s string) string {
	if len(s) > 63 {
		return s[:10] + s[len(s)-53:]
	}
	return s
}

// isNumeric accepts anything strconv.ParseFloat does; the normalizer
// applies the same test under the require and skip policies.
func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// Period kinds, most common first; ties in label counts resolve in this
// order.
const (
	periodYear    = "year"
	periodQuarter = "quarter"
	periodMonth   = "month"
	periodDate    = "date"
)

var quarterRe = regexp.MustCompile(`^[0-9]{4}-?[Qq][1-4]$`)

// monthLayouts cover year+month labels without a day component.
var monthLayouts = []string{"2006-01", "2006/01", "Jan 2006", "January 2006", "2006M01"}

// dateLayouts cover full-date labels. Scoring picks the layout matching the
// most headers; DMY/ISO/MDY ties are steered by the date preference.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01.02.2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
	"20060102",
}

// periodClass is the outcome of period-label detection over a header.
type periodClass struct {
	kind     string
	layout   string // winning date layout; "date" kind only
	isPeriod []bool
}

// classifyPeriods decides which header cells are varying-dimension labels.
// Each unclaimed cell is tested against the period shapes; the shape
// matching the most cells wins and only its matches count as labels, so one
// stray date column cannot dilute a year-labeled file.
func classifyPeriods(header []string, claimed func(int) bool, pref string) periodClass {
	pc := periodClass{isPeriod: make([]bool, len(header))}

	kindOf := make([]string, len(header))
	counts := make(map[string]int)
	var dateLabels []string
	for i, h := range header {
		if claimed != nil && claimed(i) {
			continue
		}
		h = strings.TrimSpace(h)
		switch {
		case yearLike(h):
			kindOf[i] = periodYear
		case quarterRe.MatchString(h):
			kindOf[i] = periodQuarter
		case parseAny(h, monthLayouts):
			kindOf[i] = periodMonth
		case parseAny(h, dateLayouts):
			kindOf[i] = periodDate
			dateLabels = append(dateLabels, h)
		default:
			continue
		}
		counts[kindOf[i]]++
	}

	best := ""
	for _, k := range []string{periodYear, periodQuarter, periodMonth, periodDate} {
		if counts[k] > counts[best] {
			best = k
		}
	}
	if best == "" {
		return pc
	}
	pc.kind = best
	for i := range header {
		pc.isPeriod[i] = kindOf[i] == best
	}
	if best == periodDate {
		pc.layout = selectBestLayout(dateLabels, dateLayouts, func(lay string) int {
			return dateLayoutPreference(lay, pref)
		})
	}
	return pc
}

// yearLike reports whether a label is a plausible year: four digits in
// 1000..2999.
func yearLike(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s[0] == '1' || s[0] == '2'
}

func parseAny(s string, layouts []string) bool {
	for _, lay := range layouts {
		if _, err := time.Parse(lay, s); err == nil {
			return true
		}
	}
	return false
}

// dateLayoutPreference weights tie-breaks between date layouts. The default
// prefers day-first over ISO over month-first; "us" flips the day-first and
// month-first weights.
func dateLayoutPreference(layout, pref string) int {
	var w int
	switch layout {
	case "02.01.2006", "02/01/2006", "2 Jan 2006", "02-Jan-2006":
		w = 3 // day-first
	case "2006-01-02", "2006/01/02", "20060102":
		w = 2 // ISO
	case "01.02.2006", "01/02/2006":
		w = 1 // month-first
	}
	if pref == "us" {
		switch w {
		case 3:
			w = 1
		case 1:
			w = 3
		}
	}
	return w
}

// selectBestLayout scores each candidate layout by how many samples it
// parses. Ties go to the layout with the higher preference weight, then to
// declaration order.
func selectBestLayout(samples []string, layouts []string, pref func(string) int) string {
	if len(samples) == 0 || len(layouts) == 0 {
		return ""
	}
	scores := make([]int, len(layouts))
	for _, s := range samples {
		for i, lay := range layouts {
			if _, err := time.Parse(lay, s); err == nil {
				scores[i]++
			}
		}
	}

	bestIdx, bestScore, bestPref := -1, -1, -1
	for i := range layouts {
		sc := scores[i]
		if sc < bestScore {
			continue
		}
		if sc > bestScore {
			bestIdx, bestScore, bestPref = i, sc, pref(layouts[i])
			continue
		}
		if p := pref(layouts[i]); p > bestPref {
			bestIdx, bestPref = i, p
		}
	}
	if bestIdx >= 0 && bestScore > 0 {
		return layouts[bestIdx]
	}
	return ""
}
