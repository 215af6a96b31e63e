package sdmx

import (
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// KeyValue is one dimension's concrete value within a series key.
type KeyValue struct {
	Dim   string
	Value string
}

// SeriesKey identifies one series: the values of every key-defining
// dimension, in declaration order, plus the attribute values attached to
// the series. Attributes annotate the series and are not part of its
// identity; Hash and Equal ignore them.
type SeriesKey struct {
	Values []KeyValue
	Attrs  map[string]string

	hash   uint64
	hashed bool
}

// NewKey builds a key from ordered dimension values.
func NewKey(values ...KeyValue) *SeriesKey {
	return &SeriesKey{Values: values}
}

// Get returns the value for the named dimension.
func (k *SeriesKey) Get(dim string) (string, bool) {
	for _, kv := range k.Values {
		if kv.Dim == dim {
			return kv.Value, true
		}
	}
	return "", false
}

// SetAttr attaches an attribute value to the key.
func (k *SeriesKey) SetAttr(id, value string) {
	if k.Attrs == nil {
		k.Attrs = make(map[string]string, 2)
	}
	k.Attrs[id] = value
}

// Attr returns the attached value for the named attribute.
func (k *SeriesKey) Attr(id string) (string, bool) {
	v, ok := k.Attrs[id]
	return v, ok
}

// Hash returns a 64-bit hash of the ordered dimension values, computed once
// and cached. Keys from the same structure share dimension order, so values
// alone (length-prefixed to keep ["ab","c"] distinct from ["a","bc"])
// identify the series. Collisions are resolved by Equal.
func (k *SeriesKey) Hash() uint64 {
	if k.hashed {
		return k.hash
	}
	n := 0
	for _, kv := range k.Values {
		n += len(kv.Value) + 4
	}
	buf := make([]byte, 0, n)
	for _, kv := range k.Values {
		l := len(kv.Value)
		buf = append(buf, byte(l), byte(l>>8), byte(l>>16), byte(l>>24))
		buf = append(buf, kv.Value...)
	}
	k.hash = xxh3.Hash(buf)
	k.hashed = true
	return k.hash
}

// Equal reports whether o identifies the same series: same dimension ids
// and values in the same order. Attributes are not compared.
func (k *SeriesKey) Equal(o *SeriesKey) bool {
	if o == nil || len(k.Values) != len(o.Values) {
		return false
	}
	for i := range k.Values {
		if k.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// String renders "DIM=value" pairs in order, for error messages and logs.
func (k *SeriesKey) String() string {
	var sb strings.Builder
	for i, kv := range k.Values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(kv.Dim)
		sb.WriteByte('=')
		sb.WriteString(kv.Value)
	}
	return sb.String()
}

// Observation is one cell: the varying dimension's value (Period, e.g. a
// year label) and the raw data value as it appeared in the source.
type Observation struct {
	Period string
	Value  string
}

// Float64 parses the raw value; ok is false for empty or non-numeric cells.
func (o Observation) Float64() (float64, bool) {
	if o.Value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(o.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
