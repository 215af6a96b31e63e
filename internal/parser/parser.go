// Package parser defines the row shapes shared by the wide-format readers:
// map Records for sources that name fields per row (JSON lines, tests) and
// pooled positional Rows for the CSV hot path.
package parser

import "sync"

// Record is one wide row as a field-name → raw-value mapping. Keys are the
// key-defining dimension ids, the categorical-path field, the attribute
// fields, and one entry per varying-dimension label present in the row.
type Record map[string]string

// Object tags a Record with its 1-based source line so row-scoped errors can
// point back at the input. Readers whose records name their own fields (JSON
// lines) emit Objects; the CSV hot path uses pooled Rows instead.
type Object struct {
	Line   int
	Fields Record
}

// Row is a pooled positional row aligned to the source header.
//
// Contract:
//   - The producer writes V[0:len(header)] and never re-slices it larger.
//   - The consumer must call Free() once the row is fully processed.
//   - Do not retain r or r.V past Free().
type Row struct {
	Line int
	V    []string
}

var rowPool sync.Pool

// GetRow returns a pooled Row sized for colCount cells, zeroed, with the
// line number set.
func GetRow(line, colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]string, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = ""
		}
		r.Line = line
		return r
	}
	return &Row{Line: line, V: make([]string, colCount)}
}

// Free returns the Row to the pool. The caller must not use r afterwards.
func (r *Row) Free() {
	rowPool.Put(r)
}
