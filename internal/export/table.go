// Package export renders a finalized dataset for people and downstream
// tools: a pivoted wide table (one row per series, one column per varying
// label), a long table (one row per observation), and CSV, JSON and XML
// writers.
//
// The package consumes *sdmx.DataSet only and never reaches back into the
// builder. Enumerated dimension values are stored as leaf code ids; every
// rendering here expands them to the full hierarchy path
// ("Energy|Supply|Electricity"), so output carries the same paths the
// input did.
package export

import (
	"fmt"

	"wideform/internal/sdmx"
)

// valueColumn heads the data column of a long table.
const valueColumn = "VALUE"

// Table is a rectangular, render-ready view of a dataset: a header row and
// data rows of equal width. Tables are read-only once built.
type Table struct {
	Columns []string
	Rows    [][]string

	// keyWidth is how many leading columns hold key-dimension values;
	// Filter matches inside that prefix only.
	keyWidth int
}

// Pivot renders the wide view: one row per series carrying its
// key-dimension values and attributes, then one column per distinct
// varying-dimension label across the whole dataset. Labels sort
// numeric-aware ("2010" before "2020" before "2100"); a cell stays blank
// where the series has no observation for that label. A series reporting
// the same label twice fails the pivot rather than dropping a value.
func Pivot(ds *sdmx.DataSet) (*Table, error) {
	sd := ds.Structure
	keyDims := sd.KeyDimensions()
	attrs := sd.Attributes()

	seen := make(map[string]bool)
	var labels []string
	for _, s := range ds.Series {
		for _, o := range s.Obs {
			if !seen[o.Period] {
				seen[o.Period] = true
				labels = append(labels, o.Period)
			}
		}
	}
	sdmx.SortLabels(labels)

	t := &Table{keyWidth: len(keyDims)}
	t.Columns = make([]string, 0, len(keyDims)+len(attrs)+len(labels))
	for _, d := range keyDims {
		t.Columns = append(t.Columns, d.ID)
	}
	for _, a := range attrs {
		t.Columns = append(t.Columns, a.ID)
	}
	t.Columns = append(t.Columns, labels...)

	col := make(map[string]int, len(labels))
	for i, l := range labels {
		col[l] = len(keyDims) + len(attrs) + i
	}

	for _, s := range ds.Series {
		row := make([]string, len(t.Columns))
		if err := fillKeyCells(row, sd, s.Key); err != nil {
			return nil, err
		}
		for i, a := range attrs {
			v, _ := s.Key.Attr(a.ID)
			row[len(keyDims)+i] = v
		}
		filled := make(map[string]bool, len(s.Obs))
		for _, o := range s.Obs {
			if filled[o.Period] {
				return nil, fmt.Errorf("series [%s]: two observations for %s %q: %w",
					s.Key, sd.VaryingDimension(), o.Period, sdmx.ErrRow)
			}
			filled[o.Period] = true
			row[col[o.Period]] = o.Value
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Long renders the long view: one row per observation, carrying the
// series' key-dimension values and attributes, the varying-dimension label
// and the raw value. Rows keep dataset order: series in insertion order,
// observations in arrival order within each series.
func Long(ds *sdmx.DataSet) (*Table, error) {
	sd := ds.Structure
	keyDims := sd.KeyDimensions()
	attrs := sd.Attributes()

	t := &Table{keyWidth: len(keyDims)}
	t.Columns = make([]string, 0, len(keyDims)+len(attrs)+2)
	for _, d := range keyDims {
		t.Columns = append(t.Columns, d.ID)
	}
	for _, a := range attrs {
		t.Columns = append(t.Columns, a.ID)
	}
	t.Columns = append(t.Columns, sd.VaryingDimension(), valueColumn)

	for _, s := range ds.Series {
		head := make([]string, len(keyDims)+len(attrs))
		if err := fillKeyCells(head, sd, s.Key); err != nil {
			return nil, err
		}
		for i, a := range attrs {
			v, _ := s.Key.Attr(a.ID)
			head[len(keyDims)+i] = v
		}
		for _, o := range s.Obs {
			row := make([]string, 0, len(t.Columns))
			row = append(row, head...)
			row = append(row, o.Period, o.Value)
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

// Filter returns the rows whose key value for dim equals value. Matching
// is on the rendered cell, so the enumerated dimension matches by full
// path. A dim the table carries no key column for matches nothing. The
// result shares the receiver's header and row slices.
func (t *Table) Filter(dim, value string) *Table {
	out := &Table{Columns: t.Columns, keyWidth: t.keyWidth}
	col := -1
	for i := 0; i < t.keyWidth && i < len(t.Columns); i++ {
		if t.Columns[i] == dim {
			col = i
			break
		}
	}
	if col < 0 {
		return out
	}
	for _, row := range t.Rows {
		if row[col] == value {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Filter returns a dataset holding only the series whose key value for dim
// equals value. The enumerated dimension matches by full hierarchy path,
// every other dimension by its stored value. Fails when dim is not a key
// dimension of the dataset's structure. The result shares the input's id,
// structure and series records.
func Filter(ds *sdmx.DataSet, dim, value string) (*sdmx.DataSet, error) {
	sd := ds.Structure
	var found bool
	for _, d := range sd.KeyDimensions() {
		if d.ID == dim {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("filter dimension %q is not a key dimension of structure %s: %w",
			dim, sd.ID, sdmx.ErrSchema)
	}

	out := &sdmx.DataSet{ID: ds.ID, Structure: sd}
	for _, s := range ds.Series {
		got, err := renderedKeyValue(sd, s.Key, dim)
		if err != nil {
			return nil, err
		}
		if got == value {
			out.Series = append(out.Series, s)
		}
	}
	return out, nil
}

// fillKeyCells writes the rendered key-dimension values into row[:len(keyDims)].
func fillKeyCells(row []string, sd *sdmx.StructureDefinition, key *sdmx.SeriesKey) error {
	enumID := sd.EnumeratedDimension().ID
	for i, d := range sd.KeyDimensions() {
		v, _ := key.Get(d.ID)
		if d.ID == enumID {
			p, err := sd.Enumeration().PathString(v)
			if err != nil {
				return fmt.Errorf("series [%s]: %w", key, err)
			}
			v = p
		}
		row[i] = v
	}
	return nil
}

// renderedKeyValue returns the presentation form of one key value.
func renderedKeyValue(sd *sdmx.StructureDefinition, key *sdmx.SeriesKey, dim string) (string, error) {
	v, _ := key.Get(dim)
	if dim != sd.EnumeratedDimension().ID {
		return v, nil
	}
	p, err := sd.Enumeration().PathString(v)
	if err != nil {
		return "", fmt.Errorf("series [%s]: %w", key, err)
	}
	return p, nil
}
