package normalize

import (
	"fmt"
	"strings"

	"wideform/internal/sdmx"
)

type role uint8

const (
	roleKeyDim role = iota + 1
	roleCategorical
	roleAttribute
	roleVarying
)

type colPlan struct {
	role   role
	id     string // component id, or the varying label for roleVarying
	keyPos int    // position in the series key; key roles only
}

// Plan is a header compiled against the normalizer: every column carries a
// resolved role, so Row touches no maps. A Plan is immutable and safe to
// share across workers.
type Plan struct {
	n       *Normalizer
	cols    []colPlan
	varying int // varying column count, sizes the observation slice
}

// Plan classifies each header cell into exactly one role: key dimension,
// categorical path, attribute, or varying label (any header that matches no
// declared component). Compilation fails when a key-defining dimension is
// absent (MissingFieldError with line 0), when a component appears twice,
// or when the varying dimension id itself shows up as a header.
func (n *Normalizer) Plan(header []string) (*Plan, error) {
	p := &Plan{n: n, cols: make([]colPlan, len(header))}
	seen := make(map[string]int, len(header))
	for i := range header {
		h := strings.TrimSpace(header[i])
		id, ok := n.lookupID(h)
		if !ok {
			p.cols[i] = colPlan{role: roleVarying, id: h}
			p.varying++
			continue
		}
		if id == n.varID {
			return nil, fmt.Errorf("header column %d is %q, the varying dimension; wide input carries its labels as column headers: %w",
				i+1, id, sdmx.ErrRow)
		}
		if j, dup := seen[id]; dup {
			return nil, fmt.Errorf("header declares component %s twice (columns %d and %d): %w",
				id, j+1, i+1, sdmx.ErrRow)
		}
		seen[id] = i
		switch {
		case id == n.enumID:
			p.cols[i] = colPlan{role: roleCategorical, id: id, keyPos: n.keyPos[id]}
		case n.isKeyDim(id):
			p.cols[i] = colPlan{role: roleKeyDim, id: id, keyPos: n.keyPos[id]}
		default:
			p.cols[i] = colPlan{role: roleAttribute, id: id}
		}
	}
	for _, d := range n.keyDims {
		if _, ok := seen[d.ID]; !ok {
			return nil, &sdmx.MissingFieldError{Field: d.ID}
		}
	}
	return p, nil
}

// Columns returns the header width the plan was compiled for.
func (p *Plan) Columns() int { return len(p.cols) }

// VaryingLabels returns the labels of the varying columns in header order.
func (p *Plan) VaryingLabels() []string {
	out := make([]string, 0, p.varying)
	for _, c := range p.cols {
		if c.role == roleVarying {
			out = append(out, c.id)
		}
	}
	return out
}

// Row normalizes one header-aligned row. Semantics match Record; the
// difference is purely mechanical: roles were resolved at compile time, so
// the loop indexes straight into the compiled columns. Observations come
// out in column order.
//
// Row does not retain the slice, so pooled rows may be freed as soon as it
// returns.
func (p *Plan) Row(row []string, line int) (*sdmx.SeriesKey, []sdmx.Observation, error) {
	if len(row) != len(p.cols) {
		return nil, nil, &sdmx.RowError{Line: line, Err: fmt.Errorf(
			"row has %d cells, header declares %d", len(row), len(p.cols))}
	}

	n := p.n
	kvs := make([]sdmx.KeyValue, len(n.keyDims))
	obs := make([]sdmx.Observation, 0, p.varying)
	type attrRef struct{ id, value string }
	var attrs []attrRef

	for i := range p.cols {
		c := &p.cols[i]
		v := row[i]
		switch c.role {
		case roleCategorical:
			code, err := n.resolve(v)
			if err != nil {
				return nil, nil, &sdmx.RowError{Line: line, Err: err}
			}
			kvs[c.keyPos] = sdmx.KeyValue{Dim: c.id, Value: code.ID}
		case roleKeyDim:
			kvs[c.keyPos] = sdmx.KeyValue{Dim: c.id, Value: v}
		case roleAttribute:
			if v != "" {
				attrs = append(attrs, attrRef{id: c.id, value: v})
			}
		case roleVarying:
			o, emit, err := n.cell(c.id, v, line)
			if err != nil {
				return nil, nil, err
			}
			if emit {
				obs = append(obs, o)
			}
		}
	}

	key := sdmx.NewKey(kvs...)
	for _, a := range attrs {
		key.SetAttr(a.id, a.value)
	}
	return key, obs, nil
}

func (n *Normalizer) isKeyDim(id string) bool {
	_, ok := n.keyPos[id]
	return ok
}
