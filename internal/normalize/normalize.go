// Package normalize turns wide rows into series keys and observations
// against a sealed structure definition.
//
// One wide row carries a full series: the key-defining dimension values
// (including the categorical path resolved through the code hierarchy), the
// attribute values, and one cell per varying-dimension label. Normalization
// classifies every field into exactly one of those roles and emits the key
// plus one observation per populated varying cell.
//
// Two entry points cover the two row shapes: Record handles field-name →
// value maps (JSON lines, tests) and is the semantic reference; Plan
// compiles a CSV header once so Row can normalize header-aligned slices
// with no per-row map work.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"wideform/internal/sdmx"
)

// Policy selects how varying-dimension cell values are treated.
type Policy string

const (
	// NumericKeep stores the raw cell text unchanged. The default.
	NumericKeep Policy = "keep"
	// NumericRequire fails the row with a ValueError on any cell that does
	// not parse as a number.
	NumericRequire Policy = "require"
	// NumericSkip drops cells that do not parse as a number and counts
	// them; the rest of the row proceeds.
	NumericSkip Policy = "skip"
)

// CellMode selects how blank varying-dimension cells are treated.
type CellMode string

const (
	// CellsSkip emits no observation for a blank cell. The default.
	CellsSkip CellMode = "skip"
	// CellsKeep emits an observation with the empty value.
	CellsKeep CellMode = "keep"
	// CellsError fails the row with a ValueError on any blank cell.
	CellsError CellMode = "error"
)

// Options configure a Normalizer. The zero value is usable: "|" delimiter,
// raw values kept, blank cells skipped, exact header matching.
type Options struct {
	// Delimiter separates categorical path segments; '|' when zero.
	Delimiter rune

	// Numeric is the cell value policy.
	Numeric Policy

	// EmptyCells is the blank-cell policy.
	EmptyCells CellMode

	// FoldHeader matches field names to component ids case-insensitively,
	// so a "Model" header satisfies the MODEL dimension. Cell values are
	// never folded.
	FoldHeader bool
}

// Normalizer maps wide rows onto a sealed structure. All methods are safe
// for concurrent use: the structure and hierarchy are frozen at
// construction time and the only mutable state is an atomic skip counter.
type Normalizer struct {
	sd  *sdmx.StructureDefinition
	cl  *sdmx.Codelist
	opt Options

	enumID  string
	varID   string
	keyDims []*sdmx.Dimension
	attrs   []*sdmx.Attribute

	keyPos  map[string]int    // key dimension id → position in the key
	matchID map[string]string // match name (folded when configured) → component id

	skippedCells atomic.Int64
}

// New builds a Normalizer over sd, sealing it first when the caller has not
// already done so. Option enum values outside the declared sets are
// rejected here rather than surfacing as misbehavior mid-run.
func New(sd *sdmx.StructureDefinition, opt Options) (*Normalizer, error) {
	if err := sd.Seal(); err != nil {
		return nil, err
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = '|'
	}
	switch opt.Numeric {
	case "", NumericKeep:
		opt.Numeric = NumericKeep
	case NumericRequire, NumericSkip:
	default:
		return nil, fmt.Errorf("normalize: unknown numeric policy %q", opt.Numeric)
	}
	switch opt.EmptyCells {
	case "", CellsSkip:
		opt.EmptyCells = CellsSkip
	case CellsKeep, CellsError:
	default:
		return nil, fmt.Errorf("normalize: unknown empty-cell mode %q", opt.EmptyCells)
	}

	n := &Normalizer{
		sd:      sd,
		cl:      sd.Enumeration(),
		opt:     opt,
		enumID:  sd.EnumeratedDimension().ID,
		varID:   sd.VaryingDimension(),
		keyDims: sd.KeyDimensions(),
		attrs:   sd.Attributes(),
		keyPos:  make(map[string]int),
		matchID: make(map[string]string),
	}
	for i, d := range n.keyDims {
		n.keyPos[d.ID] = i
		n.matchID[n.matchName(d.ID)] = d.ID
	}
	n.matchID[n.matchName(n.varID)] = n.varID
	for _, a := range n.attrs {
		n.matchID[n.matchName(a.ID)] = a.ID
	}
	return n, nil
}

// SkippedCells returns how many non-numeric cells the skip policy has
// dropped since construction.
func (n *Normalizer) SkippedCells() int64 { return n.skippedCells.Load() }

// Structure returns the sealed structure the normalizer was built over.
func (n *Normalizer) Structure() *sdmx.StructureDefinition { return n.sd }

// Record normalizes one field-name → value mapping. The returned key holds
// the key-defining dimensions in declaration order with the categorical
// path resolved to its code id; every field that is not a declared
// component becomes one observation, ordered by label.
//
// A record missing a key-defining field fails with MissingFieldError; an
// unresolvable categorical path fails with a RowError wrapping the
// hierarchy error; cell policy violations fail with ValueError. An
// otherwise valid record with no varying cells yields a key and zero
// observations.
func (n *Normalizer) Record(rec map[string]string, line int) (*sdmx.SeriesKey, []sdmx.Observation, error) {
	byID := make(map[string]string, len(n.keyDims)+len(n.attrs))
	fieldOf := make(map[string]string, len(byID))
	type cellRef struct{ label, value string }
	var varying []cellRef

	for f, v := range rec {
		name := strings.TrimSpace(f)
		id, ok := n.lookupID(name)
		if !ok {
			varying = append(varying, cellRef{label: name, value: v})
			continue
		}
		if id == n.varID {
			return nil, nil, &sdmx.RowError{Line: line, Err: fmt.Errorf(
				"field %q is the varying dimension; wide input carries its labels as column headers", id)}
		}
		if prev, dup := fieldOf[id]; dup {
			return nil, nil, &sdmx.RowError{Line: line, Err: fmt.Errorf(
				"fields %q and %q both map to component %s", prev, f, id)}
		}
		fieldOf[id] = f
		byID[id] = v
	}

	kvs := make([]sdmx.KeyValue, len(n.keyDims))
	for i, d := range n.keyDims {
		raw, ok := byID[d.ID]
		if !ok {
			return nil, nil, &sdmx.MissingFieldError{Field: d.ID, Line: line}
		}
		if d.ID == n.enumID {
			code, err := n.resolve(raw)
			if err != nil {
				return nil, nil, &sdmx.RowError{Line: line, Err: err}
			}
			kvs[i] = sdmx.KeyValue{Dim: d.ID, Value: code.ID}
			continue
		}
		kvs[i] = sdmx.KeyValue{Dim: d.ID, Value: raw}
	}
	key := sdmx.NewKey(kvs...)
	for _, a := range n.attrs {
		if v, ok := byID[a.ID]; ok && v != "" {
			key.SetAttr(a.ID, v)
		}
	}

	// Map iteration order is random; sort labels so record-form output is
	// deterministic.
	labels := make([]string, 0, len(varying))
	values := make(map[string]string, len(varying))
	for _, c := range varying {
		labels = append(labels, c.label)
		values[c.label] = c.value
	}
	sdmx.SortLabels(labels)

	obs := make([]sdmx.Observation, 0, len(labels))
	for _, label := range labels {
		o, emit, err := n.cell(label, values[label], line)
		if err != nil {
			return nil, nil, err
		}
		if emit {
			obs = append(obs, o)
		}
	}
	return key, obs, nil
}

// resolve splits a categorical path on the delimiter, trims each segment,
// and resolves the full ancestor chain through the hierarchy.
func (n *Normalizer) resolve(raw string) (*sdmx.Code, error) {
	segments := strings.Split(raw, string(n.opt.Delimiter))
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}
	return n.cl.ResolvePath(segments)
}

// cell applies the value policies to one varying-dimension cell. emit is
// false when the policy drops the cell without failing the row.
func (n *Normalizer) cell(label, value string, line int) (o sdmx.Observation, emit bool, err error) {
	if strings.TrimSpace(value) == "" {
		switch n.opt.EmptyCells {
		case CellsKeep:
			return sdmx.Observation{Period: label, Value: value}, true, nil
		case CellsError:
			return sdmx.Observation{}, false, &sdmx.ValueError{Label: label, Value: "", Line: line}
		default:
			return sdmx.Observation{}, false, nil
		}
	}
	if n.opt.Numeric != NumericKeep {
		if _, perr := strconv.ParseFloat(strings.TrimSpace(value), 64); perr != nil {
			if n.opt.Numeric == NumericSkip {
				n.skippedCells.Add(1)
				return sdmx.Observation{}, false, nil
			}
			return sdmx.Observation{}, false, &sdmx.ValueError{Label: label, Value: value, Line: line}
		}
	}
	return sdmx.Observation{Period: label, Value: value}, true, nil
}

// lookupID maps a field name to a declared component id, respecting the
// configured header folding.
func (n *Normalizer) lookupID(name string) (string, bool) {
	id, ok := n.matchID[n.matchName(name)]
	return id, ok
}

func (n *Normalizer) matchName(name string) string {
	if n.opt.FoldHeader {
		return strings.ToLower(name)
	}
	return name
}
