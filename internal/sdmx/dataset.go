// Package sdmx models wide tabular data as a structured statistical
// dataset: a concept scheme, a hierarchical codelist enumerating one
// categorical dimension, an ordered structure definition, and series of
// keyed observations accumulated through a Builder.
package sdmx

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Series is one group: a series key and the observations collected for it.
type Series struct {
	Key *SeriesKey
	Obs []Observation
}

// DataSet is the finalized collection of series, bound to the structure it
// was built against. It is immutable: the Builder hands it out exactly once
// and accepts no further groups afterwards.
type DataSet struct {
	ID        string
	Structure *StructureDefinition
	Series    []*Series
}

// Len returns the number of series.
func (ds *DataSet) Len() int { return len(ds.Series) }

// Obs returns the total observation count across all series.
func (ds *DataSet) Obs() int {
	n := 0
	for _, s := range ds.Series {
		n += len(s.Obs)
	}
	return n
}

// BuilderOptions control accumulation semantics.
//
// Merge folds a group arriving for an existing key into that series
// (attributes checked, observations concatenated); when off, a repeated key
// is a DuplicateKeyError. TrustAttributes skips the attribute consistency
// check during merges for sources known to be consistent; by default a
// mismatch is an AttributeConflictError.
type BuilderOptions struct {
	Merge           bool
	TrustAttributes bool
}

// Builder accumulates groups into a DataSet. AddGroup serializes callers
// behind one mutex, so normalizer workers may share a single Builder; the
// structure must be sealed before the first group arrives.
type Builder struct {
	sd  *StructureDefinition
	opt BuilderOptions

	mu     sync.Mutex
	series []*Series
	byHash map[uint64][]int
	obs    int
	merged int
	done   bool
}

// NewBuilder returns a Builder for the given sealed structure.
func NewBuilder(sd *StructureDefinition, opt BuilderOptions) *Builder {
	return &Builder{sd: sd, opt: opt, byHash: make(map[uint64][]int)}
}

// AddGroup folds one normalized group into the dataset. The key must carry
// exactly the structure's key dimensions in declaration order. For a key
// already present the call fails with DuplicateKeyError unless merging is
// enabled; merges verify attribute consistency first and mutate nothing
// when they fail. Data is never silently dropped.
func (b *Builder) AddGroup(key *SeriesKey, obs []Observation) error {
	if key == nil {
		return fmt.Errorf("nil series key: %w", ErrRow)
	}
	if want := len(b.sd.KeyDimensions()); len(key.Values) != want {
		return fmt.Errorf("series key [%s] has %d values, structure %s wants %d: %w",
			key, len(key.Values), b.sd.ID, want, ErrRow)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return ErrFinalized
	}

	h := key.Hash()
	for _, idx := range b.byHash[h] {
		s := b.series[idx]
		if !s.Key.Equal(key) {
			continue
		}
		if !b.opt.Merge {
			return &DuplicateKeyError{Key: key}
		}
		if !b.opt.TrustAttributes {
			for id, incoming := range key.Attrs {
				if existing, ok := s.Key.Attrs[id]; ok && existing != incoming {
					return &AttributeConflictError{
						Key:       s.Key,
						Attribute: id,
						Existing:  existing,
						Incoming:  incoming,
					}
				}
			}
		}
		for id, v := range key.Attrs {
			s.Key.SetAttr(id, v)
		}
		s.Obs = append(s.Obs, obs...)
		b.obs += len(obs)
		b.merged++
		return nil
	}

	b.series = append(b.series, &Series{Key: key, Obs: obs})
	b.byHash[h] = append(b.byHash[h], len(b.series)-1)
	b.obs += len(obs)
	return nil
}

// Finalize seals the builder and returns the immutable dataset, stamped
// with a fresh run-unique id. Further AddGroup or Finalize calls fail with
// ErrFinalized.
func (b *Builder) Finalize() (*DataSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return nil, ErrFinalized
	}
	b.done = true
	return &DataSet{
		ID:        uuid.NewString(),
		Structure: b.sd,
		Series:    b.series,
	}, nil
}

// Len returns the number of series accumulated so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.series)
}

// Obs returns the number of observations accumulated so far.
func (b *Builder) Obs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.obs
}

// Merged returns how many groups were folded into existing series.
func (b *Builder) Merged() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.merged
}
