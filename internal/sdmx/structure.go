package sdmx

import "fmt"

// Dimension is a schema field that varies at series level (or, for the one
// varying dimension, at observation level). Pos is the zero-based
// declaration position; external representations depend on the order,
// lookups go by id.
type Dimension struct {
	ID      string
	Concept string
	Pos     int
}

// Attribute is a schema field that annotates a series without being part of
// its identity.
type Attribute struct {
	ID      string
	Concept string
}

// StructureDefinition ties a concept scheme and its codelist to an ordered
// dimension list and an attribute set. Exactly one dimension references the
// enumerated concept (the categorical key dimension) and exactly one is the
// observation-varying dimension; the latter is declared explicitly, never
// inferred from the data.
//
// A structure is mutable while being assembled and must be sealed before
// rows are processed. Seal validates the shape, freezes the scheme and the
// codelist, and makes every read method safe for concurrent use.
type StructureDefinition struct {
	ID     string
	scheme *ConceptScheme

	dims    []*Dimension
	attrs   []*Attribute
	byID    map[string]string // component id → "dimension" | "attribute"
	varying string

	sealed  bool
	keyDims []*Dimension
	enumDim *Dimension
}

// NewStructure returns an empty structure bound to the given scheme.
func NewStructure(id string, scheme *ConceptScheme) *StructureDefinition {
	return &StructureDefinition{ID: id, scheme: scheme, byID: make(map[string]string)}
}

// AddDimension appends a dimension bound to conceptID. Fails with
// UnknownConceptError when the concept is missing and
// DuplicateComponentError when the id is already taken.
func (sd *StructureDefinition) AddDimension(id, conceptID string) error {
	if sd.sealed {
		return &SchemaFrozenError{What: "structure " + sd.ID}
	}
	if _, ok := sd.byID[id]; ok {
		return &DuplicateComponentError{ID: id}
	}
	if _, ok := sd.scheme.Get(conceptID); !ok {
		return &UnknownConceptError{ID: conceptID}
	}
	sd.dims = append(sd.dims, &Dimension{ID: id, Concept: conceptID, Pos: len(sd.dims)})
	sd.byID[id] = "dimension"
	return nil
}

// AddAttribute adds an attribute bound to conceptID. Same failure modes as
// AddDimension.
func (sd *StructureDefinition) AddAttribute(id, conceptID string) error {
	if sd.sealed {
		return &SchemaFrozenError{What: "structure " + sd.ID}
	}
	if _, ok := sd.byID[id]; ok {
		return &DuplicateComponentError{ID: id}
	}
	if _, ok := sd.scheme.Get(conceptID); !ok {
		return &UnknownConceptError{ID: conceptID}
	}
	sd.attrs = append(sd.attrs, &Attribute{ID: id, Concept: conceptID})
	sd.byID[id] = "attribute"
	return nil
}

// SetVaryingDimension declares which dimension varies per observation
// within a row (conventionally the time dimension). The id must refer to a
// declared dimension by Seal time.
func (sd *StructureDefinition) SetVaryingDimension(id string) error {
	if sd.sealed {
		return &SchemaFrozenError{What: "structure " + sd.ID}
	}
	sd.varying = id
	return nil
}

// Seal validates the assembled structure and freezes it, the scheme and the
// codelist. After Seal every mutating method fails with SchemaFrozenError.
//
// Validation: at least one dimension; exactly one dimension bound to the
// scheme's enumerated concept; a declared varying dimension that is not the
// enumerated one. Seal is idempotent.
func (sd *StructureDefinition) Seal() error {
	if sd.sealed {
		return nil
	}
	if len(sd.dims) == 0 {
		return fmt.Errorf("structure %s: no dimensions declared: %w", sd.ID, ErrSchema)
	}
	enumConcept, ok := sd.scheme.Enumerated()
	if !ok {
		return fmt.Errorf("structure %s: scheme has no enumerated concept: %w", sd.ID, ErrSchema)
	}
	var enumDim *Dimension
	for _, d := range sd.dims {
		if d.Concept != enumConcept.ID {
			continue
		}
		if enumDim != nil {
			return fmt.Errorf("structure %s: dimensions %s and %s both reference enumerated concept %s: %w",
				sd.ID, enumDim.ID, d.ID, enumConcept.ID, ErrSchema)
		}
		enumDim = d
	}
	if enumDim == nil {
		return fmt.Errorf("structure %s: no dimension references enumerated concept %s: %w",
			sd.ID, enumConcept.ID, ErrSchema)
	}
	if sd.varying == "" {
		return fmt.Errorf("structure %s: varying dimension not declared: %w", sd.ID, ErrSchema)
	}
	if sd.byID[sd.varying] != "dimension" {
		return fmt.Errorf("structure %s: varying dimension %q is not a declared dimension: %w",
			sd.ID, sd.varying, ErrSchema)
	}
	if sd.varying == enumDim.ID {
		return fmt.Errorf("structure %s: varying dimension %q cannot be the enumerated dimension: %w",
			sd.ID, sd.varying, ErrSchema)
	}

	sd.keyDims = make([]*Dimension, 0, len(sd.dims)-1)
	for _, d := range sd.dims {
		if d.ID != sd.varying {
			sd.keyDims = append(sd.keyDims, d)
		}
	}
	sd.enumDim = enumDim
	sd.scheme.freeze()
	if cl := enumConcept.Enum; cl != nil {
		cl.Freeze()
	}
	sd.sealed = true
	return nil
}

// Sealed reports whether Seal has completed.
func (sd *StructureDefinition) Sealed() bool { return sd.sealed }

// Dimensions returns all dimensions in declaration order.
func (sd *StructureDefinition) Dimensions() []*Dimension { return sd.dims }

// KeyDimensions returns the key-defining dimensions in declaration order:
// every dimension except the varying one. Only valid after Seal.
func (sd *StructureDefinition) KeyDimensions() []*Dimension { return sd.keyDims }

// Attributes returns the declared attributes in declaration order.
func (sd *StructureDefinition) Attributes() []*Attribute { return sd.attrs }

// Dimension returns the declared dimension with the given id.
func (sd *StructureDefinition) Dimension(id string) (*Dimension, bool) {
	if sd.byID[id] != "dimension" {
		return nil, false
	}
	for _, d := range sd.dims {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// EnumeratedDimension returns the dimension bound to the enumerated
// concept. Only valid after Seal.
func (sd *StructureDefinition) EnumeratedDimension() *Dimension { return sd.enumDim }

// VaryingDimension returns the id of the observation-varying dimension.
func (sd *StructureDefinition) VaryingDimension() string { return sd.varying }

// Enumeration returns the codelist backing the enumerated concept.
func (sd *StructureDefinition) Enumeration() *Codelist {
	c, ok := sd.scheme.Enumerated()
	if !ok {
		return nil
	}
	return c.Enum
}

// Scheme returns the concept scheme the structure was built from.
func (sd *StructureDefinition) Scheme() *ConceptScheme { return sd.scheme }
