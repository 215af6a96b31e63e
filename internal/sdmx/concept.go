package sdmx

// Concept is a named semantic meaning shared by dimensions and attributes.
// Enum, when non-nil, is the concept's enumerated representation. Concepts
// are immutable once registered.
type Concept struct {
	ID   string
	Name string
	Enum *Codelist
}

// ConceptScheme collects concepts by id. At most one concept in a scheme
// carries an enumerated representation.
type ConceptScheme struct {
	ID       string
	concepts map[string]*Concept
	order    []string
	enum     string
	frozen   bool
}

// NewConceptScheme returns an empty scheme with the given id.
func NewConceptScheme(id string) *ConceptScheme {
	return &ConceptScheme{ID: id, concepts: make(map[string]*Concept)}
}

// Add upserts a concept. An empty name defaults to the id. Re-adding an id
// with an identical name returns the existing concept; a different name
// fails with ConceptConflictError. Redefinition is never silent.
func (cs *ConceptScheme) Add(id, name string) (*Concept, error) {
	if cs.frozen {
		return nil, &SchemaFrozenError{What: "concept scheme " + cs.ID}
	}
	if name == "" {
		name = id
	}
	if existing, ok := cs.concepts[id]; ok {
		if existing.Name != name {
			return nil, &ConceptConflictError{ID: id, Existing: existing.Name, Incoming: name}
		}
		return existing, nil
	}
	c := &Concept{ID: id, Name: name}
	cs.concepts[id] = c
	cs.order = append(cs.order, id)
	return c, nil
}

// BindEnumeration attaches cl as the enumerated representation of the named
// concept. A scheme carries at most one enumerated concept; a second
// binding fails with EnumerationConflictError (re-binding the same concept
// to the same codelist is a no-op).
func (cs *ConceptScheme) BindEnumeration(conceptID string, cl *Codelist) error {
	if cs.frozen {
		return &SchemaFrozenError{What: "concept scheme " + cs.ID}
	}
	c, ok := cs.concepts[conceptID]
	if !ok {
		return &UnknownConceptError{ID: conceptID}
	}
	if cs.enum != "" {
		if cs.enum == conceptID && c.Enum == cl {
			return nil
		}
		return &EnumerationConflictError{Existing: cs.enum, Incoming: conceptID}
	}
	c.Enum = cl
	cs.enum = conceptID
	return nil
}

// Get returns the concept registered under id.
func (cs *ConceptScheme) Get(id string) (*Concept, bool) {
	c, ok := cs.concepts[id]
	return c, ok
}

// Enumerated returns the concept carrying the enumerated representation.
func (cs *ConceptScheme) Enumerated() (*Concept, bool) {
	if cs.enum == "" {
		return nil, false
	}
	return cs.concepts[cs.enum], true
}

// Concepts returns all concepts in registration order.
func (cs *ConceptScheme) Concepts() []*Concept {
	out := make([]*Concept, 0, len(cs.order))
	for _, id := range cs.order {
		out = append(out, cs.concepts[id])
	}
	return out
}

// Len returns the number of registered concepts.
func (cs *ConceptScheme) Len() int { return len(cs.concepts) }

func (cs *ConceptScheme) freeze() { cs.frozen = true }
