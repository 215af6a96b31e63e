package schemadef

import (
	"fmt"
	"strings"

	"wideform/internal/sdmx"
)

// Build materializes the definition into a concept scheme, the codelist for
// the enumerated dimension, and a sealed structure definition. Any failure
// aborts construction immediately; a malformed schema never processes rows.
//
// Concepts referenced by dimensions or attributes but absent from the
// concepts list are registered on the fly with name = id. Code paths are
// registered through RegisterPath, so entry order in the document never
// matters.
func (d *Definition) Build() (*sdmx.ConceptScheme, *sdmx.Codelist, *sdmx.StructureDefinition, error) {
	if len(d.Dimensions) == 0 {
		return nil, nil, nil, fmt.Errorf("schema %s: no dimensions declared: %w", d.Schema, sdmx.ErrSchema)
	}

	var enumDim, varyDim *DimensionDef
	for i := range d.Dimensions {
		dim := &d.Dimensions[i]
		if dim.ID == "" {
			return nil, nil, nil, fmt.Errorf("schema %s: dimension %d has no id: %w", d.Schema, i, sdmx.ErrSchema)
		}
		if dim.Enumerated {
			if enumDim != nil {
				return nil, nil, nil, fmt.Errorf("schema %s: dimensions %s and %s both marked enumerated: %w",
					d.Schema, enumDim.ID, dim.ID, sdmx.ErrSchema)
			}
			enumDim = dim
		}
		if dim.Varying {
			if varyDim != nil {
				return nil, nil, nil, fmt.Errorf("schema %s: dimensions %s and %s both marked varying: %w",
					d.Schema, varyDim.ID, dim.ID, sdmx.ErrSchema)
			}
			varyDim = dim
		}
	}
	if enumDim == nil {
		return nil, nil, nil, fmt.Errorf("schema %s: no dimension marked enumerated: %w", d.Schema, sdmx.ErrSchema)
	}
	if varyDim == nil {
		return nil, nil, nil, fmt.Errorf("schema %s: no dimension marked varying: %w", d.Schema, sdmx.ErrSchema)
	}

	scheme := sdmx.NewConceptScheme(d.Schema)
	for _, c := range d.Concepts {
		if c.ID == "" {
			return nil, nil, nil, fmt.Errorf("schema %s: concept with empty id: %w", d.Schema, sdmx.ErrSchema)
		}
		if _, err := scheme.Add(c.ID, c.Name); err != nil {
			return nil, nil, nil, err
		}
	}
	// Auto-register concepts that components reference but the document
	// never lists explicitly.
	for _, dim := range d.Dimensions {
		if _, ok := scheme.Get(dim.Concept); ok {
			continue
		}
		if _, err := scheme.Add(dim.Concept, ""); err != nil {
			return nil, nil, nil, err
		}
	}
	for _, attr := range d.Attributes {
		if attr.ID == "" {
			return nil, nil, nil, fmt.Errorf("schema %s: attribute with empty id: %w", d.Schema, sdmx.ErrSchema)
		}
		if _, ok := scheme.Get(attr.Concept); ok {
			continue
		}
		if _, err := scheme.Add(attr.Concept, ""); err != nil {
			return nil, nil, nil, err
		}
	}

	cl := sdmx.NewCodelist(enumDim.Concept)
	for _, path := range d.Codes {
		segments := splitPath(path, d.Delimiter)
		if len(segments) == 0 {
			return nil, nil, nil, fmt.Errorf("codelist %s: blank code entry: %w", cl.ID, sdmx.ErrHierarchy)
		}
		if _, err := cl.RegisterPath(segments); err != nil {
			return nil, nil, nil, err
		}
	}
	if err := scheme.BindEnumeration(enumDim.Concept, cl); err != nil {
		return nil, nil, nil, err
	}

	sd := sdmx.NewStructure(d.Schema, scheme)
	for _, dim := range d.Dimensions {
		if err := sd.AddDimension(dim.ID, dim.Concept); err != nil {
			return nil, nil, nil, err
		}
	}
	for _, attr := range d.Attributes {
		if err := sd.AddAttribute(attr.ID, attr.Concept); err != nil {
			return nil, nil, nil, err
		}
	}
	if err := sd.SetVaryingDimension(varyDim.ID); err != nil {
		return nil, nil, nil, err
	}
	if err := sd.Seal(); err != nil {
		return nil, nil, nil, err
	}
	return scheme, cl, sd, nil
}

// splitPath splits a code path on the delimiter and trims surrounding
// whitespace per segment. Blank segments (as in "Energy||Supply") are kept
// so RegisterPath rejects them instead of silently collapsing levels.
func splitPath(path, delim string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	parts := strings.Split(path, delim)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
