// Package schemadef reads schema definition documents and materializes them
// into the sdmx model objects the rest of the pipeline consumes.
//
// A definition names the concepts, the ordered dimensions (exactly one
// enumerated, exactly one varying), the attributes, and the hierarchical
// code paths of the enumerated dimension. Definitions normally live in YAML
// files next to the pipeline config; small ones can be embedded inline in
// the pipeline JSON instead.
//
// Example:
//
//	schema: iamc
//	delimiter: "|"
//	concepts:
//	  - id: MODEL
//	    name: Model name
//	dimensions:
//	  - id: MODEL
//	    concept: MODEL
//	  - id: VARIABLE
//	    concept: VARIABLE
//	    enumerated: true
//	  - id: YEAR
//	    concept: YEAR
//	    varying: true
//	attributes:
//	  - id: UNIT
//	    concept: UNIT
//	codes:
//	  - Energy
//	  - Energy|Supply
//	  - Energy|Supply|Electricity
//
// Code entries are full ancestor chains, so the file order never matters:
// parents are registered before children by construction.
package schemadef

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wideform/internal/config"
)

// Definition is the decoded schema document. Field tags cover both YAML
// (file form) and JSON (inline form embedded in pipeline configs).
type Definition struct {
	// Schema is the structure id; it names the built StructureDefinition
	// and the concept scheme.
	Schema string `yaml:"schema" json:"schema"`

	// Delimiter separates segments in code paths and in categorical cells.
	// Defaults to "|".
	Delimiter string `yaml:"delimiter" json:"delimiter"`

	Concepts   []ConceptDef   `yaml:"concepts,omitempty" json:"concepts,omitempty"`
	Dimensions []DimensionDef `yaml:"dimensions" json:"dimensions"`
	Attributes []AttributeDef `yaml:"attributes,omitempty" json:"attributes,omitempty"`

	// Codes are the enumerated dimension's allowed values, one full
	// ancestor chain per entry ("Energy|Supply|Electricity").
	Codes []string `yaml:"codes,omitempty" json:"codes,omitempty"`
}

// ConceptDef declares a concept. Name defaults to the id. Concepts that are
// only referenced by dimensions or attributes may be omitted entirely; they
// are auto-registered during Build.
type ConceptDef struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// DimensionDef declares one ordered dimension. Concept defaults to the
// dimension id. Exactly one dimension must set Enumerated and exactly one
// must set Varying; they cannot be the same dimension.
type DimensionDef struct {
	ID         string `yaml:"id" json:"id"`
	Concept    string `yaml:"concept,omitempty" json:"concept,omitempty"`
	Enumerated bool   `yaml:"enumerated,omitempty" json:"enumerated,omitempty"`
	Varying    bool   `yaml:"varying,omitempty" json:"varying,omitempty"`
}

// AttributeDef declares one attribute. Concept defaults to the attribute id.
type AttributeDef struct {
	ID      string `yaml:"id" json:"id"`
	Concept string `yaml:"concept,omitempty" json:"concept,omitempty"`
}

// Load reads and parses a YAML definition file.
func Load(path string) (*Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemadef: read %s: %w", path, err)
	}
	def, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("schemadef: parse %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a YAML definition document and applies defaults.
func Parse(b []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(b, &def); err != nil {
		return nil, err
	}
	def.applyDefaults()
	return &def, nil
}

// FromOptions decodes an inline definition embedded in pipeline JSON. The
// options map is round-tripped through encoding/json into the typed
// Definition, the same way inline sub-documents are decoded elsewhere in
// the config layer.
func FromOptions(opts config.Options) (*Definition, error) {
	b, err := json.Marshal(map[string]any(opts))
	if err != nil {
		return nil, fmt.Errorf("schemadef: inline definition is not JSON-marshable: %w", err)
	}
	var def Definition
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("schemadef: decode inline definition: %w", err)
	}
	def.applyDefaults()
	return &def, nil
}

// FromConfig resolves a pipeline's schema section: a path loads the YAML
// file, an inline block decodes in place. Exactly one of the two must be
// set; config validation enforces that before execution.
func FromConfig(s config.Schema) (*Definition, error) {
	if s.Path != "" {
		return Load(s.Path)
	}
	if len(s.Inline) > 0 {
		return FromOptions(s.Inline)
	}
	return nil, fmt.Errorf("schemadef: no schema path or inline definition configured")
}

func (d *Definition) applyDefaults() {
	if d.Schema == "" {
		d.Schema = "schema"
	}
	if d.Delimiter == "" {
		d.Delimiter = "|"
	}
	for i := range d.Dimensions {
		if d.Dimensions[i].Concept == "" {
			d.Dimensions[i].Concept = d.Dimensions[i].ID
		}
	}
	for i := range d.Attributes {
		if d.Attributes[i].Concept == "" {
			d.Attributes[i].Concept = d.Attributes[i].ID
		}
	}
}
