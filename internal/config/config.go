// Package config defines the canonical, JSON-serializable configuration model
// for a wideform pipeline run. It is intentionally small, explicit, and
// dependency-free so that pipelines can be loaded from disk (or other sources)
// and passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in pipeline
//     files under configs/pipelines/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by the
//     standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "name":    "iamc_demo",
//	  "source":  { "kind": "file", "options": { "path": "testdata/wide.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": ",", "trim_space": true } },
//	  "schema":  { "path": "testdata/iamc.yaml" },
//	  "normalize": { "delimiter": "|", "on_error": "collect", "merge": true },
//	  "storage": { "kind": "sqlite", "db": { "dsn": "file:obs.db", "table": "observations" } },
//	  "export":  { "format": "csv", "path": "out/wide.csv", "pivot": true }
//	}
package config

import "encoding/json"

// Pipeline describes one full wideform run in JSON. It is the top-level object
// decoded from a pipeline file (e.g., configs/pipelines/*.json).
type Pipeline struct {
	// Name identifies the run; it is used for metrics labeling and logs.
	Name string `json:"name"`

	// Source describes where input data comes from (local file, http, list).
	Source Source `json:"source"`

	// Parser configures how raw bytes are turned into wide rows (csv, jsonl).
	Parser Parser `json:"parser"`

	// Schema locates the schema definition: concepts, dimensions, attributes,
	// and the hierarchical code paths.
	Schema Schema `json:"schema"`

	// Normalize controls row normalization and accumulation semantics.
	Normalize Normalize `json:"normalize"`

	// Storage describes where flattened observations are written. An empty
	// Kind disables the storage stage.
	Storage Storage `json:"storage"`

	// Export configures the presentation output written from the finalized
	// dataset. An empty Format disables the export stage.
	Export Export `json:"export"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls concurrency, batching, and channel buffer sizes.
type RuntimeConfig struct {
	NormalizeWorkers int `json:"normalize_workers"`
	LoaderWorkers    int `json:"loader_workers"`
	BatchSize        int `json:"batch_size"`
	ChannelBuffer    int `json:"channel_buffer"`
}

// Source identifies the data source. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation: "file", "http", or "list".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the source implementation.
	// For "file": path (string). For "http": url (string),
	// insecure_skip_verify (bool), timeout_seconds (int). For "list": path
	// (string) names a manifest of file paths and URLs streamed back to
	// back, plus drop_headers (bool, default true) and the http options
	// above for listed URLs.
	Options Options `json:"options"`
}

// Parser selects how to parse the raw source into wide rows.
type Parser struct {
	// Kind selects the parser implementation: "csv" or "jsonl".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the parser implementation.
	// For CSV, typical keys include:
	//   comma (string), trim_space (bool), lazy_quotes (bool),
	//   fold_header (bool), header_map (object)
	Options Options `json:"options"`
}

// Schema locates the schema definition document. Exactly one of Path and
// Inline should be set: Path points at a YAML definition file, Inline embeds
// the same structure directly in the pipeline JSON.
type Schema struct {
	Path   string  `json:"path"`
	Inline Options `json:"inline"`
}

// Normalize carries row-normalization and accumulation knobs. Zero values are
// the safe defaults: "|" delimiter, raw value passthrough, blank varying
// cells skipped, fail-fast on the first bad row, duplicate keys rejected,
// attribute consistency checked.
type Normalize struct {
	// Delimiter is the categorical path separator; "|" when empty.
	Delimiter string `json:"delimiter"`

	// Numeric is the cell value policy: "keep" (default; store raw),
	// "require" (non-numeric cell fails the row), "skip" (drop non-numeric
	// cells, counted).
	Numeric string `json:"numeric"`

	// EmptyCells controls blank varying-dimension cells: "skip" (default),
	// "keep" (emit empty observations), "error".
	EmptyCells string `json:"empty_cells"`

	// OnError selects "fail" (default; first row error stops the run) or
	// "collect" (bad rows are gathered and reported together).
	OnError string `json:"on_error"`

	// MaxErrors bounds the failures retained in collect mode (count always
	// continues). Defaults to 20.
	MaxErrors int `json:"max_errors"`

	// Merge folds repeated series keys into one series instead of rejecting
	// the second occurrence.
	Merge bool `json:"merge"`

	// TrustAttributes skips the attribute consistency check during merges.
	// Leave false unless the source guarantees one attribute value per
	// series.
	TrustAttributes bool `json:"trust_attributes"`

	// FoldHeader lowercases header cells so "Model" matches dimension id
	// "MODEL". Cell values are never folded.
	FoldHeader bool `json:"fold_header"`
}

// Storage selects the sink used to persist flattened observations.
type Storage struct {
	// Kind selects the storage implementation: "postgres", "sqlite",
	// "mysql", or "mssql". Empty disables the stage.
	Kind string `json:"kind"`

	// DB configures the selected backend.
	DB DBConfig `json:"db"`
}

// DBConfig configures the DB sink shared across backends.
type DBConfig struct {
	// DSN is the backend connection string (e.g., postgresql://... or
	// file:obs.db for sqlite).
	DSN string `json:"dsn"`

	// Table is the target table name, optionally schema-qualified
	// (e.g., "public.observations").
	Table string `json:"table"`

	// AutoCreateTable creates the observation table from the sealed
	// structure before loading.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Export configures the presentation output for the finalized dataset.
type Export struct {
	// Format selects the writer: "csv", "json", or "xml". Empty disables
	// the stage.
	Format string `json:"format"`

	// Path is the output file; "-" or empty writes to stdout.
	Path string `json:"path"`

	// Pivot renders the wide table (one row per series, one column per
	// varying label). Only meaningful for the csv format; json/xml always
	// emit the structured form.
	Pivot bool `json:"pivot"`

	// Filter keeps only series whose key value for Dimension equals Value.
	Filter ExportFilter `json:"filter"`
}

// ExportFilter selects a slice of the dataset by one key-dimension value.
type ExportFilter struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
//
// Options is used for source/parser-specific configuration where the shape
// varies by implementation, and for the inline schema definition.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive). This is useful for retrieving nested
// configuration blocks that will be unmarshaled into a typed struct by the
// caller (e.g., an inline schema definition).
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
