// Package probe samples the first bytes of a wide-format source and reports
// how a pipeline run would read it: every column classified into a role (key
// dimension, categorical path, attribute, varying label), the categorical
// vocabulary sampled with counts, and a starter schema definition when none
// exists yet.
//
// The probe sees only a byte-limited prefix of the input, so every count is
// a hint, not a total. Its job is to answer "is this file what the schema
// expects" before the first real run, not to validate the data.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"wideform/internal/config"
	"wideform/internal/datasource/file"
	"wideform/internal/datasource/httpds"
	csvparser "wideform/internal/parser/csv"
	"wideform/internal/schemadef"
)

// defaultMaxBytes bounds the sample when the caller does not.
const defaultMaxBytes = 20000

// topPaths caps how many distinct categorical paths the text rendering
// shows; Result.Paths always carries the full sampled set.
const topPaths = 12

// Options control sampling, matching, and output.
type Options struct {
	// URL of the source. file://path reads the local filesystem; anything
	// else goes through the HTTP datasource client.
	URL string

	// MaxBytes to sample from the start of the file; 20000 when zero.
	MaxBytes int

	// Delimiter is the CSV field separator (single rune); ',' when zero.
	Delimiter rune

	// SchemaPath points at a schema definition YAML. When set, headers are
	// classified against the declared components and sampled categorical
	// paths are checked against the code hierarchy. When empty, roles are
	// guessed and a starter definition is suggested.
	SchemaPath string

	// Name is the dataset name used in suggested component ids, sample file
	// names, and the starter pipeline config. When empty, a filesystem-safe
	// name is derived from the URL.
	Name string

	// OutputJSON renders Body as a starter pipeline config in JSON instead
	// of the plain-text classification summary.
	OutputJSON bool

	// SaveSample writes the sampled bytes to [normalized Name].csv in the
	// working directory.
	SaveSample bool

	// DatePreference breaks ties for ambiguous numeric period labels:
	// "auto" (default, day-first), "eu" (day-first), "us" (month-first).
	DatePreference string

	// AllowInsecureTLS skips TLS certificate verification for HTTP sources
	// (self-signed / internal endpoints).
	AllowInsecureTLS bool

	// Job is the pipeline name written into the starter config; defaults to
	// the normalized Name.
	Job string
}

// Role is the part a column plays in the wide layout.
type Role string

const (
	// RoleKeyDimension marks a column holding one key-defining dimension.
	RoleKeyDimension Role = "key-dimension"
	// RoleCategorical marks the column holding hierarchical code paths.
	RoleCategorical Role = "categorical"
	// RoleAttribute marks a column carried as series metadata.
	RoleAttribute Role = "attribute"
	// RoleVaryingLabel marks a column whose header is a varying-dimension
	// label and whose cells are observation values.
	RoleVaryingLabel Role = "varying-label"
	// RoleUnknown marks a column the probe could not place. Unmatched
	// columns still flow into a run as varying labels, so an unknown here
	// usually means a typo in the header or the schema.
	RoleUnknown Role = "unknown"
)

// Column is the classification of one header cell.
type Column struct {
	// Header is the original header text; Folded is its match form (case
	// and diacritics folded, separators unified).
	Header string `json:"header"`
	Folded string `json:"folded"`

	Role Role `json:"role"`

	// Matched is the component id the header resolved to, or the suggested
	// id in heuristic mode. Empty for varying labels and unknowns.
	Matched string `json:"matched,omitempty"`

	// Distinct and Filled count distinct and non-empty sampled cells.
	Distinct int `json:"distinct"`
	Filled   int `json:"filled"`

	// Example is one sampled value.
	Example string `json:"example,omitempty"`
}

// PathCount is one distinct categorical path with its sample frequency.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`

	// Known reports whether the path resolves through the schema's code
	// hierarchy. Meaningful only when Result.PathsChecked is set.
	Known bool `json:"known,omitempty"`
}

// Result is the probe report plus the rendered Body.
type Result struct {
	// Body is the rendered output: a plain-text summary, or a starter
	// pipeline config when Options.OutputJSON is set.
	Body []byte `json:"-"`

	// Headers is the original header row; Columns aligns with it.
	Headers []string `json:"headers"`
	Columns []Column `json:"columns"`

	// PathDelimiter separates categorical path segments: the schema's
	// delimiter, or the detected one in heuristic mode. Empty when no
	// categorical column was found.
	PathDelimiter string `json:"path_delimiter,omitempty"`

	// Paths is the distinct categorical path sample, most frequent first.
	// PathsChecked is set when each path was resolved against a schema.
	Paths        []PathCount `json:"paths,omitempty"`
	PathsChecked bool        `json:"paths_checked"`

	// PeriodKind is the shared shape of the varying labels: "year",
	// "quarter", "month", "date", or empty when none were found.
	// PeriodLayout is the winning layout for the "date" kind.
	PeriodKind   string `json:"period_kind,omitempty"`
	PeriodLayout string `json:"period_layout,omitempty"`

	// ValueCells counts non-empty cells under varying-label columns;
	// NumericCells counts how many of those parse as numbers.
	ValueCells   int `json:"value_cells"`
	NumericCells int `json:"numeric_cells"`

	// Missing lists key-defining dimensions no header satisfied. A run
	// against this file would fail header compilation.
	Missing []string `json:"missing,omitempty"`

	// SampleBytes, SampleRows, and SkippedRows describe how much input the
	// probe saw.
	SampleBytes int `json:"sample_bytes"`
	SampleRows  int `json:"sample_rows"`
	SkippedRows int `json:"skipped_rows"`

	// SuggestedSchema is the starter definition YAML; set only when no
	// schema was provided and the sample yielded at least one dimension.
	SuggestedSchema string `json:"suggested_schema,omitempty"`
}

// httpPeekFn is the overridable seam the probe uses to fetch the first n
// bytes of a URL. Production wires file.NewLocal for file:// and the httpds
// client for everything else; tests swap it to avoid real I/O.
var httpPeekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("peek: n must be > 0")
	}
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		rc, err := file.NewLocal(path).Open(ctx)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, &io.LimitedReader{R: rc, N: int64(n)}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	client := httpds.NewClient(httpds.Config{InsecureSkipVerify: insecure})
	return client.FetchFirstBytes(ctx, url, n)
}

// newSampleParser is tuned for truncated samples: lazy quotes, because a
// byte-limited fetch can cut a quoted field in half.
func newSampleParser(comma rune) *csvparser.Parser {
	return csvparser.NewParser(csvparser.Options{Comma: comma, TrimSpace: true, LazyQuotes: true})
}

// Probe samples the source and builds the classification report.
//
// The sample is cut at the last newline so a truncated trailing row never
// skews the column statistics.
func Probe(opt Options) (Result, error) {
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = defaultMaxBytes
	}
	if opt.Name == "" {
		// Suggested ids and the saved-sample filename need some name; derive
		// a stable one from the URL.
		opt.Name = httpds.SafeFilenameFromURL(opt.URL)
	}
	comma := opt.Delimiter
	if comma == 0 {
		comma = ','
	}

	ctx := context.Background()
	sample, err := httpPeekFn(ctx, opt.URL, opt.MaxBytes, opt.AllowInsecureTLS)
	if err != nil {
		return Result{}, fmt.Errorf("fetch sample: %w", err)
	}
	if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
		sample = sample[:i+1]
	}
	if looksLikeJSON(sample) {
		return Result{}, fmt.Errorf("sample starts with %q; the column probe reads wide CSV, point a jsonl pipeline at this source instead",
			bytes.TrimSpace(sample)[0])
	}

	if opt.SaveSample {
		name := normalizeFieldName(opt.Name) + ".csv"
		if err := writeSample(name, sample); err != nil {
			return Result{}, fmt.Errorf("save sample: %w", err)
		}
	}

	header, recs, skipped, err := newSampleParser(comma).Parse(bytes.NewReader(sample))
	if err != nil {
		return Result{}, fmt.Errorf("parse sample: %w", err)
	}

	var res Result
	var suggested *schemadef.Definition
	if opt.SchemaPath != "" {
		def, err := schemadef.Load(opt.SchemaPath)
		if err != nil {
			return Result{}, err
		}
		res, err = classifyWithSchema(header, recs, def, opt.DatePreference)
		if err != nil {
			return Result{}, err
		}
	} else {
		res = classifyHeuristic(header, recs, opt.DatePreference)
		suggested = suggestDefinition(opt.Name, &res)
		if suggested != nil {
			y, err := yaml.Marshal(suggested)
			if err != nil {
				return Result{}, fmt.Errorf("render suggested schema: %w", err)
			}
			res.SuggestedSchema = string(y)
		}
	}
	res.SampleBytes = len(sample)
	res.SampleRows = len(recs)
	res.SkippedRows = skipped

	if opt.OutputJSON {
		body, err := renderConfig(opt, &res, suggested, comma)
		if err != nil {
			return Result{}, err
		}
		res.Body = body
	} else {
		res.Body = renderText(&res)
	}
	return res, nil
}

// looksLikeJSON reports whether the sample opens like a JSON document. Wide
// input is CSV; catching jsonl here beats classifying braces as columns.
func looksLikeJSON(sample []byte) bool {
	s := bytes.TrimSpace(sample)
	return len(s) > 0 && (s[0] == '{' || s[0] == '[')
}

// DecodeDelimiter converts a user-supplied string into a single-rune CSV
// delimiter, defaulting to ','.
func DecodeDelimiter(s string) rune {
	if s == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// renderText produces the plain classification summary: one
// header,match,role line per column, then the period, value, path, and
// missing-component notes.
func renderText(res *Result) []byte {
	var buf bytes.Buffer
	for _, c := range res.Columns {
		name := c.Matched
		if name == "" {
			name = c.Folded
		}
		fmt.Fprintf(&buf, "%s,%s,%s\n", c.Header, name, c.Role)
	}

	buf.WriteByte('\n')
	if res.PeriodKind != "" {
		n := 0
		for _, c := range res.Columns {
			if c.Role == RoleVaryingLabel {
				n++
			}
		}
		fmt.Fprintf(&buf, "periods: %s (%d columns)", res.PeriodKind, n)
		if res.PeriodLayout != "" {
			fmt.Fprintf(&buf, " layout %s", res.PeriodLayout)
		}
		buf.WriteByte('\n')
	}
	if res.ValueCells > 0 {
		fmt.Fprintf(&buf, "values: %d/%d numeric\n", res.NumericCells, res.ValueCells)
	}
	if len(res.Paths) > 0 {
		fmt.Fprintf(&buf, "paths: %d distinct (%q)\n", len(res.Paths), res.PathDelimiter)
		for i, pc := range res.Paths {
			if i == topPaths {
				fmt.Fprintf(&buf, "  ... %d more\n", len(res.Paths)-topPaths)
				break
			}
			if res.PathsChecked && !pc.Known {
				fmt.Fprintf(&buf, "  %d %s (not in schema)\n", pc.Count, pc.Path)
				continue
			}
			fmt.Fprintf(&buf, "  %d %s\n", pc.Count, pc.Path)
		}
	}
	for _, id := range res.Missing {
		fmt.Fprintf(&buf, "missing: %s\n", id)
	}
	return buf.Bytes()
}

// renderConfig assembles a runnable starter pipeline from the report and
// pretty-prints it. DSNs and output paths are placeholders the user edits.
func renderConfig(opt Options, res *Result, suggested *schemadef.Definition, comma rune) ([]byte, error) {
	p := starterPipeline(opt, res, suggested, comma)
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render starter config: %w", err)
	}
	return append(b, '\n'), nil
}

// starterPipeline maps the report onto pipeline config defaults: the probed
// source, the schema (given path or inline suggestion), collect-mode
// normalization with the observed numeric policy, a sqlite sink, and a
// pivoted CSV export.
func starterPipeline(opt Options, res *Result, suggested *schemadef.Definition, comma rune) config.Pipeline {
	name := normalizeFieldName(opt.Name)
	job := opt.Job
	if job == "" {
		job = name
	}

	var p config.Pipeline
	p.Name = job

	if path, ok := strings.CutPrefix(opt.URL, "file://"); ok {
		p.Source.Kind = "file"
		p.Source.Options = config.Options{"path": path}
	} else {
		p.Source.Kind = "http"
		p.Source.Options = config.Options{"url": opt.URL}
		if opt.AllowInsecureTLS {
			p.Source.Options["insecure_skip_verify"] = true
		}
	}

	p.Parser.Kind = "csv"
	p.Parser.Options = config.Options{"trim_space": true}
	if comma != ',' {
		p.Parser.Options["comma"] = string(comma)
	}
	fold, hmap := headerBridge(res.Columns)
	if len(hmap) > 0 {
		p.Parser.Options["header_map"] = hmap
	}

	if opt.SchemaPath != "" {
		p.Schema.Path = opt.SchemaPath
	} else if suggested != nil {
		p.Schema.Inline = inlineDefinition(suggested)
	}

	p.Normalize.OnError = "collect"
	p.Normalize.FoldHeader = fold
	if res.PathDelimiter != "" && res.PathDelimiter != "|" {
		p.Normalize.Delimiter = res.PathDelimiter
	}
	if res.ValueCells > 0 && res.NumericCells == res.ValueCells {
		p.Normalize.Numeric = "require"
	}

	p.Storage.Kind = "sqlite"
	p.Storage.DB = config.DBConfig{
		DSN:             "file:" + name + ".sqlite?mode=rwc",
		Table:           "observations",
		AutoCreateTable: true,
	}

	p.Export.Format = "csv"
	p.Export.Path = "out/" + name + "_wide.csv"
	p.Export.Pivot = true

	p.Runtime = config.RuntimeConfig{BatchSize: 5000, ChannelBuffer: 1024}
	return p
}

// headerBridge works out how a run should match the sampled headers to
// their component ids. Headers whose lowercase form already equals the id's
// are handled by fold_header; everything else needs an explicit parser
// header_map entry.
func headerBridge(cols []Column) (fold bool, hmap map[string]string) {
	for _, c := range cols {
		if c.Matched == "" || c.Header == c.Matched {
			continue
		}
		if strings.EqualFold(c.Header, c.Matched) {
			fold = true
			continue
		}
		if hmap == nil {
			hmap = make(map[string]string)
		}
		hmap[c.Header] = c.Matched
	}
	return fold, hmap
}

// inlineDefinition converts a definition into the pipeline schema.inline
// shape by round-tripping through its JSON form.
func inlineDefinition(def *schemadef.Definition) config.Options {
	b, err := json.Marshal(def)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return config.Options(m)
}
