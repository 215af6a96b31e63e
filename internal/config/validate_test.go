package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

/*
TestValidatePipeline_MissingName verifies that a missing or empty Name field
produces a SeverityError with path "name".
*/
func TestValidatePipeline_MissingName(t *testing.T) {
	p := Pipeline{
		Name: "", // missing/empty
		Source: Source{
			Kind:    "file",
			Options: Options{"path": "input.csv"},
		},
		Parser: Parser{Kind: "csv"},
		Schema: Schema{Path: "schema.yaml"},
		Storage: Storage{
			Kind: "postgres",
			DB: DBConfig{
				DSN:   "postgres://user@localhost/db",
				Table: "public.observations",
			},
		},
	}

	issues := ValidatePipeline(p)

	if !hasIssue(t, issues, SeverityError, "name", "name must not be empty") {
		t.Fatalf("expected SeverityError for name; got issues: %+v", issues)
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline produces
no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	p := Pipeline{
		Name: "test-run",
		Source: Source{
			Kind:    "file",
			Options: Options{"path": "input.csv"},
		},
		Parser: Parser{Kind: "csv"},
		Schema: Schema{Path: "schema.yaml"},
		Normalize: Normalize{
			Numeric:    "require",
			EmptyCells: "skip",
			OnError:    "collect",
			Merge:      true,
		},
		Storage: Storage{
			Kind: "postgres",
			DB: DBConfig{
				DSN:   "postgres://user@localhost/db",
				Table: "public.observations",
			},
		},
		Export: Export{
			Format: "csv",
			Path:   "out.csv",
			Pivot:  true,
		},
		Runtime: RuntimeConfig{
			NormalizeWorkers: 2,
			LoaderWorkers:    1,
			BatchSize:        100,
			ChannelBuffer:    0,
		},
	}

	issues := ValidatePipeline(p)
	if len(issues) != 0 {
		t.Fatalf("expected no issues for valid pipeline; got: %+v", issues)
	}
}

/*
TestValidatePipeline_NoSink warns when neither storage nor export is
configured; the run would only produce logs.
*/
func TestValidatePipeline_NoSink(t *testing.T) {
	p := Pipeline{
		Name:   "dry",
		Source: Source{Kind: "file", Options: Options{"path": "input.csv"}},
		Parser: Parser{Kind: "csv"},
		Schema: Schema{Path: "schema.yaml"},
	}

	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityWarning, "pipeline", "neither storage nor export") {
		t.Fatalf("expected no-sink warning; got %+v", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("did not expect errors; got %+v", issues)
	}
}

/*
TestValidateSource_Cases exercises validateSource with missing kind, unknown
kind, and kind-specific checks for file and http sources.
*/
func TestValidateSource_Cases(t *testing.T) {
	t.Run("missing_kind", func(t *testing.T) {
		s := Source{}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityError, "source.kind", "must not be empty") {
			t.Fatalf("expected error for empty source.kind; got %+v", issues)
		}
	})

	t.Run("unknown_kind", func(t *testing.T) {
		s := Source{Kind: "weird"}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityWarning, "source.kind", "unknown source kind") {
			t.Fatalf("expected warning for unknown source.kind; got %+v", issues)
		}
	})

	t.Run("file_missing_path", func(t *testing.T) {
		s := Source{Kind: "file", Options: Options{"path": "  "}}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityError, "source.options.path", "non-empty path") {
			t.Fatalf("expected error for empty file path; got %+v", issues)
		}
	})

	t.Run("file_ok", func(t *testing.T) {
		s := Source{Kind: "file", Options: Options{"path": "data.csv"}}
		issues := validateSource(s)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})

	t.Run("http_missing_url", func(t *testing.T) {
		s := Source{Kind: "http", Options: Options{}}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityError, "source.options.url", "non-empty url") {
			t.Fatalf("expected error for empty http url; got %+v", issues)
		}
	})

	t.Run("http_insecure_warns", func(t *testing.T) {
		s := Source{Kind: "http", Options: Options{
			"url":                  "https://example.com/data.csv",
			"insecure_skip_verify": true,
		}}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityWarning, "source.options.insecure_skip_verify", "verification is disabled") {
			t.Fatalf("expected warning for insecure_skip_verify; got %+v", issues)
		}
	})

	t.Run("list_missing_path", func(t *testing.T) {
		s := Source{Kind: "list", Options: Options{}}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityError, "source.options.path", "manifest path") {
			t.Fatalf("expected error for empty manifest path; got %+v", issues)
		}
	})

	t.Run("list_ok", func(t *testing.T) {
		s := Source{Kind: "list", Options: Options{"path": "parts.list"}}
		issues := validateSource(s)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})

	t.Run("list_insecure_warns", func(t *testing.T) {
		s := Source{Kind: "list", Options: Options{
			"path":                 "parts.list",
			"insecure_skip_verify": true,
		}}
		issues := validateSource(s)
		if !hasIssue(t, issues, SeverityWarning, "source.options.insecure_skip_verify", "verification is disabled") {
			t.Fatalf("expected warning for insecure_skip_verify; got %+v", issues)
		}
	})
}

/*
TestValidateParser_Cases exercises validateParser for empty kind, unknown kind,
and csv-specific option checks.
*/
func TestValidateParser_Cases(t *testing.T) {
	t.Run("missing_kind", func(t *testing.T) {
		p := Parser{}
		issues := validateParser(p)
		if !hasIssue(t, issues, SeverityError, "parser.kind", "must not be empty") {
			t.Fatalf("expected error for empty parser.kind; got %+v", issues)
		}
	})

	t.Run("unknown_kind", func(t *testing.T) {
		p := Parser{Kind: "weird"}
		issues := validateParser(p)
		if !hasIssue(t, issues, SeverityWarning, "parser.kind", "unknown parser kind") {
			t.Fatalf("expected warning for unknown parser.kind; got %+v", issues)
		}
	})

	t.Run("csv_multichar_comma", func(t *testing.T) {
		p := Parser{Kind: "csv", Options: Options{"comma": ",,"}}
		issues := validateParser(p)
		if !hasIssue(t, issues, SeverityError, "parser.options.comma", "single character") {
			t.Fatalf("expected error for multi-char comma; got %+v", issues)
		}
	})

	t.Run("csv_ok", func(t *testing.T) {
		p := Parser{Kind: "csv", Options: Options{"comma": ";"}}
		issues := validateParser(p)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})

	t.Run("jsonl_ok", func(t *testing.T) {
		p := Parser{Kind: "jsonl"}
		issues := validateParser(p)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})
}

/*
TestValidateSchema_Cases checks the path/inline exclusivity rules.
*/
func TestValidateSchema_Cases(t *testing.T) {
	t.Run("neither", func(t *testing.T) {
		issues := validateSchema(Schema{})
		if !hasIssue(t, issues, SeverityError, "schema", "either schema.path or schema.inline") {
			t.Fatalf("expected error for empty schema; got %+v", issues)
		}
	})

	t.Run("both", func(t *testing.T) {
		s := Schema{Path: "x.yaml", Inline: Options{"dimensions": []any{}}}
		issues := validateSchema(s)
		if !hasIssue(t, issues, SeverityError, "schema", "mutually exclusive") {
			t.Fatalf("expected error for path+inline; got %+v", issues)
		}
	})

	t.Run("path_only", func(t *testing.T) {
		issues := validateSchema(Schema{Path: "x.yaml"})
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})

	t.Run("inline_only", func(t *testing.T) {
		issues := validateSchema(Schema{Inline: Options{"dimensions": []any{}}})
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})
}

/*
TestValidateNormalize_Cases checks mode enumerations, delimiter shape, and the
trust_attributes/merge interaction.
*/
func TestValidateNormalize_Cases(t *testing.T) {
	t.Run("zero_value_ok", func(t *testing.T) {
		issues := validateNormalize(Normalize{})
		if len(issues) != 0 {
			t.Fatalf("expected no issues for zero value; got %+v", issues)
		}
	})

	t.Run("unknown_modes", func(t *testing.T) {
		n := Normalize{Numeric: "strict", EmptyCells: "drop", OnError: "panic"}
		issues := validateNormalize(n)
		if !hasIssue(t, issues, SeverityError, "normalize.numeric", "unknown mode") {
			t.Fatalf("expected error for numeric mode; got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "normalize.empty_cells", "unknown mode") {
			t.Fatalf("expected error for empty_cells mode; got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "normalize.on_error", "unknown mode") {
			t.Fatalf("expected error for on_error mode; got %+v", issues)
		}
	})

	t.Run("multichar_delimiter", func(t *testing.T) {
		issues := validateNormalize(Normalize{Delimiter: "||"})
		if !hasIssue(t, issues, SeverityError, "normalize.delimiter", "single character") {
			t.Fatalf("expected error for multi-char delimiter; got %+v", issues)
		}
	})

	t.Run("negative_max_errors", func(t *testing.T) {
		issues := validateNormalize(Normalize{MaxErrors: -1})
		if !hasIssue(t, issues, SeverityError, "normalize.max_errors", "negative") {
			t.Fatalf("expected error for negative max_errors; got %+v", issues)
		}
	})

	t.Run("trust_without_merge", func(t *testing.T) {
		issues := validateNormalize(Normalize{TrustAttributes: true})
		if !hasIssue(t, issues, SeverityWarning, "normalize.trust_attributes", "no effect") {
			t.Fatalf("expected warning for trust_attributes without merge; got %+v", issues)
		}
	})
}

/*
TestValidateStorage_Cases checks that an empty kind disables the stage quietly
and that configured backends require DSN and table.
*/
func TestValidateStorage_Cases(t *testing.T) {
	t.Run("empty_kind_disables", func(t *testing.T) {
		issues := validateStorage(Storage{})
		if len(issues) != 0 {
			t.Fatalf("expected no issues for disabled storage; got %+v", issues)
		}
	})

	t.Run("unknown_kind", func(t *testing.T) {
		s := Storage{Kind: "weird", DB: DBConfig{DSN: "x", Table: "t"}}
		issues := validateStorage(s)
		if !hasIssue(t, issues, SeverityWarning, "storage.kind", "unknown storage kind") {
			t.Fatalf("expected warning for unknown storage.kind; got %+v", issues)
		}
	})

	t.Run("missing_dsn_table", func(t *testing.T) {
		s := Storage{Kind: "postgres", DB: DBConfig{}}
		issues := validateStorage(s)
		if !hasIssue(t, issues, SeverityError, "storage.db.dsn", "must not be empty") {
			t.Fatalf("expected error for empty dsn; got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "storage.db.table", "must not be empty") {
			t.Fatalf("expected error for empty table; got %+v", issues)
		}
	})

	t.Run("valid_storage", func(t *testing.T) {
		s := Storage{
			Kind: "sqlite",
			DB: DBConfig{
				DSN:             "file:obs.db",
				Table:           "observations",
				AutoCreateTable: true,
			},
		}
		issues := validateStorage(s)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})
}

/*
TestValidateExport_Cases checks format enumeration, pivot applicability, and
filter pairing.
*/
func TestValidateExport_Cases(t *testing.T) {
	t.Run("empty_format_quiet", func(t *testing.T) {
		issues := validateExport(Export{})
		if len(issues) != 0 {
			t.Fatalf("expected no issues for disabled export; got %+v", issues)
		}
	})

	t.Run("empty_format_with_settings_warns", func(t *testing.T) {
		issues := validateExport(Export{Path: "out.csv"})
		if !hasIssue(t, issues, SeverityWarning, "export.format", "ignored") {
			t.Fatalf("expected warning for leftover settings; got %+v", issues)
		}
	})

	t.Run("unknown_format", func(t *testing.T) {
		issues := validateExport(Export{Format: "parquet"})
		if !hasIssue(t, issues, SeverityError, "export.format", "unknown export format") {
			t.Fatalf("expected error for unknown format; got %+v", issues)
		}
	})

	t.Run("pivot_non_csv_warns", func(t *testing.T) {
		issues := validateExport(Export{Format: "json", Pivot: true})
		if !hasIssue(t, issues, SeverityWarning, "export.pivot", "only the csv format") {
			t.Fatalf("expected warning for pivot+json; got %+v", issues)
		}
	})

	t.Run("half_filter", func(t *testing.T) {
		issues := validateExport(Export{Format: "csv", Filter: ExportFilter{Dimension: "REGION"}})
		if !hasIssue(t, issues, SeverityError, "export.filter", "set together") {
			t.Fatalf("expected error for half-set filter; got %+v", issues)
		}
	})

	t.Run("full_filter_ok", func(t *testing.T) {
		e := Export{Format: "xml", Filter: ExportFilter{Dimension: "REGION", Value: "World"}}
		issues := validateExport(e)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})
}

/*
TestValidateRuntime_Cases checks RuntimeConfig for negative worker counts,
batch sizes, and channel buffers. Zero means "use defaults" and is fine.
*/
func TestValidateRuntime_Cases(t *testing.T) {
	t.Run("negatives", func(t *testing.T) {
		r := RuntimeConfig{
			NormalizeWorkers: -1,
			LoaderWorkers:    -3,
			BatchSize:        -10,
			ChannelBuffer:    -4,
		}
		issues := validateRuntime(r)

		if !hasIssue(t, issues, SeverityError, "runtime.normalize_workers", "must not be negative") {
			t.Fatalf("expected error for negative normalize_workers; got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "runtime.loader_workers", "must not be negative") {
			t.Fatalf("expected error for negative loader_workers; got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "runtime.batch_size", "must not be negative") {
			t.Fatalf("expected error for negative batch_size; got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "runtime.channel_buffer", "must not be negative") {
			t.Fatalf("expected error for negative channel_buffer; got %+v", issues)
		}
	})

	t.Run("zero_is_defaults", func(t *testing.T) {
		issues := validateRuntime(RuntimeConfig{})
		if len(issues) != 0 {
			t.Fatalf("expected no issues for zero runtime; got %+v", issues)
		}
	})

	t.Run("valid_runtime", func(t *testing.T) {
		r := RuntimeConfig{
			NormalizeWorkers: 2,
			LoaderWorkers:    2,
			BatchSize:        1000,
			ChannelBuffer:    128,
		}
		issues := validateRuntime(r)
		if len(issues) != 0 {
			t.Fatalf("expected no issues; got %+v", issues)
		}
	})
}
