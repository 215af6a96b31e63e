// Package config provides configuration models and helpers for wideform
// pipelines.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "normalize.numeric"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the list carries SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not. It never
// touches the filesystem or network; existence of referenced paths is checked
// at run time by the stage that opens them.
//
// Example:
//
//	var p config.Pipeline
//	if err := json.NewDecoder(r).Decode(&p); err != nil { ... }
//	issues := config.ValidatePipeline(p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	// Top-level pipeline checks.
	if strings.TrimSpace(p.Name) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "name",
			Message:  "name must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateSchema(p.Schema)...)
	issues = append(issues, validateNormalize(p.Normalize)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateExport(p.Export)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	if p.Storage.Kind == "" && p.Export.Format == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "pipeline",
			Message:  "neither storage nor export is configured; the run will produce only logs and metrics",
		})
	}

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	// Kind is required.
	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	// Known source kinds. Unknown kinds are warnings (for forward compatibility).
	known := map[string]struct{}{
		"file": {},
		"http": {},
		"list": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	// Kind-specific checks.
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.Options.String("path", "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.options.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		if strings.TrimSpace(s.Options.String("url", "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.options.url",
				Message:  "http source requires a non-empty url",
			})
		}
	case "list":
		if strings.TrimSpace(s.Options.String("path", "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.options.path",
				Message:  "list source requires a non-empty manifest path",
			})
		}
	}

	// Listed URLs are fetched with the same client settings as the http kind.
	if s.Kind == "http" || s.Kind == "list" {
		if s.Options.Bool("insecure_skip_verify", false) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.options.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
	}

	return issues
}

// validateParser validates parser configuration.
func validateParser(p Parser) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"csv":   {},
		"jsonl": {},
	}
	if _, ok := known[p.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; ensure a matching implementation exists", p.Kind),
		})
	}

	// Parser-specific sanity checks (kept intentionally light).
	switch p.Kind {
	case "csv":
		if comma := p.Options.String("comma", ","); len([]rune(comma)) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", comma),
			})
		}
	case "jsonl":
		// JSONL records carry their own field names; nothing obvious to check.
	}

	return issues
}

// validateSchema checks that exactly one schema definition location is given.
func validateSchema(s Schema) []Issue {
	var issues []Issue

	hasPath := strings.TrimSpace(s.Path) != ""
	hasInline := len(s.Inline) > 0
	switch {
	case !hasPath && !hasInline:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schema",
			Message:  "either schema.path or schema.inline is required",
		})
	case hasPath && hasInline:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schema",
			Message:  "schema.path and schema.inline are mutually exclusive; set only one",
		})
	}

	return issues
}

// validateNormalize checks the normalization mode enumerations.
func validateNormalize(n Normalize) []Issue {
	var issues []Issue

	checkMode := func(path, got string, allowed ...string) {
		if got == "" {
			return
		}
		for _, a := range allowed {
			if got == a {
				return
			}
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path,
			Message:  fmt.Sprintf("unknown mode %q (allowed: %s)", got, strings.Join(allowed, ", ")),
		})
	}

	checkMode("normalize.numeric", n.Numeric, "keep", "require", "skip")
	checkMode("normalize.empty_cells", n.EmptyCells, "skip", "keep", "error")
	checkMode("normalize.on_error", n.OnError, "fail", "collect")

	if len([]rune(n.Delimiter)) > 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "normalize.delimiter",
			Message:  fmt.Sprintf("delimiter must be a single character, got %q", n.Delimiter),
		})
	}
	if n.MaxErrors < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "normalize.max_errors",
			Message:  "max_errors must not be negative",
		})
	}
	if n.TrustAttributes && !n.Merge {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "normalize.trust_attributes",
			Message:  "trust_attributes has no effect unless normalize.merge is enabled",
		})
	}

	return issues
}

// validateStorage validates storage configuration and DB settings. An empty
// kind disables the storage stage and raises no issues by itself.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	// DB-specific checks (shared across backends).
	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}

	return issues
}

// validateExport validates export configuration. An empty format disables the
// export stage; leftover settings are then surfaced as warnings.
func validateExport(e Export) []Issue {
	var issues []Issue

	if e.Format == "" {
		if e.Path != "" || e.Pivot {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "export.format",
				Message:  "format is empty; other export settings are ignored",
			})
		}
		// Filter consistency is still worth checking so a typo does not hide
		// once export is switched on.
	} else {
		known := map[string]struct{}{
			"csv":  {},
			"json": {},
			"xml":  {},
		}
		if _, ok := known[e.Format]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "export.format",
				Message:  fmt.Sprintf("unknown export format %q (allowed: csv, json, xml)", e.Format),
			})
		}
		if e.Pivot && e.Format != "csv" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "export.pivot",
				Message:  fmt.Sprintf("only the csv format pivots; pivot is ignored for %q", e.Format),
			})
		}
	}

	if (e.Filter.Dimension == "") != (e.Filter.Value == "") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "export.filter",
			Message:  "filter.dimension and filter.value must be set together",
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, zero-sized batches, etc.).
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.NormalizeWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.normalize_workers",
			Message:  "normalize_workers must not be negative",
		})
	}
	if r.LoaderWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.loader_workers",
			Message:  "loader_workers must not be negative",
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}

	return issues
}
