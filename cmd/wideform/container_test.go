package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"wideform/internal/config"
	"wideform/internal/normalize"
)

/*
Unit tests for the small, pure helpers and thin adapters in container.go.

We cover:
  - openSource: file, http, and list happy paths + non-200 + bad manifests +
    unsupported kind
  - getenvInt / pickInt: env parsing and defaulting
  - newRuntimeConfig / defaultNormalizeWorkers: precedence and caps
  - csvOptions / jsonlOptions / normalizeOptions / numericValues: mapping
  - buildNormalizer: inline schema → sealed structure
  - exportWriter: stdout sentinel and directory creation
  - errAgg: capped aggregation semantics (limit, first N, total count)

run itself is exercised end-to-end in container_e2e_test.go.
*/

func TestOpenSource_Kinds(t *testing.T) {
	t.Parallel()

	tmpdir := t.TempDir()
	p := filepath.Join(tmpdir, "data.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/part3":
			io.WriteString(w, "h1,h2\nr3,3\n")
		default:
			io.WriteString(w, "from http")
		}
	}))
	defer srv.Close()

	// List fixtures: two local parts plus one remote, all with the same
	// header row.
	part1 := filepath.Join(tmpdir, "part1.csv")
	part2 := filepath.Join(tmpdir, "part2.csv")
	if err := os.WriteFile(part1, []byte("h1,h2\nr1,1\n"), 0o644); err != nil {
		t.Fatalf("write part1: %v", err)
	}
	if err := os.WriteFile(part2, []byte("h1,h2\nr2,2\n"), 0o644); err != nil {
		t.Fatalf("write part2: %v", err)
	}
	manifest := filepath.Join(tmpdir, "parts.list")
	manifestBody := "# demo parts\n" + part1 + "\n\n" + part2 + "\n" + srv.URL + "/part3\n"
	if err := os.WriteFile(manifest, []byte(manifestBody), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	emptyManifest := filepath.Join(tmpdir, "empty.list")
	if err := os.WriteFile(emptyManifest, []byte("# nothing here\n\n"), 0o644); err != nil {
		t.Fatalf("write empty manifest: %v", err)
	}

	type tc struct {
		name      string
		pipeline  config.Pipeline
		wantBody  string
		wantError string // substring
	}
	cases := []tc{
		{
			name: "file_ok",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "file", Options: config.Options{"path": p}},
			},
			wantBody: "hello",
		},
		{
			name: "http_ok",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "http", Options: config.Options{"url": srv.URL + "/data"}},
			},
			wantBody: "from http",
		},
		{
			name: "http_not_found",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "http", Options: config.Options{"url": srv.URL + "/missing"}},
			},
			wantError: "unexpected status",
		},
		{
			name: "list_drops_repeated_headers",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "list", Options: config.Options{"path": manifest}},
			},
			wantBody: "h1,h2\nr1,1\nr2,2\nr3,3\n",
		},
		{
			name: "list_keeps_headers_when_disabled",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "list", Options: config.Options{"path": manifest, "drop_headers": false}},
			},
			wantBody: "h1,h2\nr1,1\nh1,h2\nr2,2\nh1,h2\nr3,3\n",
		},
		{
			name: "list_missing_manifest",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "list", Options: config.Options{"path": filepath.Join(tmpdir, "nope.list")}},
			},
			wantError: "read list",
		},
		{
			name: "list_empty_manifest",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "list", Options: config.Options{"path": emptyManifest}},
			},
			wantError: "no entries",
		},
		{
			name: "unsupported_kind",
			pipeline: config.Pipeline{
				Source: config.Source{Kind: "ftp"},
			},
			wantError: "unsupported source.kind",
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			rc, err := openSource(context.Background(), c.pipeline)
			if c.wantError != "" {
				if err == nil || !strings.Contains(err.Error(), c.wantError) {
					t.Fatalf("want error containing %q, got %v", c.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("openSource: %v", err)
			}
			defer rc.Close()
			b, rerr := io.ReadAll(rc)
			if rerr != nil {
				t.Fatalf("read body: %v", rerr)
			}
			if string(b) != c.wantBody {
				t.Fatalf("body mismatch: got %q want %q", string(b), c.wantBody)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	// Unset -> default
	if got := getenvInt("WIDEFORM_TEST_INT_UNSET", 7); got != 7 {
		t.Fatalf("unset: got %d want 7", got)
	}

	// Invalid -> default
	t.Setenv("WIDEFORM_TEST_INT_BAD", "nope")
	if got := getenvInt("WIDEFORM_TEST_INT_BAD", 9); got != 9 {
		t.Fatalf("bad parse: got %d want 9", got)
	}

	// Valid -> parsed
	t.Setenv("WIDEFORM_TEST_INT_OK", "42")
	if got := getenvInt("WIDEFORM_TEST_INT_OK", 0); got != 42 {
		t.Fatalf("valid: got %d want 42", got)
	}
}

func TestPickInt(t *testing.T) {
	t.Parallel()

	type tc struct{ a, b, want int }
	cases := []tc{
		{a: 5, b: 10, want: 5},
		{a: 0, b: 10, want: 10},
		{a: -3, b: 8, want: 8},
	}
	for _, c := range cases {
		if got := pickInt(c.a, c.b); got != c.want {
			t.Fatalf("pickInt(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestNewRuntimeConfig_PrecedenceAndDefaults(t *testing.T) {
	// Config value wins over env.
	t.Setenv("WIDEFORM_BATCH_SIZE", "111")
	rt := newRuntimeConfig(config.RuntimeConfig{BatchSize: 222})
	if rt.batchSize != 222 {
		t.Fatalf("batchSize=%d want 222 (config over env)", rt.batchSize)
	}

	// Env wins over default.
	rt = newRuntimeConfig(config.RuntimeConfig{})
	if rt.batchSize != 111 {
		t.Fatalf("batchSize=%d want 111 (env over default)", rt.batchSize)
	}

	// Defaults when neither is set.
	os.Unsetenv("WIDEFORM_BATCH_SIZE")
	rt = newRuntimeConfig(config.RuntimeConfig{})
	if rt.batchSize != 5000 {
		t.Fatalf("batchSize=%d want 5000", rt.batchSize)
	}
	if rt.loaderWorkers != 1 {
		t.Fatalf("loaderWorkers=%d want 1", rt.loaderWorkers)
	}
	if rt.bufferSize != 1024 {
		t.Fatalf("bufferSize=%d want 1024", rt.bufferSize)
	}
	if rt.normalizeWorkers != defaultNormalizeWorkers() {
		t.Fatalf("normalizeWorkers=%d want %d", rt.normalizeWorkers, defaultNormalizeWorkers())
	}
}

func TestDefaultNormalizeWorkers_Capped(t *testing.T) {
	t.Parallel()

	n := defaultNormalizeWorkers()
	if n < 1 || n > 8 {
		t.Fatalf("defaultNormalizeWorkers=%d want 1..8", n)
	}
}

func TestCSVOptions(t *testing.T) {
	t.Parallel()

	opt := csvOptions(config.Options{
		"comma":       ";",
		"trim_space":  false,
		"lazy_quotes": true,
		"fold_header": true,
		"header_map":  map[string]any{"Region/Country": "REGION"},
	})
	if opt.Comma != ';' {
		t.Fatalf("Comma=%q want ';'", opt.Comma)
	}
	if opt.TrimSpace {
		t.Fatal("TrimSpace=true want false")
	}
	if !opt.LazyQuotes || !opt.FoldHeader {
		t.Fatalf("LazyQuotes=%v FoldHeader=%v want true/true", opt.LazyQuotes, opt.FoldHeader)
	}
	if opt.HeaderMap["Region/Country"] != "REGION" {
		t.Fatalf("HeaderMap=%v", opt.HeaderMap)
	}

	// Defaults on an empty options map.
	def := csvOptions(config.Options{})
	if def.Comma != ',' || !def.TrimSpace || def.LazyQuotes || def.FoldHeader {
		t.Fatalf("defaults mismatch: %+v", def)
	}
}

func TestJSONLOptions(t *testing.T) {
	t.Parallel()

	opt := jsonlOptions(config.Options{
		"max_line_bytes": float64(2048),
		"header_map":     map[string]any{"model": "MODEL"},
	})
	if opt.MaxLineBytes != 2048 {
		t.Fatalf("MaxLineBytes=%d want 2048", opt.MaxLineBytes)
	}
	if opt.HeaderMap["model"] != "MODEL" {
		t.Fatalf("HeaderMap=%v", opt.HeaderMap)
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	opt := normalizeOptions(config.Normalize{
		Delimiter:  "/",
		Numeric:    "require",
		EmptyCells: "keep",
		FoldHeader: true,
	})
	if opt.Delimiter != '/' {
		t.Fatalf("Delimiter=%q want '/'", opt.Delimiter)
	}
	if opt.Numeric != normalize.NumericRequire {
		t.Fatalf("Numeric=%q want require", opt.Numeric)
	}
	if opt.EmptyCells != normalize.CellsKeep {
		t.Fatalf("EmptyCells=%q want keep", opt.EmptyCells)
	}
	if !opt.FoldHeader {
		t.Fatal("FoldHeader=false want true")
	}

	// Empty config leaves the zero options for the normalizer defaults.
	zero := normalizeOptions(config.Normalize{})
	if zero.Delimiter != 0 || zero.Numeric != "" || zero.EmptyCells != "" {
		t.Fatalf("zero mapping mismatch: %+v", zero)
	}
}

func TestNumericValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		numeric string
		want    bool
	}{
		{"", false},
		{"keep", false},
		{"require", true},
		{"skip", true},
	}
	for _, c := range cases {
		if got := numericValues(config.Normalize{Numeric: c.numeric}); got != c.want {
			t.Fatalf("numericValues(%q)=%v want %v", c.numeric, got, c.want)
		}
	}
}

func TestBuildNormalizer_InlineSchema(t *testing.T) {
	t.Parallel()

	p := config.Pipeline{
		Schema: config.Schema{Inline: config.Options{
			"schema": "iamc",
			"dimensions": []any{
				map[string]any{"id": "MODEL"},
				map[string]any{"id": "VARIABLE", "enumerated": true},
				map[string]any{"id": "YEAR", "varying": true},
			},
			"attributes": []any{map[string]any{"id": "UNIT"}},
			"codes":      []any{"Energy", "Energy|Supply"},
		}},
	}

	norm, err := buildNormalizer(p)
	if err != nil {
		t.Fatalf("buildNormalizer: %v", err)
	}
	sd := norm.Structure()
	if !sd.Sealed() {
		t.Fatal("structure not sealed")
	}
	if got := sd.VaryingDimension(); got != "YEAR" {
		t.Fatalf("varying dimension=%q want YEAR", got)
	}
	var keys []string
	for _, d := range sd.KeyDimensions() {
		keys = append(keys, d.ID)
	}
	if want := []string{"MODEL", "VARIABLE"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("key dimensions=%v want %v", keys, want)
	}
}

func TestBuildNormalizer_NoSchema(t *testing.T) {
	t.Parallel()

	if _, err := buildNormalizer(config.Pipeline{}); err == nil {
		t.Fatal("want error for missing schema definition")
	}
}

func TestExportWriter(t *testing.T) {
	t.Parallel()

	// "" and "-" mean stdout and a nop close.
	for _, path := range []string{"", "-"} {
		w, closeFn, err := exportWriter(path)
		if err != nil {
			t.Fatalf("exportWriter(%q): %v", path, err)
		}
		if w != os.Stdout {
			t.Fatalf("exportWriter(%q) did not return stdout", path)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	// A nested path creates the directory.
	out := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	w, closeFn, err := exportWriter(out)
	if err != nil {
		t.Fatalf("exportWriter(%q): %v", out, err)
	}
	if _, err := io.WriteString(w, "x\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "x\n" {
		t.Fatalf("content=%q want %q", b, "x\n")
	}
}

func TestErrAgg_LimitsAndBuckets(t *testing.T) {
	t.Parallel()

	a := newErrAgg(3) // capture first 3
	msgs := []string{"A", "B", "A", "C", "A", "D"}
	for _, m := range msgs {
		a.add(m)
	}
	// total count
	if a.count != len(msgs) {
		t.Fatalf("count=%d want %d", a.count, len(msgs))
	}
	// first limited
	if len(a.first) != 3 {
		t.Fatalf("first len=%d want 3", len(a.first))
	}
	// buckets
	if a.buckets["A"] != 3 || a.buckets["B"] != 1 || a.buckets["C"] != 1 || a.buckets["D"] != 1 {
		t.Fatalf("buckets=%v", a.buckets)
	}
}

/*
A simple concurrency smoke test for errAgg to ensure it doesn't panic
under parallel adds (lock correctness).
*/
func TestErrAgg_ConcurrentAdds(t *testing.T) {
	t.Parallel()

	a := newErrAgg(2)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.add("msg")
			}
		}()
	}
	wg.Wait()
	if a.count != 16*100 {
		t.Fatalf("count=%d want %d", a.count, 16*100)
	}
	if a.buckets["msg"] != 16*100 {
		t.Fatalf("bucket[msg]=%d want %d", a.buckets["msg"], 16*100)
	}
}
