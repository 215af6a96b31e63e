// Package main wires the wideform pipeline end-to-end: open the source,
// stream wide rows through the normalizer into a dataset builder, then
// export the finalized dataset and/or load its flattened observations into
// the configured storage backend. This file keeps the CLI layer thin: it
// depends only on storage-agnostic interfaces and never imports database
// drivers or backend-specific packages directly.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wideform/internal/config"
	"wideform/internal/datasource"
	"wideform/internal/datasource/file"
	"wideform/internal/datasource/httpds"
	"wideform/internal/export"
	"wideform/internal/metrics"
	"wideform/internal/normalize"
	"wideform/internal/parser"
	csvparser "wideform/internal/parser/csv"
	"wideform/internal/parser/jsonl"
	"wideform/internal/schemadef"
	"wideform/internal/sdmx"
	"wideform/internal/storage"
)

// errSamples bounds the parse-error messages echoed in the run log; the
// full count is always reported.
const errSamples = 3

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	openSourceFn = openSource

	streamRowsFn = csvparser.StreamRows

	streamRecordsFn = jsonl.StreamRecords
)

// runtimeConfig contains the resolved concurrency and buffering
// configuration for a run. Values are derived from the pipeline config with
// environment variable fallbacks (12-factor style).
type runtimeConfig struct {
	normalizeWorkers int
	loaderWorkers    int
	batchSize        int
	bufferSize       int
}

// newRuntimeConfig resolves each knob: config value when positive,
// otherwise the WIDEFORM_* environment variable, otherwise the default.
func newRuntimeConfig(rc config.RuntimeConfig) runtimeConfig {
	return runtimeConfig{
		normalizeWorkers: pickInt(rc.NormalizeWorkers, getenvInt("WIDEFORM_NORMALIZE_WORKERS", defaultNormalizeWorkers())),
		loaderWorkers:    pickInt(rc.LoaderWorkers, getenvInt("WIDEFORM_LOADER_WORKERS", 1)), // 1 writer per table is usually best
		batchSize:        pickInt(rc.BatchSize, getenvInt("WIDEFORM_BATCH_SIZE", 5000)),
		bufferSize:       pickInt(rc.ChannelBuffer, getenvInt("WIDEFORM_CHANNEL_BUFFER", 1024)),
	}
}

// defaultNormalizeWorkers caps the normalize fan-out at 8; past that the
// reader is the bottleneck.
func defaultNormalizeWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	return n
}

// run executes one full pipeline: schema → normalize → finalize → export →
// load. Stages run sequentially; within a stage, normalization fans rows
// out across a worker pool and loading fans batches out across loader
// workers, with back-pressure via bounded channels in both.
func run(ctx context.Context, p config.Pipeline) error {
	runID := uuid.NewString()
	rt := newRuntimeConfig(p.Runtime)

	log.Printf("run %s: pipeline=%s normalize_workers=%d loader_workers=%d batch=%d buffer=%d",
		runID, p.Name, rt.normalizeWorkers, rt.loaderWorkers, rt.batchSize, rt.bufferSize)

	// Schema: load the definition and seal the structure.
	stepStart := time.Now()
	norm, err := buildNormalizer(p)
	metrics.RecordStep(p.Name, "schema", err, time.Since(stepStart))
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sd := norm.Structure()

	bld := sdmx.NewBuilder(sd, sdmx.BuilderOptions{
		Merge:           p.Normalize.Merge,
		TrustAttributes: p.Normalize.TrustAttributes,
	})

	// Normalize: stream wide rows into the builder.
	stepStart = time.Now()
	stats, rr, err := runNormalize(ctx, p, rt, norm, bld)
	metrics.RecordStep(p.Name, "normalize", err, time.Since(stepStart))
	metrics.RecordRow(p.Name, "read", rr.rows)
	metrics.RecordRow(p.Name, "skipped", rr.skipped)
	metrics.RecordRow(p.Name, "normalized", stats.Rows-stats.Failed)
	metrics.RecordRow(p.Name, "normalize_error", stats.Failed)
	if err != nil {
		return err
	}

	// Finalize: hand the accumulated series out as an immutable dataset.
	stepStart = time.Now()
	ds, err := bld.Finalize()
	metrics.RecordStep(p.Name, "finalize", err, time.Since(stepStart))
	if err != nil {
		return fmt.Errorf("finalize dataset: %w", err)
	}
	merged := bld.Merged()
	metrics.RecordRow(p.Name, "series", int64(ds.Len()))
	metrics.RecordRow(p.Name, "observations", int64(ds.Obs()))
	metrics.RecordRow(p.Name, "merged", int64(merged))

	// Export: presentation output from the finalized dataset.
	if p.Export.Format != "" {
		stepStart = time.Now()
		err = runExport(ds, p.Export)
		metrics.RecordStep(p.Name, "export", err, time.Since(stepStart))
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	// Load: flatten observations into the storage backend.
	var inserted, batches int64
	if p.Storage.Kind != "" {
		stepStart = time.Now()
		inserted, batches, err = runLoad(ctx, p, ds, rt)
		metrics.RecordStep(p.Name, "load", err, time.Since(stepStart))
		metrics.RecordRow(p.Name, "inserted", inserted)
		metrics.RecordBatches(p.Name, batches)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}

	logRunSummary(runID, rr, stats, ds, merged, inserted, batches, norm.SkippedCells())
	return nil
}

// buildNormalizer loads the schema definition, builds the code hierarchy
// and sealed structure, and wraps them in a row normalizer.
func buildNormalizer(p config.Pipeline) (*normalize.Normalizer, error) {
	def, err := schemadef.FromConfig(p.Schema)
	if err != nil {
		return nil, err
	}
	_, _, sd, err := def.Build()
	if err != nil {
		return nil, err
	}
	return normalize.New(sd, normalizeOptions(p.Normalize))
}

// readResult carries the reader goroutine's outcome: rows emitted, rows
// skipped before normalization (ragged lines, bad records), and the fatal
// reader error if any.
type readResult struct {
	rows    int64
	skipped int64
	err     error
}

// runNormalize streams the source through the configured parser into the
// normalize worker pool, which feeds the sink. The reader runs in its own
// goroutine; row-scoped parse failures are aggregated and do not stop the
// stream. A normalization error cancels the reader and drains the channel
// so pooled rows are freed.
func runNormalize(ctx context.Context, p config.Pipeline, rt runtimeConfig, norm *normalize.Normalizer, sink normalize.GroupSink) (normalize.StreamStats, readResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	parseAgg := newErrAgg(errSamples)
	onParseErr := func(line int, err error) {
		if err == nil {
			return
		}
		parseAgg.add(fmt.Sprintf("line=%d: %v", line, err))
	}

	streamOpt := normalize.StreamOptions{
		Workers:   rt.normalizeWorkers,
		Collect:   p.Normalize.OnError == "collect",
		MaxErrors: p.Normalize.MaxErrors,
	}

	done := make(chan readResult, 1)
	var (
		stats normalize.StreamStats
		serr  error
	)

	switch p.Parser.Kind {
	case "csv":
		rowCh := make(chan *parser.Row, rt.bufferSize)
		planCh := make(chan *normalize.Plan, 1)

		go func() {
			defer close(rowCh)
			defer close(planCh)

			src, err := openSourceFn(ctx, p)
			if err != nil {
				done <- readResult{err: fmt.Errorf("open source: %w", err)}
				return
			}
			defer src.Close()

			onHeader := func(header []string) error {
				plan, err := norm.Plan(header)
				if err != nil {
					return fmt.Errorf("compile header: %w", err)
				}
				planCh <- plan
				return nil
			}

			rows, skipped, err := streamRowsFn(ctx, src, csvOptions(p.Parser.Options), onHeader, rowCh, onParseErr)
			done <- readResult{rows: rows, skipped: skipped, err: err}
		}()

		// planCh closes without a value when the source or header fails;
		// the reader error surfaces through done below.
		if plan := <-planCh; plan != nil {
			stats, serr = normalize.Stream(ctx, rowCh, plan, sink, streamOpt)
		}
		if serr != nil {
			cancel()
		}
		for row := range rowCh {
			row.Free()
		}

	case "jsonl":
		objCh := make(chan parser.Object, rt.bufferSize)

		go func() {
			defer close(objCh)

			src, err := openSourceFn(ctx, p)
			if err != nil {
				done <- readResult{err: fmt.Errorf("open source: %w", err)}
				return
			}
			defer src.Close()

			records, skipped, err := streamRecordsFn(ctx, src, jsonlOptions(p.Parser.Options), objCh, onParseErr)
			done <- readResult{rows: records, skipped: skipped, err: err}
		}()

		stats, serr = normalize.StreamObjects(ctx, objCh, norm, sink, streamOpt)
		if serr != nil {
			cancel()
		}
		for range objCh {
		}

	default:
		return normalize.StreamStats{}, readResult{}, fmt.Errorf("unsupported parser.kind=%s", p.Parser.Kind)
	}

	rr := <-done

	if parseAgg.count > 0 {
		log.Printf("parse errors: %d (showing first %d)", parseAgg.count, len(parseAgg.first))
		for i, s := range parseAgg.first {
			log.Printf("  #%03d: %s", i+1, s)
		}
	}
	if stats.Failed > 0 {
		log.Printf("rows failed normalization: %d (showing first %d)", stats.Failed, len(stats.Failures))
		for i, re := range stats.Failures {
			log.Printf("  #%03d: %v", i+1, re)
		}
	}

	// A normalization failure is the primary error even when cancellation
	// also surfaced through the reader.
	if serr != nil {
		return stats, rr, fmt.Errorf("normalize: %w", serr)
	}
	if rr.err != nil {
		return stats, rr, fmt.Errorf("read %s: %w", p.Source.Kind, rr.err)
	}
	return stats, rr, nil
}

// openSource opens the configured byte source.
func openSource(ctx context.Context, p config.Pipeline) (io.ReadCloser, error) {
	switch p.Source.Kind {
	case "file":
		return file.NewLocal(p.Source.Options.String("path", "")).Open(ctx)

	case "http":
		url := p.Source.Options.String("url", "")
		return httpds.NewRemote(url, newSourceClient(p.Source.Options)).Open(ctx)

	case "list":
		return openListSource(ctx, p.Source.Options)

	default:
		return nil, fmt.Errorf("unsupported source.kind=%s", p.Source.Kind)
	}
}

// newSourceClient builds the HTTP client shared by the http and list source
// kinds.
func newSourceClient(o config.Options) *httpds.Client {
	return httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(o.Int("timeout_seconds", 0)) * time.Second,
		InsecureSkipVerify: o.Bool("insecure_skip_verify", false),
	})
}

// openListSource reads a manifest of entries (one per line, '#' comments)
// and concatenates them into a single stream. Entries starting with http://
// or https:// are fetched; everything else is opened from the local
// filesystem, relative to the working directory like the file kind's path.
// Every entry must carry the same header row; all but the first header are
// dropped unless drop_headers is false.
func openListSource(ctx context.Context, o config.Options) (io.ReadCloser, error) {
	manifest := o.String("path", "")
	entries, err := file.ReadList(manifest)
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", manifest, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("list %s: no entries", manifest)
	}

	client := newSourceClient(o)
	sources := make([]datasource.Source, len(entries))
	for i, e := range entries {
		if strings.HasPrefix(e, "http://") || strings.HasPrefix(e, "https://") {
			sources[i] = httpds.NewRemote(e, client)
		} else {
			sources[i] = file.NewLocal(e)
		}
	}
	return datasource.Concat(o.Bool("drop_headers", true), sources...).Open(ctx)
}

// csvOptions maps parser configuration onto the CSV reader options.
func csvOptions(o config.Options) csvparser.Options {
	return csvparser.Options{
		Comma:      o.Rune("comma", ','),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HeaderMap:  o.StringMap("header_map"),
		FoldHeader: o.Bool("fold_header", false),
	}
}

// jsonlOptions maps parser configuration onto the JSON-lines reader options.
func jsonlOptions(o config.Options) jsonl.Options {
	return jsonl.Options{
		HeaderMap:    o.StringMap("header_map"),
		MaxLineBytes: o.Int("max_line_bytes", 0),
	}
}

// normalizeOptions maps the normalize config block onto normalizer options.
// Zero values fall through to the normalizer defaults.
func normalizeOptions(n config.Normalize) normalize.Options {
	opt := normalize.Options{
		Numeric:    normalize.Policy(n.Numeric),
		EmptyCells: normalize.CellMode(n.EmptyCells),
		FoldHeader: n.FoldHeader,
	}
	if n.Delimiter != "" {
		opt.Delimiter = []rune(n.Delimiter)[0]
	}
	return opt
}

// numericValues reports whether the value column can be typed numeric: both
// the "require" and "skip" policies guarantee every stored cell parsed as a
// number.
func numericValues(n config.Normalize) bool {
	switch normalize.Policy(n.Numeric) {
	case normalize.NumericRequire, normalize.NumericSkip:
		return true
	}
	return false
}

// runLoad flattens the dataset into the observation table. One goroutine
// streams rows; loaderWorkers workers batch and COPY them concurrently. Any
// fatal COPY error cancels the group, which unblocks the producer.
func runLoad(ctx context.Context, p config.Pipeline, ds *sdmx.DataSet, rt runtimeConfig) (inserted, batches int64, err error) {
	sd := ds.Structure
	columns := storage.ObservationColumns(sd)
	numeric := numericValues(p.Normalize)

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:       p.Storage.Kind,
		DSN:        p.Storage.DB.DSN,
		Table:      p.Storage.DB.Table,
		Columns:    columns,
		KeyColumns: storage.KeyColumns(sd),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if p.Storage.DB.AutoCreateTable {
		td, err := storage.FromStructure(sd, p.Storage.DB.Table, numeric)
		if err != nil {
			return 0, 0, err
		}
		if err := storage.EnsureTable(ctx, p.Storage.Kind, repo, td); err != nil {
			return 0, 0, fmt.Errorf("apply DDL: %w", err)
		}
	}

	var nBatches atomic.Int64
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, cols, rows)
		if err == nil {
			nBatches.Add(1)
		}
		return n, err
	}

	obsCh := make(chan []any, rt.bufferSize)
	var (
		sent  int64
		total atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(obsCh)
		n, err := storage.StreamObservations(gctx, ds, numeric, obsCh)
		sent = n
		if err != nil {
			return fmt.Errorf("stream observations: %w", err)
		}
		return nil
	})
	for i := 0; i < rt.loaderWorkers; i++ {
		g.Go(func() error {
			n, err := storage.LoadBatches(gctx, columns, obsCh, rt.batchSize, copyFn)
			total.Add(n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return total.Load(), nBatches.Load(), err
	}

	inserted = total.Load()
	if sent != inserted {
		log.Printf("WARNING: observation accounting mismatch: streamed=%d inserted=%d", sent, inserted)
	}
	return inserted, nBatches.Load(), nil
}

// runExport writes the presentation output for the finalized dataset.
func runExport(ds *sdmx.DataSet, e config.Export) error {
	if e.Filter.Dimension != "" {
		filtered, err := export.Filter(ds, e.Filter.Dimension, e.Filter.Value)
		if err != nil {
			return err
		}
		ds = filtered
	}

	w, closeFn, err := exportWriter(e.Path)
	if err != nil {
		return err
	}

	var werr error
	switch e.Format {
	case "csv":
		var t *export.Table
		if e.Pivot {
			t, werr = export.Pivot(ds)
		} else {
			t, werr = export.Long(ds)
		}
		if werr == nil {
			werr = export.WriteCSV(w, t)
		}
	case "json":
		werr = export.WriteJSON(w, ds)
	case "xml":
		werr = export.WriteXML(w, ds)
	default:
		werr = fmt.Errorf("unsupported export.format=%s", e.Format)
	}

	cerr := closeFn()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("close export file: %w", cerr)
	}
	return nil
}

// exportWriter opens the export destination. "-" or empty means stdout,
// which is not closed.
func exportWriter(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// logRunSummary prints the end-of-run accounting.
//
// Invariant for data rows (header excluded):
//
//	read == normalized + failed
//
// skipped counts lines the reader dropped before normalization (ragged
// rows, undecodable records); they are not part of read.
func logRunSummary(runID string, rr readResult, stats normalize.StreamStats, ds *sdmx.DataSet, merged int, inserted, batches int64, skippedCells int64) {
	log.Printf(
		"run %s summary: read=%s skipped=%d normalized=%s failed=%d series=%s observations=%s merged=%d skipped_cells=%d inserted=%s batches=%d",
		runID,
		humanize.Comma(rr.rows),
		rr.skipped,
		humanize.Comma(stats.Rows-stats.Failed),
		stats.Failed,
		humanize.Comma(int64(ds.Len())),
		humanize.Comma(int64(ds.Obs())),
		merged,
		skippedCells,
		humanize.Comma(inserted),
		batches,
	)

	if stats.Rows != rr.rows {
		log.Printf(
			"WARNING: row accounting mismatch: read=%d entered_normalize=%d (delta=%d)",
			rr.rows, stats.Rows, rr.rows-stats.Rows,
		)
	}
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg aggregates row-scoped error messages: total count, per-message
// buckets, and the first limit samples.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	a.buckets[msg]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}
