package normalize

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"wideform/internal/parser"
	"wideform/internal/sdmx"
)

// GroupSink receives normalized groups. *sdmx.Builder is the production
// sink; tests substitute their own.
type GroupSink interface {
	AddGroup(key *sdmx.SeriesKey, obs []sdmx.Observation) error
}

// StreamOptions control the worker pool and the error mode.
type StreamOptions struct {
	// Workers is the normalization goroutine count; NumCPU when <= 0.
	Workers int

	// Collect switches from fail-fast (first row error cancels the stream)
	// to collect mode: row-scoped failures are counted, a bounded sample is
	// retained, and processing continues. Errors outside the row family
	// still abort the stream in either mode.
	Collect bool

	// MaxErrors bounds the failures retained in collect mode; 20 when <= 0.
	// The failure count is never bounded, only the retained sample.
	MaxErrors int
}

// DefaultMaxErrors bounds the retained failure sample when the caller does
// not choose one.
const DefaultMaxErrors = 20

// StreamStats summarize one stream run.
type StreamStats struct {
	Rows         int64
	Groups       int64
	Observations int64
	Failed       int64
	Failures     sdmx.RowErrorList // bounded sample; collect mode only
}

// Stream normalizes pooled CSV rows from rows through plan and feeds the
// sink until the channel closes, the context ends, or (in fail-fast mode) a
// row fails. Rows are freed as they are consumed. The sink serializes
// concurrent AddGroup calls itself; everything the workers read here is
// frozen, so no further locking happens per row.
//
// In collect mode the returned error is nil even when rows failed; callers
// inspect StreamStats.Failed and Failures.
func Stream(ctx context.Context, rows <-chan *parser.Row, plan *Plan, sink GroupSink, opt StreamOptions) (StreamStats, error) {
	c := newCollector(opt)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < c.workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case row, ok := <-rows:
					if !ok {
						return nil
					}
					key, obs, err := plan.Row(row.V, row.Line)
					line := row.Line
					row.Free()
					if cerr := c.consume(sink, key, obs, line, err); cerr != nil {
						return cerr
					}
				}
			}
		})
	}
	err := g.Wait()
	return c.stats(), err
}

// StreamObjects is Stream for line-tagged record objects (the JSON-lines
// path): same pool of workers, same error modes, with Record doing the
// per-object normalization.
func StreamObjects(ctx context.Context, objs <-chan parser.Object, n *Normalizer, sink GroupSink, opt StreamOptions) (StreamStats, error) {
	c := newCollector(opt)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < c.workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case obj, ok := <-objs:
					if !ok {
						return nil
					}
					key, obs, err := n.Record(obj.Fields, obj.Line)
					if cerr := c.consume(sink, key, obs, obj.Line, err); cerr != nil {
						return cerr
					}
				}
			}
		})
	}
	err := g.Wait()
	return c.stats(), err
}

// collector centralizes the accounting and error-mode branching shared by
// both stream shapes.
type collector struct {
	workers   int
	collect   bool
	maxErrors int

	rows   atomic.Int64
	groups atomic.Int64
	obs    atomic.Int64
	failed atomic.Int64

	mu       sync.Mutex
	failures sdmx.RowErrorList
}

func newCollector(opt StreamOptions) *collector {
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxErrors := opt.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &collector{workers: workers, collect: opt.Collect, maxErrors: maxErrors}
}

// consume accounts one normalized row and pushes it into the sink. A
// row-family error is recorded (collect mode) or returned (fail-fast); any
// other error always propagates.
func (c *collector) consume(sink GroupSink, key *sdmx.SeriesKey, obs []sdmx.Observation, line int, err error) error {
	c.rows.Add(1)
	if err == nil {
		if serr := sink.AddGroup(key, obs); serr != nil {
			err = serr
		}
	}
	if err == nil {
		c.groups.Add(1)
		c.obs.Add(int64(len(obs)))
		return nil
	}
	if !errors.Is(err, sdmx.ErrRow) {
		return err
	}
	rerr := asRowError(err, line)
	if !c.collect {
		return rerr
	}
	c.failed.Add(1)
	c.mu.Lock()
	if len(c.failures) < c.maxErrors {
		c.failures = append(c.failures, rerr)
	}
	c.mu.Unlock()
	return nil
}

func (c *collector) stats() StreamStats {
	return StreamStats{
		Rows:         c.rows.Load(),
		Groups:       c.groups.Load(),
		Observations: c.obs.Load(),
		Failed:       c.failed.Load(),
		Failures:     c.failures,
	}
}

// asRowError guarantees the failure sample holds *RowError entries without
// double-wrapping errors that already carry their line.
func asRowError(err error, line int) *sdmx.RowError {
	var rerr *sdmx.RowError
	if errors.As(err, &rerr) {
		return rerr
	}
	return &sdmx.RowError{Line: line, Err: err}
}
