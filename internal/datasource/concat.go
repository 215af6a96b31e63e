package datasource

import (
	"context"
	"errors"
	"io"
)

// Concat returns a Source that streams the given sources back to back as a
// single reader. Sources are opened lazily, one at a time, in listed order,
// and each is closed before the next is opened.
//
// When dropHeaders is true, everything up to and including the first newline
// of every source after the first is discarded. Tabular files that each
// repeat the same column header can then be concatenated into one stream
// carrying a single header.
func Concat(dropHeaders bool, sources ...Source) Source {
	return &concatSource{dropHeaders: dropHeaders, sources: sources}
}

type concatSource struct {
	dropHeaders bool
	sources     []Source
}

// Open opens the first source and returns a reader that advances through
// the rest as each one is exhausted. Opening an empty chain is an error.
func (c *concatSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(c.sources) == 0 {
		return nil, errors.New("datasource: concat of zero sources")
	}
	first, err := c.sources[0].Open(ctx)
	if err != nil {
		return nil, err
	}
	return &concatReader{
		ctx:         ctx,
		cur:         first,
		rest:        c.sources[1:],
		dropHeaders: c.dropHeaders,
	}, nil
}

// concatReader chains the opened sources. The context captured at Open time
// governs the lazy opens of the remaining sources.
type concatReader struct {
	ctx         context.Context
	cur         io.ReadCloser
	rest        []Source
	dropHeaders bool
}

func (r *concatReader) Read(p []byte) (n int, err error) {
	for r.cur != nil {
		n, err = r.cur.Read(p)
		if err == io.EOF {
			err = r.next()
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.EOF
}

// next closes the exhausted source and opens the following one, discarding
// its header line when configured. r.cur is nil afterwards if the chain is
// done or the transition failed.
func (r *concatReader) next() error {
	cerr := r.cur.Close()
	r.cur = nil
	if cerr != nil {
		return cerr
	}
	if len(r.rest) == 0 {
		return nil
	}
	src := r.rest[0]
	r.rest = r.rest[1:]
	rc, err := src.Open(r.ctx)
	if err != nil {
		return err
	}
	if r.dropHeaders {
		if err := discardLine(rc); err != nil {
			rc.Close()
			return err
		}
	}
	r.cur = rc
	return nil
}

func (r *concatReader) Close() error {
	if r.cur == nil {
		r.rest = nil
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	r.rest = nil
	return err
}

// discardLine consumes input through the first newline. It reads one byte at
// a time so nothing past the newline is buffered away from the caller. A
// source that ends before any newline is treated as already consumed.
func discardLine(r io.Reader) error {
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 && b[0] == '\n' {
			return nil
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
