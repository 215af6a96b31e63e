// Package csv reads wide-format CSV: a header naming every column (the key
// dimensions, the categorical-path field, the attributes, and one column per
// varying-dimension label), then one row per series. The reader keeps every
// column — the open-ended label set is part of the data — and leaves role
// classification to the consumer.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"wideform/internal/parser"
)

// Options configures the reader. Zero values get sensible defaults.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TrimSpace trims leading/trailing space from every cell and header.
	TrimSpace bool

	// LazyQuotes relaxes quote handling for sloppy exports.
	LazyQuotes bool

	// HeaderMap renames source headers to canonical field names before any
	// folding, e.g. {"Region/Country": "region"}.
	HeaderMap map[string]string

	// FoldHeader lowercases header cells after HeaderMap is applied. Cell
	// values are never folded.
	FoldHeader bool
}

// NormalizeHeader canonicalizes a raw header row: trims space, strips a
// UTF-8 BOM from the first cell, applies HeaderMap, and optionally folds to
// lower case.
func NormalizeHeader(h []string, opt Options) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if opt.HeaderMap != nil {
			if m, ok := opt.HeaderMap[c]; ok {
				res[i] = m
				continue
			}
		}
		if opt.FoldHeader {
			c = strings.ToLower(c)
		}
		res[i] = c
	}
	return res
}

// Parser parses whole wide-CSV documents into Records. It is meant for
// small inputs (samples, tests, the web inspector); large files go through
// StreamRows. A Parser may be reused but is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// skipLogLimit caps per-row skip logging so a corrupt file cannot flood the
// log.
const skipLogLimit = 400

// Parse consumes the whole input: the first line is the header (wide format
// is meaningless without one), every further line becomes one Record keyed
// by the normalized header. Rows whose width does not match the header are
// skipped and counted, never silently truncated.
func (p *Parser) Parse(r io.Reader) ([]string, []parser.Record, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	header := NormalizeHeader(h, p.opt)

	var out []parser.Record
	var skipped int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				log.Printf("skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}
		if len(row) != len(header) {
			if skipped < skipLogLimit {
				log.Printf("skipping row %d: expected %d fields, got %d", line, len(header), len(row))
			}
			skipped++
			continue
		}
		rec := make(parser.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[header[i]] = val
		}
		out = append(out, rec)
	}
	return header, out, skipped, nil
}
