package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"wideform/internal/parser"
)

// StreamRows streams wide CSV into pooled *parser.Row values aligned to the
// source header. The header is read first, normalized, and handed to
// onHeader so the caller can compile its column roles before any row flows;
// a non-nil onHeader error aborts the stream.
//
// Row width is enforced against the header (encoding/csv field-count
// checking); ragged rows are reported through onErr(line, err) and skipped,
// the stream continues. The reader reuses its record buffer and copies
// cells into pooled rows, so memory stays bounded on multi-GB inputs.
//
// Returns the emitted and skipped row counts. Cancellation is cooperative;
// on ctx.Done the in-flight row is freed and ctx.Err() returned.
func StreamRows(
	ctx context.Context,
	src io.Reader,
	opt Options,
	onHeader func(header []string) error,
	out chan<- *parser.Row,
	onErr func(line int, err error),
) (rows, skipped int64, err error) {
	cr := csv.NewReader(src)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	// FieldsPerRecord 0: the header fixes the expected width, encoding/csv
	// flags ragged rows from then on.
	cr.FieldsPerRecord = 0

	line := 0
	read := func() ([]string, error) { line++; return cr.Read() }

	h, rerr := read()
	if rerr != nil {
		return 0, 0, fmt.Errorf("read csv header: %w", rerr)
	}
	header := NormalizeHeader(h, opt)
	if onHeader != nil {
		if herr := onHeader(header); herr != nil {
			return 0, 0, herr
		}
	}

	const logEveryN = 50_000

	for {
		select {
		case <-ctx.Done():
			return rows, skipped, ctx.Err()
		default:
		}

		rec, rerr := read()
		if rerr == io.EOF {
			return rows, skipped, nil
		}
		if rerr != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", rerr))
			}
			skipped++
			continue
		}

		row := parser.GetRow(line, len(header))
		for i, v := range rec {
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			row.V[i] = v
		}

		select {
		case out <- row:
			rows++
			if rows%logEveryN == 0 {
				log.Printf("reader: line=%d emitted=%d", line, rows)
			}
		case <-ctx.Done():
			row.Free()
			return rows, skipped, ctx.Err()
		}
	}
}
