// Package jsonl reads wide rows from JSON-lines input: one object per line,
// each a field-name → value mapping with the same shape the CSV header
// describes (key dimensions, categorical path, attributes, varying labels).
// Unlike CSV, every record names its own fields, so sparse rows are natural
// here.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"wideform/internal/parser"
)

// Options configures the JSON-lines reader.
type Options struct {
	// HeaderMap renames source keys to canonical field names, mirroring the
	// CSV reader's header mapping.
	HeaderMap map[string]string

	// MaxLineBytes bounds a single line; 1 MiB when zero.
	MaxLineBytes int
}

// StreamRecords decodes one object per line and sends each as a line-tagged
// parser.Object. Scalar values are stringified (numbers keep their source
// form); a non-scalar field value is a per-record error reported through
// onErr, and the record is skipped. Blank lines are ignored.
//
// Returns the emitted and skipped record counts.
func StreamRecords(
	ctx context.Context,
	r io.Reader,
	opt Options,
	out chan<- parser.Object,
	onErr func(line int, err error),
) (records, skipped int64, err error) {
	maxLine := opt.MaxLineBytes
	if maxLine <= 0 {
		maxLine = 1 << 20
	}
	sc := bufio.NewScanner(r)
	bufSize := 64 * 1024
	if maxLine < bufSize {
		bufSize = maxLine
	}
	sc.Buffer(make([]byte, bufSize), maxLine)

	const logEveryN = 50_000

	line := 0
	for sc.Scan() {
		line++
		select {
		case <-ctx.Done():
			return records, skipped, ctx.Err()
		default:
		}

		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		fields, derr := decodeRecord(raw, opt.HeaderMap)
		if derr != nil {
			if onErr != nil {
				onErr(line, derr)
			}
			skipped++
			continue
		}

		select {
		case out <- parser.Object{Line: line, Fields: fields}:
			records++
			if records%logEveryN == 0 {
				log.Printf("reader: line=%d emitted=%d", line, records)
			}
		case <-ctx.Done():
			return records, skipped, ctx.Err()
		}
	}
	if serr := sc.Err(); serr != nil {
		return records, skipped, fmt.Errorf("scan json lines: %w", serr)
	}
	return records, skipped, nil
}

// decodeRecord parses one line into a Record with stringified scalars.
// json.Number keeps the source digits, so "5" and "5.0" stay distinct.
func decodeRecord(raw []byte, headerMap map[string]string) (parser.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode json object: %w", err)
	}

	rec := make(parser.Record, len(obj))
	for k, v := range obj {
		if mapped, ok := headerMap[k]; ok {
			k = mapped
		}
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		rec[k] = s
	}
	return rec, nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("value %T is not a scalar", v)
	}
}
