package datasource

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// memSource serves fixed bytes and counts opens and closes so tests can
// verify the lazy-open and close-before-advance behavior of Concat.
type memSource struct {
	data    string
	openErr error
	opened  int
	closed  int
}

func (m *memSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opened++
	return &memReadCloser{Reader: strings.NewReader(m.data), src: m}, nil
}

type memReadCloser struct {
	*strings.Reader
	src *memSource
}

func (m *memReadCloser) Close() error {
	m.src.closed++
	return nil
}

func TestConcat_JoinsSourcesInOrder(t *testing.T) {
	t.Parallel()

	a := &memSource{data: "alpha\n"}
	b := &memSource{data: "beta\n"}
	c := &memSource{data: "gamma\n"}

	rc, err := Concat(false, a, b, c).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := "alpha\nbeta\ngamma\n"; string(got) != want {
		t.Fatalf("content mismatch: got %q want %q", got, want)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, s := range []*memSource{a, b, c} {
		if s.opened != 1 || s.closed != 1 {
			t.Fatalf("source %d: opened=%d closed=%d, want 1/1", i, s.opened, s.closed)
		}
	}
}

func TestConcat_DropsRepeatedHeaders(t *testing.T) {
	t.Parallel()

	a := &memSource{data: "year,value\n2020,1\n"}
	b := &memSource{data: "year,value\n2021,2\n"}
	c := &memSource{data: "year,value\n2022,3\n"}

	rc, err := Concat(true, a, b, c).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := "year,value\n2020,1\n2021,2\n2022,3\n"; string(got) != want {
		t.Fatalf("content mismatch: got %q want %q", got, want)
	}
}

// A source holding only a header line, or nothing at all, contributes no
// bytes to the chain and does not break it.
func TestConcat_HeaderOnlyAndEmptySources(t *testing.T) {
	t.Parallel()

	a := &memSource{data: "h1,h2\nr1,1\n"}
	b := &memSource{data: "h1,h2\n"}
	c := &memSource{data: ""}
	d := &memSource{data: "h1,h2\nr2,2\n"}

	rc, err := Concat(true, a, b, c, d).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := "h1,h2\nr1,1\nr2,2\n"; string(got) != want {
		t.Fatalf("content mismatch: got %q want %q", got, want)
	}
}

func TestConcat_ZeroSources(t *testing.T) {
	t.Parallel()

	_, err := Concat(false).Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "zero sources") {
		t.Fatalf("want zero-sources error, got %v", err)
	}
}

// An open failure mid-chain surfaces after the preceding bytes have been
// delivered, so the caller sees everything read so far plus the error.
func TestConcat_OpenErrorMidChain(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := &memSource{data: "head\nrow1\n"}
	b := &memSource{openErr: boom}

	rc, err := Concat(true, a, b).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if string(got) != "head\nrow1\n" {
		t.Fatalf("bytes before failure: got %q", got)
	}
	if a.closed != 1 {
		t.Fatalf("first source closed %d times, want 1", a.closed)
	}
}

// Later sources are not opened until the reader actually reaches them.
func TestConcat_OpensLazily(t *testing.T) {
	t.Parallel()

	a := &memSource{data: "first"}
	b := &memSource{data: "second"}

	rc, err := Concat(false, a, b).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	buf := make([]byte, len("first"))
	if _, err := io.ReadFull(rc, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if b.opened != 0 {
		t.Fatalf("second source opened before first was exhausted")
	}
	rest, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(buf)+string(rest) != "firstsecond" {
		t.Fatalf("content mismatch: %q + %q", buf, rest)
	}
	if b.opened != 1 {
		t.Fatalf("second source opened %d times, want 1", b.opened)
	}
}

// Close in the middle of the chain closes the current source and abandons
// the rest without opening them.
func TestConcat_CloseMidChain(t *testing.T) {
	t.Parallel()

	a := &memSource{data: "aaaa"}
	b := &memSource{data: "bbbb"}

	rc, err := Concat(false, a, b).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := rc.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.closed != 1 {
		t.Fatalf("first source closed %d times, want 1", a.closed)
	}
	if b.opened != 0 {
		t.Fatalf("second source opened after Close")
	}
	if n, err := rc.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("Read after Close: n=%d err=%v, want 0/EOF", n, err)
	}
}

func TestDiscardLine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		rest string
	}{
		{"line_and_body", "header\nbody", "body"},
		{"newline_only", "\nbody", "body"},
		{"no_newline", "header", ""},
		{"empty", "", ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := strings.NewReader(c.in)
			if err := discardLine(r); err != nil {
				t.Fatalf("discardLine: %v", err)
			}
			rest, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(rest) != c.rest {
				t.Fatalf("rest: got %q want %q", rest, c.rest)
			}
		})
	}
}
