// Command wideprobe-web starts the web UI for the column probe.
//
// Usage:
//
//	go run ./cmd/wideprobe-web -addr :8080
package main

import (
	"flag"
	"log"
	"os"

	"wideform/internal/webui"
)

// server is the part of webui.Server the command needs; tests swap in a fake.
type server interface {
	ListenAndServe() error
}

// newServer is a construction seam for tests.
var newServer = func(cfg webui.Config) server {
	return webui.NewServer(cfg)
}

// run parses args, starts the server, and blocks until it exits.
func run(args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("wideprobe-web", flag.ContinueOnError)
	fs.SetOutput(logger.Writer())
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := newServer(webui.Config{Addr: *addr})
	logger.Printf("listening on %s", *addr)
	return srv.ListenAndServe()
}

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	if err := run(os.Args[1:], logger); err != nil {
		logger.Fatal(err)
	}
}
