package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wideform/internal/config"
	"wideform/internal/metrics"
	"wideform/internal/metrics/datadog"
	"wideform/internal/metrics/prompush"

	// register all backends with the storage factory.
	// config selects which to use but the binary carries support for all of them.
	_ "wideform/internal/storage/all"
)

// Exit codes:
//
//	0 run (or validation) succeeded
//	1 run failed
//	2 configuration did not load or validate
const (
	exitOK     = 0
	exitRun    = 1
	exitConfig = 2
)

// main is the entry point for the wideform binary. It loads the pipeline
// config, optionally initializes a metrics backend, and executes the run.
func main() {
	os.Exit(realMain())
}

// realMain is main without os.Exit so deferred cleanup (the metrics flush)
// still runs on the error paths.
func realMain() int {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/iamc_demo.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: none, prometheus, datadog (default $WIDEFORM_METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open config: %v\n", err)
		return exitConfig
	}
	var p config.Pipeline
	err = json.NewDecoder(f).Decode(&p)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode config %s: %v\n", cfgPath, err)
		return exitConfig
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		return exitConfig
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		return exitOK
	}

	// Decide metrics backend: flag → env → disabled.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("WIDEFORM_METRICS_BACKEND")
	}
	switch backendName {
	case "prometheus":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(p.Name, gwURL)
		if err != nil {
			log.Printf("metrics: init prometheus backend: %v; metrics disabled", err)
		} else {
			log.Printf("metrics: backend=%v url=%v job=%v", backendName, gwURL, p.Name)
			metrics.SetBackend(b)
		}

	case "datadog":
		addr := statsdAddrFlg
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "wideform."})
		if err != nil {
			log.Printf("metrics: init datadog backend: %v; metrics disabled", err)
		} else {
			log.Printf("metrics: backend=%v addr=%v", backendName, addr)
			metrics.SetBackend(b)
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: name=%s source=%s parser=%s storage=%s export=%s",
			p.Name, p.Source.Kind, p.Parser.Kind, p.Storage.Kind, p.Export.Format)
	}

	if err := run(ctx, p); err != nil {
		log.Printf("run failed: %v", err)
		return exitRun
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return exitOK
}
