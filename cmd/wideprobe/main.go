// Command wideprobe samples the first bytes of a wide CSV source and reports
// how a pipeline run would read it: the role of every column, the period
// labels, the categorical paths, and (without a schema) a suggested schema
// definition.
//
// The -json output is a starter pipeline config intended to be hand-edited
// and then used with cmd/wideform.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"wideform/internal/probe"
)

var (
	flagURL       = flag.String("url", "", "URL of the wide CSV to sample (http(s):// or file://)")
	flagBytes     = flag.Int("bytes", 20000, "Number of bytes to sample from the start of the file")
	flagDelimiter = flag.String("delimiter", ",", "CSV field delimiter (single character)")
	flagSchema    = flag.String("schema", "", "Schema definition YAML to classify against; omit for heuristic mode")
	flagName      = flag.String("name", "dataset", "Dataset name, used for suggested ids and the sample file")
	flagJob       = flag.String("job", "", "Job name for the starter config; defaults to a normalized -name when empty")
	flagJSON      = flag.Bool("json", false, "Print a starter pipeline config as JSON instead of the text report")
	flagDatePref  = flag.String("datepref", "auto", "Date layout preference tie-breaker: auto|eu|us")
	flagSave      = flag.Bool("save", false, "Write sampled bytes to [name].csv")
	flagSchemaOut = flag.String("schema-out", "", "Write the suggested schema YAML to this path (heuristic mode only)")
	flagInsecure  = flag.Bool("allow-insecure", false, "Skip TLS certificate verification")
)

func main() {
	flag.Parse()

	if *flagURL == "" {
		fmt.Fprintln(os.Stderr, "missing -url")
		flag.Usage()
		os.Exit(2)
	}

	res, err := probe.Probe(probe.Options{
		URL:              *flagURL,
		MaxBytes:         *flagBytes,
		Delimiter:        probe.DecodeDelimiter(*flagDelimiter),
		SchemaPath:       *flagSchema,
		Name:             *flagName,
		OutputJSON:       *flagJSON,
		SaveSample:       *flagSave,
		DatePreference:   *flagDatePref,
		AllowInsecureTLS: *flagInsecure,
		Job:              *flagJob,
	})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	log.Printf("sampled %s: %d rows, %d columns",
		humanize.IBytes(uint64(res.SampleBytes)), res.SampleRows, len(res.Headers))
	if res.SkippedRows > 0 {
		log.Printf("skipped %d ragged rows", res.SkippedRows)
	}

	os.Stdout.Write(res.Body)

	switch {
	case *flagSchemaOut != "":
		if res.SuggestedSchema == "" {
			log.Fatalf("no suggested schema to write: classification ran against -schema")
		}
		if err := os.WriteFile(*flagSchemaOut, []byte(res.SuggestedSchema), 0o644); err != nil {
			log.Fatalf("write schema: %v", err)
		}
		log.Printf("wrote suggested schema to %s", *flagSchemaOut)
	case !*flagJSON && res.SuggestedSchema != "":
		fmt.Println("suggested schema:")
		fmt.Print(res.SuggestedSchema)
	}
}
