// Command ingestctl builds and inspects the embedded citation-graph
// store: `build` runs one ingest pass over a corpus's record file;
// `inspect` dumps table contents for diagnostics.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/IntXgers/ohio-code/internal/config"
	"github.com/IntXgers/ohio-code/pkg/ingest"
	"github.com/IntXgers/ohio-code/pkg/store"
)

const (
	exitClean        = 0
	exitBadInput     = 1
	exitStoreIO      = 2
	exitInterrupted  = 3
	exitIncompatible = 4
)

var errInspectLimitReached = errors.New("ingestctl: inspect limit reached")

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	if _, err := config.LoadLogging(); err != nil {
		log.Fatalf("invalid logging configuration: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitBadInput)
	}

	switch os.Args[1] {
	case "build":
		os.Exit(runBuild(os.Args[2:]))
	case "inspect":
		os.Exit(runInspect(os.Args[2:]))
	default:
		usage()
		os.Exit(exitBadInput)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ingestctl build <corpus> --input <file> --out <dir> [--resume] [--enrich|--no-enrich] [--batch-size N] [--checkpoint-interval N]")
	fmt.Fprintln(os.Stderr, "       ingestctl inspect <dir> [--table primary|citations|reverse_citations|chains|metadata] [--limit N]")
}

func runBuild(args []string) int {
	if len(args) < 1 || args[0] == "" || args[0][0] == '-' {
		fmt.Fprintln(os.Stderr, "ingestctl build: missing <corpus>")
		return exitBadInput
	}
	corpusArg := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("build", flag.ExitOnError)
	opts := config.DefaultBuildOptions()
	opts.Corpus = corpusArg

	input := fs.String("input", "", "path to the line-delimited record file")
	out := fs.String("out", "", "output directory for the KV store")
	resume := fs.Bool("resume", false, "resume a previously interrupted build")
	enrich := fs.Bool("enrich", opts.Enrich, "run the enrichment stage")
	batchSize := fs.Int("batch-size", opts.BatchSize, "sections per write transaction")
	checkpointInterval := fs.Int("checkpoint-interval", opts.CheckpointInterval, "sections between progress checkpoints")
	fs.Parse(args)

	opts.Input = *input
	opts.Out = *out
	opts.Resume = *resume
	opts.Enrich = *enrich
	opts.BatchSize = *batchSize
	opts.CheckpointInterval = *checkpointInterval

	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ingestctl build: %v\n", err)
		return exitBadInput
	}

	buildID := uuid.NewString()
	stats, err := ingest.Run(opts, buildID)
	if err != nil {
		return exitCodeFor(err)
	}
	if stats.Cancelled {
		fmt.Fprintf(os.Stderr, "interrupted: %d sections written, checkpoint saved\n", stats.Written)
		return exitInterrupted
	}

	fmt.Printf("build %s complete: read=%d skipped=%d written=%d\n", buildID, stats.Read, stats.Skipped, stats.Written)
	return exitClean
}

func exitCodeFor(err error) int {
	fmt.Fprintf(os.Stderr, "ingestctl: %v\n", err)
	switch {
	case isBadInput(err):
		return exitBadInput
	case isIncompatibleStore(err):
		return exitIncompatible
	default:
		return exitStoreIO
	}
}

func isBadInput(err error) bool {
	return errors.Is(err, ingest.ErrBadInput)
}

func isIncompatibleStore(err error) bool {
	return errors.Is(err, store.ErrIncompatibleStore)
}

func runInspect(args []string) int {
	if len(args) < 1 || args[0] == "" || args[0][0] == '-' {
		fmt.Fprintln(os.Stderr, "ingestctl inspect: missing <dir>")
		return exitBadInput
	}
	dir := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	table := fs.String("table", "primary", "table to dump: primary|citations|reverse_citations|chains|metadata")
	limit := fs.Int("limit", 20, "maximum rows to print")
	fs.Parse(args)

	db, err := store.Open(dir + "/sections.db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestctl inspect: %v\n", err)
		return exitCodeFor(err)
	}
	defer db.Close()

	n := 0
	err = db.ForEach(*table, func(key, value []byte) error {
		if n >= *limit {
			return errInspectLimitReached
		}
		var pretty interface{}
		if jsonErr := json.Unmarshal(value, &pretty); jsonErr == nil {
			encoded, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Printf("%s -> %s\n", key, encoded)
		} else {
			fmt.Printf("%s -> %s\n", key, value)
		}
		n++
		return nil
	})
	if err != nil && !errors.Is(err, errInspectLimitReached) {
		fmt.Fprintf(os.Stderr, "ingestctl inspect: %v\n", err)
		return exitStoreIO
	}
	return exitClean
}
