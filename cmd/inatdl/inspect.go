package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/csvsource"
)

// runInspect previews a CSV export without downloading anything: which
// column was detected, how many rows it has, and how many are blank.
func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)

	csvPath := fs.String("csv", "", "CSV file with image URLs (required)")
	column := fs.String("column", "", "CSV column to use instead of auto-detection")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: inatdl inspect [options]

Preview a CSV export before downloading.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -csv is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	src, err := csvsource.Read(*csvPath, *column)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitBadCSV
	}

	valid, blank := src.Stats()
	fmt.Printf("[inatdl] Column: %s\n", src.Column)
	fmt.Printf("[inatdl] Rows: %d (%d with URLs, %d blank)\n", len(src.URLs), valid, blank)
	if blank > 0 {
		fmt.Printf("[inatdl] Blank rows are skipped during download.\n")
	}

	return ExitSuccess
}
