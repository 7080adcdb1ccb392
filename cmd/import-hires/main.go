// import-hires bulk-loads a hire CSV or XLSX file from disk into the
// raw hire table, same layout as the dashboard upload.
//
// Usage:
//   go run ./cmd/import-hires -file hires-2025-06-02.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/models"
)

func main() {
	file := flag.String("file", "", "path to a hire CSV or XLSX file (required)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer f.Close()

	config.ConnectDatabaseWithRetry()

	ctx := context.Background()
	var result *models.HireImportResult
	if strings.HasSuffix(strings.ToLower(*file), ".xlsx") {
		result, err = models.ImportHiresXLSX(ctx, f)
	} else {
		result, err = models.ImportHiresCSV(ctx, f)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("imported %d rows, skipped %d\n", result.Imported, result.Skipped)
	for _, rowErr := range result.RowErrors {
		fmt.Fprintln(os.Stderr, rowErr)
	}
	if result.Skipped > 0 {
		os.Exit(3)
	}
}
