// run-compliance executes one compliance run from the command line,
// mirroring POST /api/runs. Useful for scheduled reviews and for dry
// runs against production data.
//
// Usage:
//   go run ./cmd/run-compliance -mode 1 -reviewed 2025-06-02 [-number 2] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"github.com/dragontuck/unionhall-compliance-sub001/workflow"
)

func main() {
	modeId := flag.Int("mode", 0, "mode id (required)")
	reviewed := flag.String("reviewed", "", "reviewed date, YYYY-MM-DD (required)")
	runNumber := flag.Int("number", 0, "run number (optional; next sequential when omitted)")
	dryRun := flag.Bool("dry-run", false, "execute without persisting anything")
	flag.Parse()

	if *modeId <= 0 || *reviewed == "" {
		flag.Usage()
		os.Exit(2)
	}
	reviewedDate, err := utils.ParseDateInput(*reviewed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -reviewed date: %v\n", err)
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	logger := config.GetLogger()

	input := workflow.RunInput{
		ModeId:       *modeId,
		ReviewedDate: reviewedDate,
		DryRun:       *dryRun,
	}
	if *runNumber > 0 {
		input.RunNumber = runNumber
	}

	result, err := workflow.ExecuteRun(context.Background(), db, logger, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rejected: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result.Message)
	if !result.Success {
		os.Exit(1)
	}
}
