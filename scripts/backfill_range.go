package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gridsettle/internal/reconcile"
	dbconfig "gridsettle/pkg/config"
	"gridsettle/pkg/difficulty"
	"gridsettle/pkg/elexon"

	logger "github.com/sirupsen/logrus"
)

// Backfills a date range from the command line, e.g.:
//
//	go run scripts/backfill_range.go -start 2025-01-01 -end 2025-01-31 -action full-reconcile
func main() {
	start := flag.String("start", "", "start date (YYYY-MM-DD)")
	end := flag.String("end", "", "end date (YYYY-MM-DD), defaults to start")
	action := flag.String("action", "full-reconcile", "validate | backfill | recompute | audit | full-reconcile")
	workers := flag.Int("workers", 4, "number of dates processed in parallel")
	flag.Parse()

	if *start == "" {
		fmt.Fprintln(os.Stderr, "missing -start")
		flag.Usage()
		os.Exit(1)
	}
	if *end == "" {
		*end = *start
	}
	if !reconcile.ValidAction(*action) {
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(1)
	}

	logger.SetFormatter(&logger.TextFormatter{FullTimestamp: true})

	dbconfig.InitDB()

	orchestrator := reconcile.NewOrchestrator(dbconfig.DB, elexon.NewClient(), difficulty.NewClient())
	report, err := orchestrator.RunRange(context.Background(), *start, *end, reconcile.Action(*action), *workers)
	if err != nil {
		logger.Fatalf("Backfill failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to render report: %v", err)
	}
	fmt.Println(string(out))

	for _, dateReport := range report.Dates {
		if dateReport.FinalState != reconcile.StateDone {
			os.Exit(2)
		}
	}
}
