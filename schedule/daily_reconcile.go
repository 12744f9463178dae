package main

import (
	"context"
	"os"
	"time"

	"gridsettle/internal/reconcile"
	dbconfig "gridsettle/pkg/config"
	"gridsettle/pkg/difficulty"
	"gridsettle/pkg/elexon"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

// ReconcilePreviousDay runs a full reconcile of yesterday's settlement date.
// Settlement data lags by roughly a day, so the job fires in the early
// morning for the date that has just closed.
func ReconcilePreviousDay(orchestrator *reconcile.Orchestrator) error {
	date := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	logger.Infof("> Starting daily reconcile for %s", date)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	report, err := orchestrator.RunDate(ctx, date, reconcile.ActionFullReconcile)
	if err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"date":          date,
		"final_state":   report.FinalState,
		"ingested":      report.RecordsIngested,
		"failed":        len(report.FailedPeriods),
		"discrepancies": len(report.Discrepancies),
	}).Info("> Daily reconcile finished")
	return nil
}

func main() {
	os.MkdirAll("logs", 0755)
	file, err := os.OpenFile("logs/daily_reconcile.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logger.SetOutput(file)
	} else {
		logger.Warn("Could not open log file, logging to stdout")
	}

	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logger.InfoLevel)
	logger.Info("> Initializing daily reconcile job...")

	dbconfig.InitDB()
	logger.Info("> Database connection initialized")

	orchestrator := reconcile.NewOrchestrator(dbconfig.DB, elexon.NewClient(), difficulty.NewClient())

	c := cron.New(cron.WithSeconds())

	// 05:30 every morning, after the settlement data for yesterday lands.
	_, err = c.AddFunc("0 30 5 * * *", func() {
		if err := ReconcilePreviousDay(orchestrator); err != nil {
			logger.Errorf("> Daily reconcile failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("> Failed to add cron job: %v", err)
	}

	logger.Info("> Daily reconcile scheduled for 05:30")

	c.Start()

	select {}
}
