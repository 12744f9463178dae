package main

import (
	"context"
	"encoding/json"
	"log"

	"gridsettle/internal/reconcile"
	"gridsettle/pkg/config"
	"gridsettle/pkg/difficulty"
	"gridsettle/pkg/elexon"

	logrus "github.com/sirupsen/logrus"
)

// reconcileRequest mirrors the JSON published by the API trigger.
type reconcileRequest struct {
	Action      string `json:"action"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Concurrency int    `json:"concurrency"`
}

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	orchestrator := reconcile.NewOrchestrator(config.DB, elexon.NewClient(), difficulty.NewClient())

	msgConsumer, err := config.NewConsumer(config.QueueReconcileRequests)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("Reconcile worker started, waiting for messages...")

	err = msgConsumer.Consume(func(msg []byte) error {
		var req reconcileRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			logrus.Errorf("Failed to unmarshal message: %v", err)
			return err
		}

		if !reconcile.ValidAction(req.Action) {
			// A malformed request would requeue forever; drop it.
			logrus.Errorf("Ignoring request with unknown action %q", req.Action)
			return nil
		}
		if req.EndDate == "" {
			req.EndDate = req.StartDate
		}
		if req.Concurrency <= 0 {
			req.Concurrency = 4
		}

		logrus.WithFields(logrus.Fields{
			"action":     req.Action,
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
		}).Info("Processing reconcile request")

		report, err := orchestrator.RunRange(context.Background(),
			req.StartDate, req.EndDate, reconcile.Action(req.Action), req.Concurrency)
		if err != nil {
			logrus.Errorf("Reconcile run failed: %v", err)
			return err
		}

		publishReports(report)
		return nil
	})

	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}

// publishReports pushes each date's report onto the reports queue. Publish
// failures are logged only; the run itself already committed its writes.
func publishReports(report *reconcile.RangeReport) {
	publisher, err := config.NewPublisher()
	if err != nil {
		logrus.Errorf("Failed to create publisher: %v", err)
		return
	}
	defer publisher.Close()

	for _, dateReport := range report.Dates {
		if err := publisher.Publish(config.QueueReconcileReports, dateReport); err != nil {
			logrus.Errorf("Failed to publish report for %s: %v", dateReport.Date, err)
		}
	}
}
