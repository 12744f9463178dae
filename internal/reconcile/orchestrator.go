package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gridsettle/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// State names the stages of the reconciliation pipeline.
type State string

const (
	StatePending               State = "Pending"
	StateValidating            State = "Validating"
	StateBackfilling           State = "Backfilling"
	StateRecomputingDerived    State = "RecomputingDerived"
	StateRecomputingAggregates State = "RecomputingAggregates"
	StateAuditing              State = "Auditing"
	StateDone                  State = "Done"
	StatePartialFailure        State = "PartialFailure"
)

// Action selects which stages a run executes.
type Action string

const (
	ActionValidate      Action = "validate"
	ActionBackfill      Action = "backfill"
	ActionRecompute     Action = "recompute"
	ActionAudit         Action = "audit"
	ActionFullReconcile Action = "full-reconcile"
)

// ValidAction reports whether s names a known action.
func ValidAction(s string) bool {
	switch Action(s) {
	case ActionValidate, ActionBackfill, ActionRecompute, ActionAudit, ActionFullReconcile:
		return true
	}
	return false
}

// RunEvent is emitted on every state change of a date run.
type RunEvent struct {
	Date   string    `json:"date"`
	State  State     `json:"state"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// DateReport is the structured outcome of one date's run.
type DateReport struct {
	Date            string        `json:"date"`
	Action          Action        `json:"action"`
	States          []State       `json:"states"`
	FinalState      State         `json:"final_state"`
	MissingPeriods  []int         `json:"missing_periods"`
	FailedPeriods   []int         `json:"failed_periods"`
	RecordsIngested int           `json:"records_ingested"`
	Discrepancies   []Discrepancy `json:"discrepancies"`
	Errors          []string      `json:"errors,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

// RangeReport collects the per-date reports of a range run.
type RangeReport struct {
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Dates     []*DateReport `json:"dates"`
	Cancelled bool          `json:"cancelled"`
}

// Orchestrator sequences validation, backfill, recomputation and audit per
// settlement date. At most one run per date is ever in flight; a second
// attempt is rejected with ErrDateBusy rather than queued.
type Orchestrator struct {
	db         *gorm.DB
	ingestor   *Ingestor
	calculator *Calculator
	aggregator *Aggregator
	auditor    *Auditor
	listener   func(RunEvent)

	mu       sync.Mutex
	inflight map[string]bool
}

func NewOrchestrator(db *gorm.DB, source PeriodSource, params ParameterSource) *Orchestrator {
	return &Orchestrator{
		db:         db,
		ingestor:   NewIngestor(db, source),
		calculator: NewCalculator(db, params),
		aggregator: NewAggregator(db),
		auditor:    NewAuditor(db),
		inflight:   make(map[string]bool),
	}
}

// SetListener registers a callback invoked on every state change. Used to
// feed the progress websocket and the report queue.
func (o *Orchestrator) SetListener(fn func(RunEvent)) {
	o.listener = fn
}

func (o *Orchestrator) acquire(date string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[date] {
		return false
	}
	o.inflight[date] = true
	return true
}

func (o *Orchestrator) release(date string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, date)
}

func (o *Orchestrator) transition(report *DateReport, state State, detail string) {
	report.States = append(report.States, state)
	log.WithFields(log.Fields{
		"date":   report.Date,
		"state":  state,
		"detail": detail,
	}).Info("Reconciliation state change")
	if o.listener != nil {
		o.listener(RunEvent{Date: report.Date, State: state, Detail: detail, Time: time.Now()})
	}
}

// RunDate executes the requested action for one settlement date. Failures
// at the period level are absorbed into the report; only ErrDateBusy and
// an invalid date are returned as errors.
func (o *Orchestrator) RunDate(ctx context.Context, date string, action Action) (*DateReport, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid settlement date %q: %w", date, err)
	}
	if !o.acquire(date) {
		return nil, ErrDateBusy
	}
	defer o.release(date)

	report := &DateReport{
		Date:      date,
		Action:    action,
		StartedAt: time.Now(),
	}
	o.transition(report, StatePending, "")

	failed := false

	if action == ActionValidate || action == ActionBackfill || action == ActionFullReconcile {
		o.transition(report, StateValidating, "")
		present, err := PresentPeriods(o.db, date)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			failed = true
		} else {
			missing, complete := MissingPeriods(present)
			report.MissingPeriods = missing

			if !complete && action != ActionValidate {
				o.transition(report, StateBackfilling, fmt.Sprintf("%d periods missing", len(missing)))
				result, err := o.ingestor.IngestPeriods(ctx, date, missing)
				if result != nil {
					report.FailedPeriods = result.FailedPeriods
					report.RecordsIngested = result.RecordsWritten
				}
				if err != nil {
					report.Errors = append(report.Errors, err.Error())
					failed = true
				}
				if present, err := PresentPeriods(o.db, date); err == nil {
					report.MissingPeriods, _ = MissingPeriods(present)
				}
			}
		}
	}

	if (action == ActionRecompute || action == ActionFullReconcile) && ctx.Err() == nil {
		o.transition(report, StateRecomputingDerived, "")
		if err := o.calculator.RecomputeDate(ctx, date); err != nil {
			// A missing difficulty blocks only the derived stage; the
			// aggregates are still rebuilt from what exists.
			report.Errors = append(report.Errors, err.Error())
			failed = true
		}

		o.transition(report, StateRecomputingAggregates, "")
		if err := o.recomputeCascade(date); err != nil {
			report.Errors = append(report.Errors, err.Error())
			failed = true
		}
	}

	if (action == ActionAudit || action == ActionFullReconcile) && ctx.Err() == nil {
		o.transition(report, StateAuditing, "")
		discrepancies, err := o.auditScopes(date)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			failed = true
		}
		report.Discrepancies = discrepancies
	}

	final := StateDone
	if failed || len(report.FailedPeriods) > 0 || len(report.Discrepancies) > 0 || ctx.Err() != nil {
		final = StatePartialFailure
	}
	report.FinalState = final
	report.FinishedAt = time.Now()
	o.transition(report, final, "")
	o.persistRun(report)
	return report, nil
}

// RunRange processes each date of [start, end] independently with bounded
// parallelism. Cancellation stops scheduling further dates; dates already
// finished keep their writes.
func (o *Orchestrator) RunRange(ctx context.Context, start, end string, action Action, workers int) (*RangeReport, error) {
	dates, err := DatesBetween(start, end)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	report := &RangeReport{StartDate: start, EndDate: end}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, date := range dates {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			defer func() { <-sem }()

			dateReport, err := o.RunDate(ctx, d, action)
			if err != nil {
				dateReport = &DateReport{
					Date:       d,
					Action:     action,
					FinalState: StatePartialFailure,
					Errors:     []string{err.Error()},
				}
			}
			mu.Lock()
			report.Dates = append(report.Dates, dateReport)
			mu.Unlock()
		}(date)
	}
	wg.Wait()

	sort.Slice(report.Dates, func(i, j int) bool {
		return report.Dates[i].Date < report.Dates[j].Date
	})
	return report, nil
}

func (o *Orchestrator) recomputeCascade(date string) error {
	if err := o.aggregator.RecomputeDaily(date); err != nil {
		return err
	}
	if err := o.aggregator.RecomputeMonthly(date[:7]); err != nil {
		return err
	}
	return o.aggregator.RecomputeYearly(date[:4])
}

func (o *Orchestrator) auditScopes(date string) ([]Discrepancy, error) {
	out, err := o.auditor.AuditDate(date)
	if err != nil {
		return out, err
	}
	monthly, err := o.auditor.AuditMonth(date[:7])
	if err != nil {
		return out, err
	}
	out = append(out, monthly...)
	yearly, err := o.auditor.AuditYear(date[:4])
	if err != nil {
		return out, err
	}
	return append(out, yearly...), nil
}

func (o *Orchestrator) persistRun(report *DateReport) {
	missing, _ := json.Marshal(report.MissingPeriods)
	failedPeriods, _ := json.Marshal(report.FailedPeriods)
	discrepancies, _ := json.Marshal(report.Discrepancies)

	run := models.ReconcileRun{
		SettlementDate:   report.Date,
		Action:           string(report.Action),
		FinalState:       string(report.FinalState),
		MissingPeriods:   string(missing),
		FailedPeriods:    string(failedPeriods),
		Discrepancies:    string(discrepancies),
		DiscrepancyCount: len(report.Discrepancies),
		RecordsIngested:  report.RecordsIngested,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
	}
	if err := o.db.Create(&run).Error; err != nil {
		log.WithFields(log.Fields{
			"date":  report.Date,
			"error": err,
		}).Error("Failed to persist reconcile run")
	}
}

// DatesBetween expands an inclusive date range into its "2006-01-02" days.
func DatesBetween(start, end string) ([]string, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s before start date %s", end, start)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}
