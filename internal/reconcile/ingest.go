package reconcile

import (
	"context"
	"math"
	"time"

	"gridsettle/internal/models"
	"gridsettle/pkg/elexon"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	fetchAttempts = 3
	retryDelay    = 2 * time.Second

	// Minimum spacing between outbound calls to the settlement API.
	requestInterval = 200 * time.Millisecond
)

// PeriodSource is the upstream query contract for one settlement period.
// An empty result means the period legitimately has no curtailment.
type PeriodSource interface {
	FetchPeriod(ctx context.Context, date string, period int) ([]elexon.CurtailmentEntry, error)
}

// Ingestor fetches curtailment data per settlement period and writes it with
// replace semantics: re-ingesting a period never duplicates rows.
type Ingestor struct {
	db      *gorm.DB
	source  PeriodSource
	limiter *rate.Limiter
}

func NewIngestor(db *gorm.DB, source PeriodSource) *Ingestor {
	return &Ingestor{
		db:      db,
		source:  source,
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
	}
}

// IngestResult summarises one ingestion pass over a set of periods.
type IngestResult struct {
	FailedPeriods  []int
	EmptyPeriods   []int
	RecordsWritten int
}

// IngestPeriods fetches and stores each target period of the date. A failed
// period is recorded and skipped, never aborting its siblings; only storage
// failures and cancellation stop the pass.
func (ing *Ingestor) IngestPeriods(ctx context.Context, date string, periods []int) (*IngestResult, error) {
	result := &IngestResult{}

	for _, period := range periods {
		entries, err := ing.fetchWithRetry(ctx, date, period)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.WithFields(log.Fields{
				"date":   date,
				"period": period,
				"error":  err,
			}).Warn("Giving up on settlement period")
			result.FailedPeriods = append(result.FailedPeriods, period)
			continue
		}

		written, err := ing.replacePeriod(date, period, entries)
		if err != nil {
			return result, err
		}
		if written == 0 {
			result.EmptyPeriods = append(result.EmptyPeriods, period)
			continue
		}
		result.RecordsWritten += written
	}

	return result, nil
}

// fetchWithRetry retries transient failures a fixed number of times with a
// fixed delay. Non-transient errors are returned immediately.
func (ing *Ingestor) fetchWithRetry(ctx context.Context, date string, period int) ([]elexon.CurtailmentEntry, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if err := ing.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		entries, err := ing.source.FetchPeriod(ctx, date, period)
		if err == nil {
			return entries, nil
		}
		if !IsTransient(err) {
			return nil, err
		}

		lastErr = err
		if attempt < fetchAttempts {
			log.WithFields(log.Fields{
				"date":    date,
				"period":  period,
				"attempt": attempt,
			}).Info("Retrying settlement period fetch")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, lastErr
}

// replacePeriod swaps the stored rows for one (date, period) inside a single
// transaction. An empty fetch still deletes: a period that no longer has
// data upstream goes absent from the grid, whatever was stored before.
// Volume and payment are normalised to the negative-is-cost convention
// here, at the boundary where records first exist.
func (ing *Ingestor) replacePeriod(date string, period int, entries []elexon.CurtailmentEntry) (int, error) {
	records := make([]models.CurtailmentRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.CurtailmentRecord{
			SettlementDate:   date,
			SettlementPeriod: period,
			BmUnit:           e.BmUnit,
			LeadParty:        e.LeadPartyName,
			Volume:           -math.Abs(e.Volume),
			Payment:          -math.Abs(e.Cashflow),
			Currency:         "GBP",
		})
	}

	err := ing.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("settlement_date = ? AND settlement_period = ?", date, period).
			Delete(&models.CurtailmentRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return 0, &PersistenceError{Op: "replace settlement period", Err: err}
	}
	return len(records), nil
}
