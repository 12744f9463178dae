package reconcile

import (
	"math"

	"gridsettle/internal/models"

	"gorm.io/gorm"
)

const (
	relativeTolerance = 1e-6
	absoluteTolerance = 0.01
)

// WithinTolerance reports whether actual matches expected within the looser
// of a 1e-6 relative or 0.01 absolute bound.
func WithinTolerance(expected, actual float64) bool {
	delta := math.Abs(expected - actual)
	limit := math.Max(absoluteTolerance,
		relativeTolerance*math.Max(math.Abs(expected), math.Abs(actual)))
	return delta <= limit
}

// Discrepancy records one stored total that does not match the sum of the
// tier beneath it.
type Discrepancy struct {
	Level      string  `json:"level"`
	Key        string  `json:"key"`
	MinerModel string  `json:"miner_model"`
	Metric     string  `json:"metric"`
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Delta      float64 `json:"delta"`
}

// Auditor compares each summary tier against the tier below it. It only
// reads; correcting a mismatch is always an explicit recompute.
type Auditor struct {
	db *gorm.DB
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

// AuditDate checks the daily summary of one date against the record tables.
func (a *Auditor) AuditDate(date string) ([]Discrepancy, error) {
	var base struct {
		TotalVolume  float64
		TotalPayment float64
	}
	err := a.db.Model(&models.CurtailmentRecord{}).
		Select("COALESCE(SUM(volume), 0) AS total_volume, COALESCE(SUM(payment), 0) AS total_payment").
		Where("settlement_date = ?", date).
		Scan(&base).Error
	if err != nil {
		return nil, &PersistenceError{Op: "sum curtailment records", Err: err}
	}

	var minted []measureRow
	err = a.db.Model(&models.MintingRecord{}).
		Select("miner_model, COALESCE(SUM(bitcoin_mined), 0) AS total_bitcoin").
		Where("settlement_date = ?", date).
		Group("miner_model").
		Scan(&minted).Error
	if err != nil {
		return nil, &PersistenceError{Op: "sum minting records", Err: err}
	}
	bitcoinByModel := make(map[string]float64, len(minted))
	for _, r := range minted {
		bitcoinByModel[r.MinerModel] = r.TotalBitcoin
	}

	var stored []models.DailySummary
	if err := a.db.Where("summary_date = ?", date).Find(&stored).Error; err != nil {
		return nil, &PersistenceError{Op: "load daily summaries", Err: err}
	}
	storedByModel := make(map[string]models.DailySummary, len(stored))
	for _, s := range stored {
		storedByModel[s.MinerModel] = s
	}

	var out []Discrepancy
	for _, m := range MinerModels {
		actual := storedByModel[m.Name]
		out = compare(out, "daily", date, m.Name, "volume", base.TotalVolume, actual.TotalVolume)
		out = compare(out, "daily", date, m.Name, "payment", base.TotalPayment, actual.TotalPayment)
		out = compare(out, "daily", date, m.Name, "bitcoin", bitcoinByModel[m.Name], actual.TotalBitcoin)
	}
	return out, nil
}

// AuditMonth checks the monthly summary of one "YYYY-MM" key against the
// daily tier.
func (a *Auditor) AuditMonth(yearMonth string) ([]Discrepancy, error) {
	var expected []measureRow
	err := a.db.Model(&models.DailySummary{}).
		Select("miner_model, COALESCE(SUM(total_volume), 0) AS total_volume, COALESCE(SUM(total_payment), 0) AS total_payment, COALESCE(SUM(total_bitcoin), 0) AS total_bitcoin").
		Where("summary_date LIKE ?", yearMonth+"-%").
		Group("miner_model").
		Scan(&expected).Error
	if err != nil {
		return nil, &PersistenceError{Op: "sum daily summaries", Err: err}
	}

	var stored []models.MonthlySummary
	if err := a.db.Where("year_month = ?", yearMonth).Find(&stored).Error; err != nil {
		return nil, &PersistenceError{Op: "load monthly summaries", Err: err}
	}
	storedByModel := make(map[string]models.MonthlySummary, len(stored))
	for _, s := range stored {
		storedByModel[s.MinerModel] = s
	}

	var out []Discrepancy
	for _, e := range expected {
		actual := storedByModel[e.MinerModel]
		out = compare(out, "monthly", yearMonth, e.MinerModel, "volume", e.TotalVolume, actual.TotalVolume)
		out = compare(out, "monthly", yearMonth, e.MinerModel, "payment", e.TotalPayment, actual.TotalPayment)
		out = compare(out, "monthly", yearMonth, e.MinerModel, "bitcoin", e.TotalBitcoin, actual.TotalBitcoin)
	}
	return out, nil
}

// AuditYear checks the yearly summary of one "YYYY" key against the monthly
// tier.
func (a *Auditor) AuditYear(year string) ([]Discrepancy, error) {
	var expected []measureRow
	err := a.db.Model(&models.MonthlySummary{}).
		Select("miner_model, COALESCE(SUM(total_volume), 0) AS total_volume, COALESCE(SUM(total_payment), 0) AS total_payment, COALESCE(SUM(total_bitcoin), 0) AS total_bitcoin").
		Where("year_month LIKE ?", year+"-%").
		Group("miner_model").
		Scan(&expected).Error
	if err != nil {
		return nil, &PersistenceError{Op: "sum monthly summaries", Err: err}
	}

	var stored []models.YearlySummary
	if err := a.db.Where("year = ?", year).Find(&stored).Error; err != nil {
		return nil, &PersistenceError{Op: "load yearly summaries", Err: err}
	}
	storedByModel := make(map[string]models.YearlySummary, len(stored))
	for _, s := range stored {
		storedByModel[s.MinerModel] = s
	}

	var out []Discrepancy
	for _, e := range expected {
		actual := storedByModel[e.MinerModel]
		out = compare(out, "yearly", year, e.MinerModel, "volume", e.TotalVolume, actual.TotalVolume)
		out = compare(out, "yearly", year, e.MinerModel, "payment", e.TotalPayment, actual.TotalPayment)
		out = compare(out, "yearly", year, e.MinerModel, "bitcoin", e.TotalBitcoin, actual.TotalBitcoin)
	}
	return out, nil
}

func compare(out []Discrepancy, level, key, model, metric string, expected, actual float64) []Discrepancy {
	if WithinTolerance(expected, actual) {
		return out
	}
	return append(out, Discrepancy{
		Level:      level,
		Key:        key,
		MinerModel: model,
		Metric:     metric,
		Expected:   expected,
		Actual:     actual,
		Delta:      actual - expected,
	})
}
