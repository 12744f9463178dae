package reconcile

import (
	"gridsettle/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// summaryMeasures are the columns overwritten on every upsert. Aggregates
// are always derived fully from the tier below, never incremented.
var summaryMeasures = []string{"total_volume", "total_payment", "total_bitcoin", "updated_at"}

type measureRow struct {
	MinerModel   string
	TotalVolume  float64
	TotalPayment float64
	TotalBitcoin float64
}

// Aggregator recomputes the daily, monthly and yearly summary tiers.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// RecomputeDaily rebuilds the daily summary rows for one date from the
// record tables. Volume and payment come from the curtailment records and
// are the same for every miner model; bitcoin is the per-model measure.
// A date with no records in either table has its rows removed rather than
// left stale, matching the monthly and yearly tiers.
func (a *Aggregator) RecomputeDaily(date string) error {
	var recordCount int64
	err := a.db.Model(&models.CurtailmentRecord{}).
		Where("settlement_date = ?", date).
		Count(&recordCount).Error
	if err != nil {
		return &PersistenceError{Op: "count curtailment records", Err: err}
	}

	var base struct {
		TotalVolume  float64
		TotalPayment float64
	}
	err = a.db.Model(&models.CurtailmentRecord{}).
		Select("COALESCE(SUM(volume), 0) AS total_volume, COALESCE(SUM(payment), 0) AS total_payment").
		Where("settlement_date = ?", date).
		Scan(&base).Error
	if err != nil {
		return &PersistenceError{Op: "sum curtailment records", Err: err}
	}

	var perModel []measureRow
	err = a.db.Model(&models.MintingRecord{}).
		Select("miner_model, COALESCE(SUM(bitcoin_mined), 0) AS total_bitcoin").
		Where("settlement_date = ?", date).
		Group("miner_model").
		Scan(&perModel).Error
	if err != nil {
		return &PersistenceError{Op: "sum minting records", Err: err}
	}

	if recordCount == 0 && len(perModel) == 0 {
		err := a.db.Where("summary_date = ?", date).Delete(&models.DailySummary{}).Error
		if err != nil {
			return &PersistenceError{Op: "clear daily summary", Err: err}
		}
		return nil
	}

	bitcoinByModel := make(map[string]float64, len(perModel))
	for _, row := range perModel {
		bitcoinByModel[row.MinerModel] = row.TotalBitcoin
	}

	rows := make([]models.DailySummary, 0, len(MinerModels))
	for _, m := range MinerModels {
		rows = append(rows, models.DailySummary{
			SummaryDate:  date,
			MinerModel:   m.Name,
			TotalVolume:  base.TotalVolume,
			TotalPayment: base.TotalPayment,
			TotalBitcoin: bitcoinByModel[m.Name],
		})
	}

	err = a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "summary_date"}, {Name: "miner_model"}},
		DoUpdates: clause.AssignmentColumns(summaryMeasures),
	}).Create(&rows).Error
	if err != nil {
		return &PersistenceError{Op: "upsert daily summary", Err: err}
	}
	return nil
}

// RecomputeMonthly rebuilds the monthly rows for one "YYYY-MM" key from the
// daily tier. If the month has no daily rows its summary rows are removed
// rather than left stale.
func (a *Aggregator) RecomputeMonthly(yearMonth string) error {
	var perModel []measureRow
	err := a.db.Model(&models.DailySummary{}).
		Select("miner_model, COALESCE(SUM(total_volume), 0) AS total_volume, COALESCE(SUM(total_payment), 0) AS total_payment, COALESCE(SUM(total_bitcoin), 0) AS total_bitcoin").
		Where("summary_date LIKE ?", yearMonth+"-%").
		Group("miner_model").
		Scan(&perModel).Error
	if err != nil {
		return &PersistenceError{Op: "sum daily summaries", Err: err}
	}

	if len(perModel) == 0 {
		err := a.db.Where("year_month = ?", yearMonth).Delete(&models.MonthlySummary{}).Error
		if err != nil {
			return &PersistenceError{Op: "clear monthly summary", Err: err}
		}
		return nil
	}

	rows := make([]models.MonthlySummary, 0, len(perModel))
	for _, r := range perModel {
		rows = append(rows, models.MonthlySummary{
			YearMonth:    yearMonth,
			MinerModel:   r.MinerModel,
			TotalVolume:  r.TotalVolume,
			TotalPayment: r.TotalPayment,
			TotalBitcoin: r.TotalBitcoin,
		})
	}

	err = a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year_month"}, {Name: "miner_model"}},
		DoUpdates: clause.AssignmentColumns(summaryMeasures),
	}).Create(&rows).Error
	if err != nil {
		return &PersistenceError{Op: "upsert monthly summary", Err: err}
	}
	return nil
}

// RecomputeYearly rebuilds the yearly rows for one "YYYY" key from the
// monthly tier.
func (a *Aggregator) RecomputeYearly(year string) error {
	var perModel []measureRow
	err := a.db.Model(&models.MonthlySummary{}).
		Select("miner_model, COALESCE(SUM(total_volume), 0) AS total_volume, COALESCE(SUM(total_payment), 0) AS total_payment, COALESCE(SUM(total_bitcoin), 0) AS total_bitcoin").
		Where("year_month LIKE ?", year+"-%").
		Group("miner_model").
		Scan(&perModel).Error
	if err != nil {
		return &PersistenceError{Op: "sum monthly summaries", Err: err}
	}

	if len(perModel) == 0 {
		err := a.db.Where("year = ?", year).Delete(&models.YearlySummary{}).Error
		if err != nil {
			return &PersistenceError{Op: "clear yearly summary", Err: err}
		}
		return nil
	}

	rows := make([]models.YearlySummary, 0, len(perModel))
	for _, r := range perModel {
		rows = append(rows, models.YearlySummary{
			Year:         year,
			MinerModel:   r.MinerModel,
			TotalVolume:  r.TotalVolume,
			TotalPayment: r.TotalPayment,
			TotalBitcoin: r.TotalBitcoin,
		})
	}

	err = a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "miner_model"}},
		DoUpdates: clause.AssignmentColumns(summaryMeasures),
	}).Create(&rows).Error
	if err != nil {
		return &PersistenceError{Op: "upsert yearly summary", Err: err}
	}
	return nil
}
