package models

import "time"

// DailySummary is the per-date, per-miner-model aggregate tier. Measure
// columns are always recomputed wholesale from the record tables, never
// incremented in place.
type DailySummary struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SummaryDate  string    `json:"summary_date" gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_summary;index"`
	MinerModel   string    `json:"miner_model" gorm:"type:varchar(32);not null;uniqueIndex:idx_daily_summary"`
	TotalVolume  float64   `json:"total_volume"`
	TotalPayment float64   `json:"total_payment"`
	TotalBitcoin float64   `json:"total_bitcoin"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DailySummary) TableName() string {
	return "daily_summary"
}

// MonthlySummary sums the daily tier for a calendar month ("YYYY-MM").
type MonthlySummary struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	YearMonth    string    `json:"year_month" gorm:"column:year_month;type:varchar(7);not null;uniqueIndex:idx_monthly_summary;index"`
	MinerModel   string    `json:"miner_model" gorm:"type:varchar(32);not null;uniqueIndex:idx_monthly_summary"`
	TotalVolume  float64   `json:"total_volume"`
	TotalPayment float64   `json:"total_payment"`
	TotalBitcoin float64   `json:"total_bitcoin"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (MonthlySummary) TableName() string {
	return "monthly_summary"
}

// YearlySummary sums the monthly tier for a calendar year ("YYYY").
type YearlySummary struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Year         string    `json:"year" gorm:"type:varchar(4);not null;uniqueIndex:idx_yearly_summary;index"`
	MinerModel   string    `json:"miner_model" gorm:"type:varchar(32);not null;uniqueIndex:idx_yearly_summary"`
	TotalVolume  float64   `json:"total_volume"`
	TotalPayment float64   `json:"total_payment"`
	TotalBitcoin float64   `json:"total_bitcoin"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (YearlySummary) TableName() string {
	return "yearly_summary"
}
