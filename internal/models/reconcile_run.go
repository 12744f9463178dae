package models

import "time"

// ReconcileRun is the persisted report of one orchestrated date. Period
// lists and discrepancies are stored as JSON text so the report survives
// as written even if the source tables change later.
type ReconcileRun struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SettlementDate   string    `json:"settlement_date" gorm:"type:varchar(10);not null;index"`
	Action           string    `json:"action" gorm:"type:varchar(32);not null"`
	FinalState       string    `json:"final_state" gorm:"type:varchar(32);not null"`
	MissingPeriods   string    `json:"missing_periods" gorm:"type:text"`
	FailedPeriods    string    `json:"failed_periods" gorm:"type:text"`
	Discrepancies    string    `json:"discrepancies" gorm:"type:text"`
	DiscrepancyCount int       `json:"discrepancy_count"`
	RecordsIngested  int       `json:"records_ingested"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ReconcileRun) TableName() string {
	return "reconcile_run"
}
