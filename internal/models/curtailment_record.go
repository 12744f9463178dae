package models

import "time"

// CurtailmentRecord represents one accepted curtailment for a BM unit in a
// single settlement period. Volume and payment are both stored negative
// (curtailed energy, money owed).
type CurtailmentRecord struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SettlementDate   string    `json:"settlement_date" gorm:"type:varchar(10);not null;uniqueIndex:idx_curtailment_key;index"`
	SettlementPeriod int       `json:"settlement_period" gorm:"not null;uniqueIndex:idx_curtailment_key"`
	BmUnit           string    `json:"bm_unit" gorm:"type:varchar(64);not null;uniqueIndex:idx_curtailment_key"`
	LeadParty        string    `json:"lead_party" gorm:"type:varchar(128)"`
	Volume           float64   `json:"volume"`
	Payment          float64   `json:"payment"`
	Currency         string    `json:"currency" gorm:"type:varchar(8);default:GBP"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CurtailmentRecord) TableName() string {
	return "curtailment_record"
}
