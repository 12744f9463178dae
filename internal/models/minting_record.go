package models

import "time"

// MintingRecord holds the Bitcoin a given miner model could have mined with
// the energy of one curtailment record. Difficulty is the network difficulty
// the value was computed with, kept so a row can be reproduced later.
type MintingRecord struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SettlementDate   string    `json:"settlement_date" gorm:"type:varchar(10);not null;uniqueIndex:idx_minting_key;index"`
	SettlementPeriod int       `json:"settlement_period" gorm:"not null;uniqueIndex:idx_minting_key"`
	BmUnit           string    `json:"bm_unit" gorm:"type:varchar(64);not null;uniqueIndex:idx_minting_key"`
	MinerModel       string    `json:"miner_model" gorm:"type:varchar(32);not null;uniqueIndex:idx_minting_key"`
	BitcoinMined     float64   `json:"bitcoin_mined"`
	Difficulty       float64   `json:"difficulty"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (MintingRecord) TableName() string {
	return "minting_record"
}
