package models

import "time"

// DifficultyRecord caches the Bitcoin network difficulty for one date.
// Written once per date and treated as read-only afterwards.
type DifficultyRecord struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Date       string    `json:"date" gorm:"type:varchar(10);not null;uniqueIndex"`
	Difficulty float64   `json:"difficulty" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DifficultyRecord) TableName() string {
	return "difficulty_record"
}
