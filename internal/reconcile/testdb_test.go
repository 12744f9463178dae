package reconcile

import (
	"fmt"
	"strings"
	"testing"

	"gridsettle/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.CurtailmentRecord{},
		&models.MintingRecord{},
		&models.DailySummary{},
		&models.MonthlySummary{},
		&models.YearlySummary{},
		&models.DifficultyRecord{},
		&models.ReconcileRun{},
	))
	return db
}

func seedRecord(t *testing.T, db *gorm.DB, date string, period int, bmUnit string, volume, payment float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.CurtailmentRecord{
		SettlementDate:   date,
		SettlementPeriod: period,
		BmUnit:           bmUnit,
		LeadParty:        "Test Lead Party",
		Volume:           volume,
		Payment:          payment,
		Currency:         "GBP",
	}).Error)
}
