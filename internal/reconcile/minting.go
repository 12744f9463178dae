package reconcile

import (
	"context"
	"errors"
	"math"

	"gridsettle/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MinerModel describes a fixed-spec ASIC used for potential-output
// calculations.
type MinerModel struct {
	Name        string
	PowerWatts  float64
	HashrateTHS float64
}

// MinerModels are the supported model variants. Every curtailment record
// gets one minting record per model.
var MinerModels = []MinerModel{
	{Name: "S19J_PRO", PowerWatts: 3050, HashrateTHS: 100},
	{Name: "S9", PowerWatts: 1323, HashrateTHS: 13.5},
	{Name: "M20S", PowerWatts: 3360, HashrateTHS: 68},
}

const (
	blockRewardBTC  = 3.125
	secondsPerBlock = 600

	// A settlement period is 30 minutes: three expected blocks.
	blocksPerPeriod = 3
)

// DeviceCount returns how many miners of the model the curtailed energy
// could have powered for one settlement period. Volume arrives negative;
// its magnitude is the energy available.
func DeviceCount(volumeMWh float64, m MinerModel) float64 {
	return math.Floor(math.Abs(volumeMWh) * 1000 / (m.PowerWatts / 1000))
}

// NetworkHashrateTHS converts a network difficulty into the implied network
// hashrate in TH/s.
func NetworkHashrateTHS(difficulty float64) float64 {
	return difficulty * math.Pow(2, 32) / secondsPerBlock / 1e12
}

// PotentialBitcoin returns the Bitcoin a fleet of the given model, sized to
// the curtailed energy, could have mined in one settlement period.
func PotentialBitcoin(volumeMWh, difficulty float64, m MinerModel) float64 {
	network := NetworkHashrateTHS(difficulty)
	if network == 0 {
		return 0
	}
	share := DeviceCount(volumeMWh, m) * m.HashrateTHS / network
	return share * blockRewardBTC * blocksPerPeriod
}

// ParameterSource resolves the network difficulty for a date.
type ParameterSource interface {
	DifficultyForDate(ctx context.Context, date string) (float64, error)
}

// Calculator rebuilds minting records for whole dates. The difficulty is
// resolved once per date and reused for every record, so a rerun with the
// same inputs produces identical rows.
type Calculator struct {
	db     *gorm.DB
	source ParameterSource
}

func NewCalculator(db *gorm.DB, source ParameterSource) *Calculator {
	return &Calculator{db: db, source: source}
}

// RecomputeDate replaces every minting record for the date.
func (c *Calculator) RecomputeDate(ctx context.Context, date string) error {
	difficulty, err := c.resolveDifficulty(ctx, date)
	if err != nil {
		return &MissingParameterError{Date: date, Err: err}
	}

	var records []models.CurtailmentRecord
	if err := c.db.Where("settlement_date = ?", date).Find(&records).Error; err != nil {
		return &PersistenceError{Op: "load curtailment records", Err: err}
	}

	mintings := make([]models.MintingRecord, 0, len(records)*len(MinerModels))
	for _, r := range records {
		for _, m := range MinerModels {
			mintings = append(mintings, models.MintingRecord{
				SettlementDate:   r.SettlementDate,
				SettlementPeriod: r.SettlementPeriod,
				BmUnit:           r.BmUnit,
				MinerModel:       m.Name,
				BitcoinMined:     PotentialBitcoin(r.Volume, difficulty, m),
				Difficulty:       difficulty,
			})
		}
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("settlement_date = ?", date).
			Delete(&models.MintingRecord{}).Error; err != nil {
			return err
		}
		if len(mintings) == 0 {
			return nil
		}
		return tx.CreateInBatches(mintings, 500).Error
	})
	if err != nil {
		return &PersistenceError{Op: "replace minting records", Err: err}
	}

	log.WithFields(log.Fields{
		"date":       date,
		"records":    len(mintings),
		"difficulty": difficulty,
	}).Info("Recomputed minting records")
	return nil
}

// resolveDifficulty prefers the stored value so a rerun reuses the
// difficulty the date was first computed with; only unseen dates hit the
// upstream API.
func (c *Calculator) resolveDifficulty(ctx context.Context, date string) (float64, error) {
	var rec models.DifficultyRecord
	err := c.db.Where("date = ?", date).First(&rec).Error
	if err == nil {
		return rec.Difficulty, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	value, err := c.source.DifficultyForDate(ctx, date)
	if err != nil {
		return 0, err
	}
	if err := c.db.Create(&models.DifficultyRecord{Date: date, Difficulty: value}).Error; err != nil {
		return 0, err
	}
	return value, nil
}
