package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gridsettle/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceDifficulty = 1.0e14

// fakeParams serves a fixed difficulty and counts lookups.
type fakeParams struct {
	mu         sync.Mutex
	difficulty float64
	err        error
	calls      int
}

func (f *fakeParams) DifficultyForDate(ctx context.Context, date string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.difficulty, nil
}

func (f *fakeParams) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func minerModel(t *testing.T, name string) MinerModel {
	t.Helper()
	for _, m := range MinerModels {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("unknown miner model %s", name)
	return MinerModel{}
}

func TestDeviceCount(t *testing.T) {
	m := minerModel(t, "S19J_PRO")

	// 100 MWh over half an hour powers floor(100000 / 3.05) devices.
	assert.Equal(t, 32786.0, DeviceCount(-100, m))
	assert.Equal(t, 32786.0, DeviceCount(100, m))
	assert.Equal(t, 0.0, DeviceCount(0, m))
}

func TestPotentialBitcoinReferenceValue(t *testing.T) {
	m := minerModel(t, "S19J_PRO")

	// 32786 devices at 100 TH/s against a 1.0e14 difficulty network
	// (715,827,882.67 TH/s) over three blocks at 3.125 BTC.
	got := PotentialBitcoin(-100, referenceDifficulty, m)
	assert.InEpsilon(t, 0.0429389, got, 0.001)
}

func TestPotentialBitcoinZeroDifficulty(t *testing.T) {
	m := minerModel(t, "S19J_PRO")
	assert.Equal(t, 0.0, PotentialBitcoin(-100, 0, m))
}

func TestRecomputeDateCreatesRowPerModel(t *testing.T) {
	db := newTestDB(t)
	seedRecord(t, db, "2025-03-01", 1, "T_WIND-1", -40, -800)
	seedRecord(t, db, "2025-03-01", 2, "T_WIND-2", -10, -150)

	params := &fakeParams{difficulty: referenceDifficulty}
	calc := NewCalculator(db, params)
	require.NoError(t, calc.RecomputeDate(context.Background(), "2025-03-01"))

	var count int64
	require.NoError(t, db.Model(&models.MintingRecord{}).Count(&count).Error)
	assert.EqualValues(t, 2*len(MinerModels), count)

	var rec models.MintingRecord
	require.NoError(t, db.Where("bm_unit = ? AND miner_model = ?", "T_WIND-1", "S19J_PRO").First(&rec).Error)
	assert.Equal(t, referenceDifficulty, rec.Difficulty)
	assert.InDelta(t, PotentialBitcoin(-40, referenceDifficulty, minerModel(t, "S19J_PRO")), rec.BitcoinMined, 1e-12)
}

func TestRecomputeDateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedRecord(t, db, "2025-03-01", 1, "T_WIND-1", -40, -800)

	params := &fakeParams{difficulty: referenceDifficulty}
	calc := NewCalculator(db, params)
	require.NoError(t, calc.RecomputeDate(context.Background(), "2025-03-01"))
	require.NoError(t, calc.RecomputeDate(context.Background(), "2025-03-01"))

	var count int64
	require.NoError(t, db.Model(&models.MintingRecord{}).Count(&count).Error)
	assert.EqualValues(t, len(MinerModels), count)
}

func TestRecomputeDateCachesDifficulty(t *testing.T) {
	db := newTestDB(t)
	seedRecord(t, db, "2025-03-01", 1, "T_WIND-1", -40, -800)

	params := &fakeParams{difficulty: referenceDifficulty}
	calc := NewCalculator(db, params)
	require.NoError(t, calc.RecomputeDate(context.Background(), "2025-03-01"))
	require.NoError(t, calc.RecomputeDate(context.Background(), "2025-03-01"))

	// The stored difficulty record short-circuits the second lookup.
	assert.Equal(t, 1, params.callCount())

	var diffCount int64
	require.NoError(t, db.Model(&models.DifficultyRecord{}).Count(&diffCount).Error)
	assert.EqualValues(t, 1, diffCount)
}

func TestRecomputeDateMissingParameter(t *testing.T) {
	db := newTestDB(t)
	seedRecord(t, db, "2025-03-01", 1, "T_WIND-1", -40, -800)

	params := &fakeParams{err: fmt.Errorf("upstream down")}
	calc := NewCalculator(db, params)

	err := calc.RecomputeDate(context.Background(), "2025-03-01")
	var mpe *MissingParameterError
	require.ErrorAs(t, err, &mpe)
	assert.Equal(t, "2025-03-01", mpe.Date)

	var count int64
	require.NoError(t, db.Model(&models.MintingRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
