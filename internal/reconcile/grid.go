package reconcile

import (
	"gridsettle/internal/models"

	"gorm.io/gorm"
)

// PeriodsPerDay is the fixed settlement grid: every date has exactly 48
// half-hour periods. Anything less is incomplete, however the gaps fall.
const PeriodsPerDay = 48

// MissingPeriods returns the ordered settlement periods absent from present
// and whether the date's grid is complete. Period numbers outside 1..48 are
// ignored.
func MissingPeriods(present []int) ([]int, bool) {
	seen := make(map[int]bool, len(present))
	for _, p := range present {
		if p >= 1 && p <= PeriodsPerDay {
			seen[p] = true
		}
	}

	missing := make([]int, 0, PeriodsPerDay-len(seen))
	for p := 1; p <= PeriodsPerDay; p++ {
		if !seen[p] {
			missing = append(missing, p)
		}
	}
	return missing, len(missing) == 0
}

// PresentPeriods lists the distinct settlement periods stored for a date.
func PresentPeriods(db *gorm.DB, date string) ([]int, error) {
	var periods []int
	err := db.Model(&models.CurtailmentRecord{}).
		Where("settlement_date = ?", date).
		Distinct("settlement_period").
		Order("settlement_period").
		Pluck("settlement_period", &periods).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list settlement periods", Err: err}
	}
	return periods, nil
}
