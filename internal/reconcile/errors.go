package reconcile

import (
	"errors"
	"fmt"

	"gridsettle/pkg/elexon"
)

// ErrDateBusy is returned when a run is requested for a settlement date that
// already has an orchestration in flight.
var ErrDateBusy = errors.New("reconciliation already in progress for this date")

// MissingParameterError means the network difficulty for a date could not be
// resolved. It blocks the derived-metric stage for that date only.
type MissingParameterError struct {
	Date string
	Err  error
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("difficulty unavailable for %s: %v", e.Date, e.Err)
}

func (e *MissingParameterError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a storage failure. The write it interrupted is
// idempotent, so the same scope can simply be re-run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable upstream failure.
func IsTransient(err error) bool {
	var te *elexon.TransientError
	return errors.As(err, &te)
}
