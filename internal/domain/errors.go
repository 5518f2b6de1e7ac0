package domain

import (
	"errors"
	"fmt"
)

// ErrItemNotFound means the named drug does not exist in the catalog.
var ErrItemNotFound = errors.New("item not found")

// ErrAllModelsFailed means no forecast adapter produced a usable forecast.
var ErrAllModelsFailed = errors.New("all forecast models failed")

// ErrStoreUnavailable means the persistence layer could not be reached.
var ErrStoreUnavailable = errors.New("store unavailable")

// InsufficientDataError reports a series shorter than the minimum sample
// threshold required by the engines.
type InsufficientDataError struct {
	Item     string
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d days available, %d required", e.Item, e.Rows, e.Required)
}

// IsInsufficientData reports whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ide *InsufficientDataError
	return errors.As(err, &ide)
}

// ModelFitError is a single-adapter failure. It is recorded in the
// comparison set and never aborts the engine on its own.
type ModelFitError struct {
	Model string
	Err   error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model %s failed to fit: %v", e.Model, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// StoreError wraps a driver-level failure as ErrStoreUnavailable while
// keeping the original cause in the chain.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
