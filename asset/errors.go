package asset

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAssetNotFound is returned when a referenced asset doesn't exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrMissingCost, ErrMissingUsefulLife and ErrMissingAcquisitionDate mark
	// assets the year-end batch cannot depreciate. The batch skips them.
	ErrMissingCost            = errors.New("asset has no cost")
	ErrMissingUsefulLife      = errors.New("asset has no useful life")
	ErrMissingAcquisitionDate = errors.New("asset has no acquisition date")

	// ErrInvalidResidualValue is returned when residual value is negative or above cost.
	ErrInvalidResidualValue = errors.New("residual value must be between 0 and cost")

	// ErrInvalidCost is returned for a negative cost.
	ErrInvalidCost = errors.New("cost must not be negative")

	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid asset status")

	// ErrInvalidUsefulLife is returned when a new asset's useful life is not positive.
	ErrInvalidUsefulLife = errors.New("useful life must be positive")

	// ErrUsefulLifeTooLong is returned when useful life exceeds MaxUsefulLife.
	ErrUsefulLifeTooLong = errors.New("useful life exceeds 100 years")

	errEmpty = errors.New("must not be empty")
)

// ValidationError names the field that failed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing asset.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidResidualValue) ||
		errors.Is(err, ErrInvalidCost) ||
		errors.Is(err, ErrInvalidUsefulLife) ||
		errors.Is(err, ErrUsefulLifeTooLong)
}

// IsIncomplete returns true if the asset lacks a required depreciation input.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrMissingCost) ||
		errors.Is(err, ErrMissingUsefulLife) ||
		errors.Is(err, ErrMissingAcquisitionDate)
}
