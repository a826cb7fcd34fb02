package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrRunNotFound     = fmt.Errorf("%w: test run", ErrNotFound)
	ErrPlanNotFound    = fmt.Errorf("%w: test plan", ErrNotFound)
	ErrAssetNotFound   = fmt.Errorf("%w: asset", ErrNotFound)
	ErrAdapterNotFound = fmt.Errorf("%w: test adapter", ErrNotFound)

	// Validation errors
	ErrMissingColumn     = errors.New("required column missing from dataset")
	ErrIncompatibleModel = errors.New("model type incompatible with test")
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrInvalidConfig     = errors.New("invalid test configuration")

	// Lifecycle errors
	ErrInvalidTransition = errors.New("invalid run state transition")
	ErrRunTerminal       = errors.New("test run already in terminal state")
	ErrRunNotPending     = errors.New("test run is not pending")

	// Sensitivity errors
	ErrClassificationDowngrade = errors.New("data classification downgrade not permitted")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrMissingColumn, column)
}

func NewTransitionError(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAdapterInputError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrIncompatibleModel) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidConfig)
}

func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRunTerminal) ||
		errors.Is(err, ErrRunNotPending)
}
