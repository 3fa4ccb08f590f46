package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors abort before any numeric work begins.
	ErrConfiguration = errors.New("invalid configuration")
	ErrNoDatasets    = fmt.Errorf("%w: neither an observed nor a simulated dataset was supplied", ErrConfiguration)
	ErrAsymmetricCI  = fmt.Errorf("%w: confidence interval must be symmetric around 0.5", ErrConfiguration)

	// Column errors
	ErrColumnNotFound = errors.New("column not found")

	// Persistence errors
	ErrRunNotFound = errors.New("run not found")
)

// Error constructors with context

func NewConfigurationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, reason)
}

func NewColumnNotFoundError(dataset, column string) error {
	if dataset == "" {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return fmt.Errorf("%w: %q in %s dataset", ErrColumnNotFound, column, dataset)
}

func NewStratificationError(requested, limit int, rtte bool) error {
	if rtte {
		return fmt.Errorf("%w: %d stratification variables requested but repeated time-to-event mode supports at most %d", ErrConfiguration, requested, limit)
	}
	return fmt.Errorf("%w: %d stratification variables requested but at most %d are supported", ErrConfiguration, requested, limit)
}

// Error checking helpers

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsColumnNotFound(err error) bool {
	return errors.Is(err, ErrColumnNotFound)
}

func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
