package kalman

import "errors"

var (
	// ErrInsufficientData is returned when initialization input is too short
	// or the two price series have mismatched lengths. Recoverable: the
	// caller may retry once more history has accumulated.
	ErrInsufficientData = errors.New("insufficient data for initialization")

	// ErrNotInitialized is returned when Update is called before Init.
	// This is a programming error in the caller.
	ErrNotInitialized = errors.New("filter not initialized")

	// ErrNumericalInstability is returned when a non-finite or
	// non-positive-semidefinite state is detected. The filter falls back to
	// the last known good output for the tick; a reset is recommended.
	ErrNumericalInstability = errors.New("numerical instability detected")
)
