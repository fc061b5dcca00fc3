package invoice

import "errors"

var (
	// ErrNoValidRows is returned when no row survives the customer and
	// status filters.
	ErrNoValidRows = errors.New("no valid rows: every row lacks a customer or has an excluded status")

	// ErrInvalidOptions is returned for unusable build parameters.
	ErrInvalidOptions = errors.New("invalid invoice options")
)
