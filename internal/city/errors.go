package city

import "errors"

// Contract violations. Both are programming errors on the caller's side and
// are never retried.
var (
	// ErrInvalidConfiguration reports bad building constructor arguments.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidGridState reports out-of-bounds placement, overlapping
	// footprints, or cells that reference unknown buildings.
	ErrInvalidGridState = errors.New("invalid grid state")
)
