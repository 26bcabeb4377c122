package observatory

import "errors"

// Failures inside a run degrade to reduced coverage and are reported through
// the run summary; these sentinels surface only for caller mistakes.

// ErrInvalidInput is returned when an argument fails validation.
var ErrInvalidInput = errors.New("observatory: invalid input")

// ErrDuplicateSource is returned when a source with the same location already
// exists.
var ErrDuplicateSource = errors.New("observatory: source with this location already exists")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("observatory: not found")
