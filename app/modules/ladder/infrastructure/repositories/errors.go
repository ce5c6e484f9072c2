package ladderdb

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStatusConflict indicates a compare-and-set on a status column matched
	// no rows because another writer moved the row first.
	ErrStatusConflict = errors.New("status changed concurrently")
)
