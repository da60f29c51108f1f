package history

import "errors"

var (
	// ErrStoreUnavailable marks a failed store query. It is retryable: the
	// pending batch window is left untouched.
	ErrStoreUnavailable = errors.New("history store unavailable")

	// ErrStaleResult marks a batch result for a superseded window. Callers
	// drop it without surfacing anything to the user.
	ErrStaleResult = errors.New("stale batch result")
)
