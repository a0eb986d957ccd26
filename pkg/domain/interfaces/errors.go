package interfaces

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by all repository backends. Callers match with
// errors.Is; backends wrap them with goerr.V context.
var (
	ErrNotFound = goerr.New("record not found")

	// ErrRequestConflict signals the one-case-per-request invariant:
	// a case for the request already exists.
	ErrRequestConflict = goerr.New("case already exists for request")

	// ErrNumberConflict signals a display number collision under
	// concurrent creation.
	ErrNumberConflict = goerr.New("display number already in use")

	// ErrStale signals a compare-and-swap stage write that matched zero
	// rows because the stage moved underneath the caller.
	ErrStale = goerr.New("case stage changed concurrently")
)
