package usecase

import "errors"

// Sentinel errors for the lifecycle service layer
var (
	// ErrDuplicateRequest is recoverable: a case already exists for the
	// request and the caller should fall back to fetch-by-request.
	ErrDuplicateRequest = errors.New("case already exists for request")

	// ErrSequenceExhausted is fatal: display number generation failed after
	// the bounded retry budget. Nothing was persisted.
	ErrSequenceExhausted = errors.New("display number generation exhausted retry budget")

	ErrCaseNotFound = errors.New("case not found")
)

// Context keys for error values
const (
	CaseIDKey    = "case_id"
	RequestIDKey = "request_id"
)
