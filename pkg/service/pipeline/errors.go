package pipeline

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors surfaced by the transition engine
var (
	// ErrInvalidTransition signals a target stage that is not the immediate
	// successor (and not the cancelled sink). Indicates caller-side logic or
	// stale UI state; never retried automatically.
	ErrInvalidTransition = goerr.New("invalid stage transition")

	// ErrMissingAppointmentLink signals a transition into a stage that
	// requires an appointment link while none is set. The caller must supply
	// the link and retry the same logical operation.
	ErrMissingAppointmentLink = goerr.New("appointment link required for target stage")

	// ErrStaleTransition signals a transition that lost a concurrent race
	// and whose desired end state was NOT already reached by the winner.
	ErrStaleTransition = goerr.New("case stage moved concurrently")
)

// Context keys for error values
const (
	CaseIDKey    = "case_id"
	FromStageKey = "from_stage"
	ToStageKey   = "to_stage"
)
