package types

import "github.com/m-mizutani/goerr/v2"

// Stage represents a case's position in the assessment pipeline. The main
// path is strictly ordered; cancelled is a sink reachable from every
// non-terminal stage.
type Stage string

const (
	StageInitial              Stage = "request_submitted"
	StageRequestAccepted      Stage = "request_accepted"
	StageInspectionScheduled  Stage = "inspection_scheduled"
	StageAppointmentScheduled Stage = "appointment_scheduled"
	StageAssessmentInProgress Stage = "assessment_in_progress"
	StageAssessmentCompleted  Stage = "assessment_completed"
	StageEstimateFinalized    Stage = "estimate_finalized"
	StageFRCInProgress        Stage = "frc_in_progress"
	StageFRCCompleted         Stage = "frc_completed"
	StageArchived             Stage = "archived"

	// StageCancelled is outside the ordered path
	StageCancelled Stage = "cancelled"
)

// pipelineOrder is the authoritative main-path ordering. AtOrAfter,
// Successor and RequiresAppointment all derive from the indexes here.
var pipelineOrder = []Stage{
	StageInitial,
	StageRequestAccepted,
	StageInspectionScheduled,
	StageAppointmentScheduled,
	StageAssessmentInProgress,
	StageAssessmentCompleted,
	StageEstimateFinalized,
	StageFRCInProgress,
	StageFRCCompleted,
	StageArchived,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(pipelineOrder))
	for i, s := range pipelineOrder {
		m[s] = i
	}
	return m
}()

// PipelineStages returns the ordered main path, excluding cancelled
func PipelineStages() []Stage {
	out := make([]Stage, len(pipelineOrder))
	copy(out, pipelineOrder)
	return out
}

// AllStages returns all valid stages including cancelled
func AllStages() []Stage {
	return append(PipelineStages(), StageCancelled)
}

// IsValid checks if the stage is a known value
func (s Stage) IsValid() bool {
	if s == StageCancelled {
		return true
	}
	_, ok := stageIndex[s]
	return ok
}

// Index returns the stage's position on the main path, or -1 for cancelled
// and unknown values
func (s Stage) Index() int {
	if i, ok := stageIndex[s]; ok {
		return i
	}
	return -1
}

// Successor returns the next stage on the main path. The second return is
// false for the last stage, cancelled and unknown values.
func (s Stage) Successor() (Stage, bool) {
	i, ok := stageIndex[s]
	if !ok || i+1 >= len(pipelineOrder) {
		return "", false
	}
	return pipelineOrder[i+1], true
}

// AtOrAfter reports whether the stage sits at or past other on the main
// path. Cancelled is ordered after nothing and before nothing.
func (s Stage) AtOrAfter(other Stage) bool {
	si, ok := stageIndex[s]
	if !ok {
		return false
	}
	oi, ok := stageIndex[other]
	if !ok {
		return false
	}
	return si >= oi
}

// Terminal reports whether the stage accepts no further transitions
func (s Stage) Terminal() bool {
	return s == StageArchived || s == StageCancelled
}

// RequiresAppointment reports whether a case at this stage must carry an
// appointment link
func (s Stage) RequiresAppointment() bool {
	return s.AtOrAfter(StageAppointmentScheduled)
}

// CanTransitionTo reports whether a single transition from s to target is
// legal: the immediate successor on the main path, or the cancelled sink
// from any non-terminal stage. Skips and reversals are never legal.
func (s Stage) CanTransitionTo(target Stage) bool {
	if s.Terminal() {
		return false
	}
	if target == StageCancelled {
		return true
	}
	next, ok := s.Successor()
	return ok && target == next
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// ParseStage parses a string into a Stage
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		return "", goerr.New("invalid stage", goerr.V("stage", s))
	}
	return stage, nil
}
