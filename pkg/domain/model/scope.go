package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// ScopeJoin names which linked record's assignment governs a restricted
// actor's visibility of a case at a given stage.
type ScopeJoin string

const (
	ScopeJoinInspection  ScopeJoin = "inspection"
	ScopeJoinAppointment ScopeJoin = "appointment"
)

// IsValid checks if the scope join is a known value
func (j ScopeJoin) IsValid() bool {
	switch j {
	case ScopeJoinInspection, ScopeJoinAppointment:
		return true
	default:
		return false
	}
}

// VisibilityPolicy maps each stage to the join path used for restricted
// actors. It is an explicit table, not inline conditionals: the assignments
// are business policy and individually overridable from configuration.
type VisibilityPolicy struct {
	joins map[types.Stage]ScopeJoin
}

// DefaultVisibilityPolicy returns the built-in mapping: inspection-assignment
// for every stage before appointment_scheduled, appointment-assignment from
// there on. The cancelled sink uses the appointment path; Match falls back to
// the inspection path when a cancelled case carries no appointment link.
func DefaultVisibilityPolicy() *VisibilityPolicy {
	joins := make(map[types.Stage]ScopeJoin)
	for _, s := range types.PipelineStages() {
		if s.RequiresAppointment() {
			joins[s] = ScopeJoinAppointment
		} else {
			joins[s] = ScopeJoinInspection
		}
	}
	joins[types.StageCancelled] = ScopeJoinAppointment
	return &VisibilityPolicy{joins: joins}
}

// NewVisibilityPolicy returns the default policy with the given per-stage
// overrides applied.
func NewVisibilityPolicy(overrides map[types.Stage]ScopeJoin) (*VisibilityPolicy, error) {
	p := DefaultVisibilityPolicy()
	for stage, join := range overrides {
		if !stage.IsValid() {
			return nil, goerr.New("invalid stage in visibility policy", goerr.V("stage", stage))
		}
		if !join.IsValid() {
			return nil, goerr.New("invalid join path in visibility policy",
				goerr.V("stage", stage), goerr.V("join", join))
		}
		p.joins[stage] = join
	}
	return p, nil
}

// JoinFor returns the join path for the given stage
func (p *VisibilityPolicy) JoinFor(stage types.Stage) ScopeJoin {
	if j, ok := p.joins[stage]; ok {
		return j
	}
	return ScopeJoinInspection
}

// AssignmentLookup answers assignment questions against the linked
// sub-records. Both repository backends provide one so list and count share
// the exact same predicate.
type AssignmentLookup interface {
	AppointmentAssignedTo(id types.AppointmentID, actor types.ActorID) bool
	InspectionAssignedTo(id types.InspectionID, actor types.ActorID) bool
}

// CaseQuery is the one predicate definition behind every stage-filtered,
// actor-scoped read: list pages, detail guards and badge counters all go
// through Match. Keeping a single construction path is what prevents the
// "badge says 4, page shows 1" class of drift.
type CaseQuery struct {
	Stages []types.Stage
	Actor  Actor

	// Policy overrides the default visibility policy when non-nil
	Policy *VisibilityPolicy
}

func (q CaseQuery) policy() *VisibilityPolicy {
	if q.Policy != nil {
		return q.Policy
	}
	return DefaultVisibilityPolicy()
}

// WantsStage reports whether the query's stage set includes s. An empty
// stage set matches every stage.
func (q CaseQuery) WantsStage(s types.Stage) bool {
	if len(q.Stages) == 0 {
		return true
	}
	for _, want := range q.Stages {
		if want == s {
			return true
		}
	}
	return false
}

// Match is the authoritative visibility predicate for a case under this
// query. Admin actors see every case in the stage set; restricted actors see
// a case only when the policy-selected linked record is assigned to them.
func (q CaseQuery) Match(c *Case, assignments AssignmentLookup) bool {
	if !q.WantsStage(c.Stage) {
		return false
	}
	if q.Actor.Admin() {
		return true
	}

	join := q.policy().JoinFor(c.Stage)
	if join == ScopeJoinAppointment && c.AppointmentRef == nil {
		join = ScopeJoinInspection
	}

	switch join {
	case ScopeJoinAppointment:
		return assignments.AppointmentAssignedTo(*c.AppointmentRef, q.Actor.ID)
	case ScopeJoinInspection:
		if c.InspectionRef == nil {
			return false
		}
		return assignments.InspectionAssignedTo(*c.InspectionRef, q.Actor.ID)
	default:
		return false
	}
}
