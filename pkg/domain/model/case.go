package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// Case is the canonical assessment record. Its stage field is the single
// authoritative position in the pipeline; every derived view re-derives from
// it. A case is never hard-deleted.
type Case struct {
	ID             types.CaseID
	DisplayNumber  string
	RequestID      types.RequestID
	Stage          types.Stage
	AppointmentRef *types.AppointmentID
	InspectionRef  *types.InspectionID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy of the case
func (c *Case) Clone() *Case {
	cloned := *c
	if c.AppointmentRef != nil {
		ref := *c.AppointmentRef
		cloned.AppointmentRef = &ref
	}
	if c.InspectionRef != nil {
		ref := *c.InspectionRef
		cloned.InspectionRef = &ref
	}
	return &cloned
}

// HasAppointment reports whether the case carries an appointment link
func (c *Case) HasAppointment() bool {
	return c.AppointmentRef != nil
}

// Validate checks the case's standing invariants. It is re-run on every
// repository write: the appointment link must exist at and after
// appointment_scheduled and must be absent before it.
func (c *Case) Validate() error {
	if err := c.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid case ID")
	}
	if err := c.RequestID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid request ID", goerr.V("case_id", c.ID))
	}
	if c.DisplayNumber == "" {
		return goerr.New("display number is required", goerr.V("case_id", c.ID))
	}
	if !c.Stage.IsValid() {
		return goerr.New("invalid stage", goerr.V("case_id", c.ID), goerr.V("stage", c.Stage))
	}
	if c.Stage.RequiresAppointment() && c.AppointmentRef == nil {
		return goerr.New("appointment link is required at this stage",
			goerr.V("case_id", c.ID), goerr.V("stage", c.Stage))
	}
	if c.Stage != types.StageCancelled && !c.Stage.RequiresAppointment() && c.AppointmentRef != nil {
		return goerr.New("appointment link must not be set before appointment_scheduled",
			goerr.V("case_id", c.ID), goerr.V("stage", c.Stage))
	}
	return nil
}

// StagePatch is the single atomic write unit for a stage change. Stage and
// linked references always move together so a failed transition never leaves
// partial state.
type StagePatch struct {
	Stage types.Stage

	// SetAppointmentRef/SetInspectionRef control whether the corresponding
	// ref is written at all; a set with a nil value clears the link.
	SetAppointmentRef bool
	AppointmentRef    *types.AppointmentID
	SetInspectionRef  bool
	InspectionRef     *types.InspectionID
}

// Apply returns a copy of c with the patch applied
func (p StagePatch) Apply(c *Case) *Case {
	next := c.Clone()
	next.Stage = p.Stage
	if p.SetAppointmentRef {
		next.AppointmentRef = p.AppointmentRef
	}
	if p.SetInspectionRef {
		next.InspectionRef = p.InspectionRef
	}
	return next
}
