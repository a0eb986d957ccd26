package model

import (
	"time"

	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// Appointment is the companion scheduling record a case links to from
// appointment_scheduled onward. The pipeline does not validate its business
// content; it stores only the assignment and status needed for visibility
// scoping and cancellation fallback.
type Appointment struct {
	ID         types.AppointmentID
	AssigneeID types.ActorID
	Status     types.AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a copy of the appointment
func (a *Appointment) Clone() *Appointment {
	cloned := *a
	return &cloned
}

// Inspection is the inspection-assignment record a case links to once
// inspection scheduling occurs.
type Inspection struct {
	ID           types.InspectionID
	AssigneeID   types.ActorID
	ScheduledFor time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a copy of the inspection
func (i *Inspection) Clone() *Inspection {
	cloned := *i
	return &cloned
}
