package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// CaseID represents a unique identifier for a case
type CaseID string

// NewCaseID generates a new random CaseID
func NewCaseID() CaseID {
	return CaseID(uuid.New().String())
}

// Validate checks if the CaseID is valid
func (i CaseID) Validate() error {
	if i == "" {
		return goerr.New("case ID cannot be empty")
	}
	return nil
}

// String returns the string representation of CaseID
func (i CaseID) String() string {
	return string(i)
}

// RequestID is the natural key of a case: the upstream assessment request
// it was created for. It is assigned by the intake system, not generated
// here.
type RequestID string

// Validate checks if the RequestID is valid
func (i RequestID) Validate() error {
	if i == "" {
		return goerr.New("request ID cannot be empty")
	}
	return nil
}

// String returns the string representation of RequestID
func (i RequestID) String() string {
	return string(i)
}

// AppointmentID represents a unique identifier for an appointment
type AppointmentID string

// NewAppointmentID generates a new random AppointmentID
func NewAppointmentID() AppointmentID {
	return AppointmentID(uuid.New().String())
}

// Validate checks if the AppointmentID is valid
func (i AppointmentID) Validate() error {
	if i == "" {
		return goerr.New("appointment ID cannot be empty")
	}
	return nil
}

// String returns the string representation of AppointmentID
func (i AppointmentID) String() string {
	return string(i)
}

// InspectionID represents a unique identifier for an inspection
type InspectionID string

// NewInspectionID generates a new random InspectionID
func NewInspectionID() InspectionID {
	return InspectionID(uuid.New().String())
}

// Validate checks if the InspectionID is valid
func (i InspectionID) Validate() error {
	if i == "" {
		return goerr.New("inspection ID cannot be empty")
	}
	return nil
}

// String returns the string representation of InspectionID
func (i InspectionID) String() string {
	return string(i)
}

// ActorID identifies a caller. It is resolved by the surrounding system;
// this package only carries it.
type ActorID string

// String returns the string representation of ActorID
func (i ActorID) String() string {
	return string(i)
}

// AuditEntryID represents a unique identifier for an audit entry
type AuditEntryID string

// NewAuditEntryID generates a new random AuditEntryID
func NewAuditEntryID() AuditEntryID {
	return AuditEntryID(uuid.New().String())
}

// String returns the string representation of AuditEntryID
func (i AuditEntryID) String() string {
	return string(i)
}
