package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Case() CaseRepository
	Appointment() AppointmentRepository
	Inspection() InspectionRepository
	Audit() AuditRepository
	Sequence() SequenceRepository

	// Close releases the underlying client, if any
	Close() error
}
