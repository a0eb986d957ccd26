package types

// AuditAction names what a single audit entry records
type AuditAction string

const (
	AuditActionCreated               AuditAction = "created"
	AuditActionStageTransition       AuditAction = "stage_transition"
	AuditActionCancelled             AuditAction = "cancelled"
	AuditActionCancelledWithFallback AuditAction = "cancelled_with_fallback"
	AuditActionAppointmentCancelled  AuditAction = "appointment_cancelled"
)

// String returns the string representation of the audit action
func (a AuditAction) String() string {
	return string(a)
}

// EntityType names the kind of record an audit entry refers to
type EntityType string

const (
	EntityTypeCase        EntityType = "case"
	EntityTypeAppointment EntityType = "appointment"
)

// String returns the string representation of the entity type
func (t EntityType) String() string {
	return string(t)
}
