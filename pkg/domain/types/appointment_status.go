package types

// AppointmentStatus represents the lifecycle of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// IsValid checks if the appointment status is a known value
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the appointment status
func (s AppointmentStatus) String() string {
	return string(s)
}
