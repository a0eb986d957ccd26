package interfaces

import (
	"context"

	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// AppointmentRepository defines data access for companion scheduling records
type AppointmentRepository interface {
	// Put stores an appointment, creating or replacing it
	Put(ctx context.Context, a *model.Appointment) (*model.Appointment, error)

	// Get retrieves an appointment by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id types.AppointmentID) (*model.Appointment, error)

	// SetStatus updates an appointment's status.
	// Returns ErrNotFound if absent.
	SetStatus(ctx context.Context, id types.AppointmentID, status types.AppointmentStatus) (*model.Appointment, error)

	// ListAssigned returns all appointments assigned to the given actor
	ListAssigned(ctx context.Context, actor types.ActorID) ([]*model.Appointment, error)
}

// InspectionRepository defines data access for inspection records
type InspectionRepository interface {
	Put(ctx context.Context, i *model.Inspection) (*model.Inspection, error)
	Get(ctx context.Context, id types.InspectionID) (*model.Inspection, error)
	ListAssigned(ctx context.Context, actor types.ActorID) ([]*model.Inspection, error)
}
