package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// CreateAppointment stores a companion scheduling record on behalf of the
// scheduling UI. Only assignment and status matter to the pipeline; the
// business content of an appointment lives in the surrounding system.
func (uc *UseCases) CreateAppointment(ctx context.Context, assignee types.ActorID) (*model.Appointment, error) {
	if assignee == "" {
		return nil, goerr.New("appointment assignee is required")
	}

	a := &model.Appointment{
		ID:         types.NewAppointmentID(),
		AssigneeID: assignee,
		Status:     types.AppointmentStatusScheduled,
	}
	created, err := uc.repo.Appointment().Put(ctx, a)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create appointment", goerr.V("assignee", assignee))
	}
	return created, nil
}

// CreateInspection stores an inspection-assignment record
func (uc *UseCases) CreateInspection(ctx context.Context, assignee types.ActorID, scheduledFor time.Time) (*model.Inspection, error) {
	if assignee == "" {
		return nil, goerr.New("inspection assignee is required")
	}

	i := &model.Inspection{
		ID:           types.NewInspectionID(),
		AssigneeID:   assignee,
		ScheduledFor: scheduledFor,
	}
	created, err := uc.repo.Inspection().Put(ctx, i)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create inspection", goerr.V("assignee", assignee))
	}
	return created, nil
}
