package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

type appointmentRepository struct {
	store *store
}

func (r *appointmentRepository) Put(ctx context.Context, a *model.Appointment) (*model.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	stored := a.Clone()
	if existing, ok := r.store.appointments[a.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.store.appointments[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *appointmentRepository) Get(ctx context.Context, id types.AppointmentID) (*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.appointments[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "appointment not found", goerr.V("appointment_id", id))
	}
	return a.Clone(), nil
}

func (r *appointmentRepository) SetStatus(ctx context.Context, id types.AppointmentID, status types.AppointmentStatus) (*model.Appointment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.appointments[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "appointment not found", goerr.V("appointment_id", id))
	}

	updated := a.Clone()
	updated.Status = status
	updated.UpdatedAt = time.Now().UTC()
	r.store.appointments[id] = updated
	return updated.Clone(), nil
}

func (r *appointmentRepository) ListAssigned(ctx context.Context, actor types.ActorID) ([]*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	assigned := make([]*model.Appointment, 0)
	for _, a := range r.store.appointments {
		if a.AssigneeID == actor {
			assigned = append(assigned, a.Clone())
		}
	}
	sort.Slice(assigned, func(i, j int) bool {
		return assigned[i].CreatedAt.Before(assigned[j].CreatedAt)
	})
	return assigned, nil
}

type inspectionRepository struct {
	store *store
}

func (r *inspectionRepository) Put(ctx context.Context, i *model.Inspection) (*model.Inspection, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	stored := i.Clone()
	if existing, ok := r.store.inspections[i.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.store.inspections[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *inspectionRepository) Get(ctx context.Context, id types.InspectionID) (*model.Inspection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	i, ok := r.store.inspections[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "inspection not found", goerr.V("inspection_id", id))
	}
	return i.Clone(), nil
}

func (r *inspectionRepository) ListAssigned(ctx context.Context, actor types.ActorID) ([]*model.Inspection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	assigned := make([]*model.Inspection, 0)
	for _, i := range r.store.inspections {
		if i.AssigneeID == actor {
			assigned = append(assigned, i.Clone())
		}
	}
	sort.Slice(assigned, func(i, j int) bool {
		return assigned[i].CreatedAt.Before(assigned[j].CreatedAt)
	})
	return assigned, nil
}
