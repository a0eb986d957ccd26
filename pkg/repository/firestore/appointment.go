package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

type appointmentRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

type appointmentDoc struct {
	ID         string    `firestore:"id"`
	AssigneeID string    `firestore:"assignee_id"`
	Status     string    `firestore:"status"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

func (d *appointmentDoc) toModel() *model.Appointment {
	return &model.Appointment{
		ID:         types.AppointmentID(d.ID),
		AssigneeID: types.ActorID(d.AssigneeID),
		Status:     types.AppointmentStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r *appointmentRepository) appointments() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "appointments"))
}

func (r *appointmentRepository) Put(ctx context.Context, a *model.Appointment) (*model.Appointment, error) {
	now := time.Now().UTC()
	stored := a.Clone()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	doc := &appointmentDoc{
		ID:         stored.ID.String(),
		AssigneeID: stored.AssigneeID.String(),
		Status:     stored.Status.String(),
		CreatedAt:  stored.CreatedAt,
		UpdatedAt:  stored.UpdatedAt,
	}
	if _, err := r.appointments().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to put appointment", goerr.V("appointment_id", a.ID))
	}
	return stored, nil
}

func (r *appointmentRepository) Get(ctx context.Context, id types.AppointmentID) (*model.Appointment, error) {
	snap, err := r.appointments().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "appointment not found", goerr.V("appointment_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get appointment", goerr.V("appointment_id", id))
	}

	var doc appointmentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode appointment", goerr.V("appointment_id", id))
	}
	return doc.toModel(), nil
}

func (r *appointmentRepository) SetStatus(ctx context.Context, id types.AppointmentID, st types.AppointmentStatus) (*model.Appointment, error) {
	ref := r.appointments().Doc(id.String())

	var updated *model.Appointment
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "appointment not found", goerr.V("appointment_id", id))
			}
			return goerr.Wrap(err, "failed to get appointment", goerr.V("appointment_id", id))
		}

		var doc appointmentDoc
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode appointment", goerr.V("appointment_id", id))
		}

		doc.Status = st.String()
		doc.UpdatedAt = time.Now().UTC()
		updated = doc.toModel()
		return tx.Set(ref, &doc)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *appointmentRepository) ListAssigned(ctx context.Context, actor types.ActorID) ([]*model.Appointment, error) {
	iter := r.appointments().Where("assignee_id", "==", actor.String()).Documents(ctx)
	defer iter.Stop()

	assigned := make([]*model.Appointment, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list assigned appointments", goerr.V("actor", actor))
		}

		var doc appointmentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode appointment", goerr.V("doc_id", snap.Ref.ID))
		}
		assigned = append(assigned, doc.toModel())
	}
	return assigned, nil
}

type inspectionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

type inspectionDoc struct {
	ID           string    `firestore:"id"`
	AssigneeID   string    `firestore:"assignee_id"`
	ScheduledFor time.Time `firestore:"scheduled_for"`
	CreatedAt    time.Time `firestore:"created_at"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

func (d *inspectionDoc) toModel() *model.Inspection {
	return &model.Inspection{
		ID:           types.InspectionID(d.ID),
		AssigneeID:   types.ActorID(d.AssigneeID),
		ScheduledFor: d.ScheduledFor,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *inspectionRepository) inspections() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "inspections"))
}

func (r *inspectionRepository) Put(ctx context.Context, i *model.Inspection) (*model.Inspection, error) {
	now := time.Now().UTC()
	stored := i.Clone()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	doc := &inspectionDoc{
		ID:           stored.ID.String(),
		AssigneeID:   stored.AssigneeID.String(),
		ScheduledFor: stored.ScheduledFor,
		CreatedAt:    stored.CreatedAt,
		UpdatedAt:    stored.UpdatedAt,
	}
	if _, err := r.inspections().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to put inspection", goerr.V("inspection_id", i.ID))
	}
	return stored, nil
}

func (r *inspectionRepository) Get(ctx context.Context, id types.InspectionID) (*model.Inspection, error) {
	snap, err := r.inspections().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "inspection not found", goerr.V("inspection_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get inspection", goerr.V("inspection_id", id))
	}

	var doc inspectionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode inspection", goerr.V("inspection_id", id))
	}
	return doc.toModel(), nil
}

func (r *inspectionRepository) ListAssigned(ctx context.Context, actor types.ActorID) ([]*model.Inspection, error) {
	iter := r.inspections().Where("assignee_id", "==", actor.String()).Documents(ctx)
	defer iter.Stop()

	assigned := make([]*model.Inspection, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list assigned inspections", goerr.V("actor", actor))
		}

		var doc inspectionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode inspection", goerr.V("doc_id", snap.Ref.ID))
		}
		assigned = append(assigned, doc.toModel())
	}
	return assigned, nil
}
