package firestore

import (
	"context"
	"sort"
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

type caseRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

// caseDoc is the persisted shape of a case. Nullable refs are stored as
// empty strings so queries can filter on equality.
type caseDoc struct {
	ID             string    `firestore:"id"`
	DisplayNumber  string    `firestore:"display_number"`
	RequestID      string    `firestore:"request_id"`
	Stage          string    `firestore:"stage"`
	AppointmentRef string    `firestore:"appointment_ref"`
	InspectionRef  string    `firestore:"inspection_ref"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func toCaseDoc(c *model.Case) *caseDoc {
	doc := &caseDoc{
		ID:            c.ID.String(),
		DisplayNumber: c.DisplayNumber,
		RequestID:     c.RequestID.String(),
		Stage:         c.Stage.String(),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.AppointmentRef != nil {
		doc.AppointmentRef = c.AppointmentRef.String()
	}
	if c.InspectionRef != nil {
		doc.InspectionRef = c.InspectionRef.String()
	}
	return doc
}

func (d *caseDoc) toModel() *model.Case {
	c := &model.Case{
		ID:            types.CaseID(d.ID),
		DisplayNumber: d.DisplayNumber,
		RequestID:     types.RequestID(d.RequestID),
		Stage:         types.Stage(d.Stage),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.AppointmentRef != "" {
		ref := types.AppointmentID(d.AppointmentRef)
		c.AppointmentRef = &ref
	}
	if d.InspectionRef != "" {
		ref := types.InspectionID(d.InspectionRef)
		c.InspectionRef = &ref
	}
	return c
}

func (r *caseRepository) cases() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "cases"))
}

// requestLocks and numberLocks hold one document per claimed request ID and
// display number. Writing them in the same transaction as the case document
// is what makes the uniqueness invariants hold under concurrent creation.
func (r *caseRepository) requestLocks() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "case_requests"))
}

func (r *caseRepository) numberLocks() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "case_numbers"))
}

type lockDoc struct {
	CaseID string `firestore:"case_id"`
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) (*model.Case, error) {
	if err := c.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid case")
	}

	now := time.Now().UTC()
	created := c.Clone()
	created.CreatedAt = now
	created.UpdatedAt = now

	caseRef := r.cases().Doc(created.ID.String())
	requestRef := r.requestLocks().Doc(created.RequestID.String())
	numberRef := r.numberLocks().Doc(created.DisplayNumber)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(requestRef)
		if err == nil {
			var lock lockDoc
			if dataErr := snap.DataTo(&lock); dataErr != nil {
				return goerr.Wrap(dataErr, "failed to decode request lock")
			}
			return goerr.Wrap(interfaces.ErrRequestConflict, "case already exists",
				goerr.V("request_id", created.RequestID), goerr.V("existing_case_id", lock.CaseID))
		}
		if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to check request lock")
		}

		if _, err := tx.Get(numberRef); err == nil {
			return goerr.Wrap(interfaces.ErrNumberConflict, "display number taken",
				goerr.V("display_number", created.DisplayNumber))
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to check number lock")
		}

		if err := tx.Set(caseRef, toCaseDoc(created)); err != nil {
			return goerr.Wrap(err, "failed to write case")
		}
		if err := tx.Set(requestRef, &lockDoc{CaseID: created.ID.String()}); err != nil {
			return goerr.Wrap(err, "failed to write request lock")
		}
		return tx.Set(numberRef, &lockDoc{CaseID: created.ID.String()})
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *caseRepository) Get(ctx context.Context, id types.CaseID) (*model.Case, error) {
	snap, err := r.cases().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("case_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get case", goerr.V("case_id", id))
	}

	var doc caseDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode case", goerr.V("case_id", id))
	}
	return doc.toModel(), nil
}

func (r *caseRepository) GetByRequestID(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	snap, err := r.requestLocks().Doc(requestID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("request_id", requestID))
		}
		return nil, goerr.Wrap(err, "failed to get request lock", goerr.V("request_id", requestID))
	}

	var lock lockDoc
	if err := snap.DataTo(&lock); err != nil {
		return nil, goerr.Wrap(err, "failed to decode request lock", goerr.V("request_id", requestID))
	}
	return r.Get(ctx, types.CaseID(lock.CaseID))
}

func (r *caseRepository) UpdateStage(ctx context.Context, id types.CaseID, expected types.Stage, patch model.StagePatch) (*model.Case, error) {
	caseRef := r.cases().Doc(id.String())

	var updated *model.Case
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(caseRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("case_id", id))
			}
			return goerr.Wrap(err, "failed to get case", goerr.V("case_id", id))
		}

		var doc caseDoc
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode case", goerr.V("case_id", id))
		}

		current := doc.toModel()
		if current.Stage != expected {
			return goerr.Wrap(interfaces.ErrStale, "stage moved",
				goerr.V("case_id", id), goerr.V("expected", expected), goerr.V("actual", current.Stage))
		}

		next := patch.Apply(current)
		next.UpdatedAt = time.Now().UTC()
		if err := next.Validate(); err != nil {
			return goerr.Wrap(err, "patched case violates invariants", goerr.V("case_id", id))
		}

		updated = next
		return tx.Set(caseRef, toCaseDoc(next))
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// assignmentSets implements model.AssignmentLookup over ID sets prefetched
// for one actor, so List and Count evaluate the same CaseQuery.Match used by
// the memory backend.
type assignmentSets struct {
	appointments map[types.AppointmentID]struct{}
	inspections  map[types.InspectionID]struct{}
}

func (s assignmentSets) AppointmentAssignedTo(id types.AppointmentID, actor types.ActorID) bool {
	_, ok := s.appointments[id]
	return ok
}

func (s assignmentSets) InspectionAssignedTo(id types.InspectionID, actor types.ActorID) bool {
	_, ok := s.inspections[id]
	return ok
}

func (r *caseRepository) assignmentsFor(ctx context.Context, actor types.ActorID) (assignmentSets, error) {
	sets := assignmentSets{
		appointments: make(map[types.AppointmentID]struct{}),
		inspections:  make(map[types.InspectionID]struct{}),
	}

	apptIter := r.client.Collection(prefixed(r.collectionPrefix, "appointments")).
		Where("assignee_id", "==", actor.String()).Documents(ctx)
	defer apptIter.Stop()
	for {
		snap, err := apptIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return sets, goerr.Wrap(err, "failed to list assigned appointments", goerr.V("actor", actor))
		}
		sets.appointments[types.AppointmentID(snap.Ref.ID)] = struct{}{}
	}

	inspIter := r.client.Collection(prefixed(r.collectionPrefix, "inspections")).
		Where("assignee_id", "==", actor.String()).Documents(ctx)
	defer inspIter.Stop()
	for {
		snap, err := inspIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return sets, goerr.Wrap(err, "failed to list assigned inspections", goerr.V("actor", actor))
		}
		sets.inspections[types.InspectionID(snap.Ref.ID)] = struct{}{}
	}

	return sets, nil
}

// listMatched is the single query path behind List and Count
func (r *caseRepository) listMatched(ctx context.Context, q model.CaseQuery) ([]*model.Case, error) {
	var lookup model.AssignmentLookup = assignmentSets{}
	if !q.Actor.Admin() {
		sets, err := r.assignmentsFor(ctx, q.Actor.ID)
		if err != nil {
			return nil, err
		}
		lookup = sets
	}

	query := r.cases().Query
	if len(q.Stages) > 0 {
		stages := make([]string, 0, len(q.Stages))
		for _, s := range q.Stages {
			stages = append(stages, s.String())
		}
		query = query.Where("stage", "in", stages)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	matched := make([]*model.Case, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate cases")
		}

		var doc caseDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode case", goerr.V("doc_id", snap.Ref.ID))
		}
		c := doc.toModel()
		if q.Match(c, lookup) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (r *caseRepository) List(ctx context.Context, q model.CaseQuery) ([]*model.Case, error) {
	return r.listMatched(ctx, q)
}

func (r *caseRepository) Count(ctx context.Context, q model.CaseQuery) (int64, error) {
	matched, err := r.listMatched(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}
