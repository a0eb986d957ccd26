package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

type auditRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

type auditDoc struct {
	ID         string    `firestore:"id"`
	EntityType string    `firestore:"entity_type"`
	EntityID   string    `firestore:"entity_id"`
	Action     string    `firestore:"action"`
	FromStage  string    `firestore:"from_stage"`
	ToStage    string    `firestore:"to_stage"`
	Reason     string    `firestore:"reason"`
	Actor      string    `firestore:"actor"`
	CreatedAt  time.Time `firestore:"created_at"`
}

func (d *auditDoc) toModel() *model.AuditEntry {
	return &model.AuditEntry{
		ID:         types.AuditEntryID(d.ID),
		EntityType: types.EntityType(d.EntityType),
		EntityID:   d.EntityID,
		Action:     types.AuditAction(d.Action),
		Details: model.AuditDetails{
			FromStage: types.Stage(d.FromStage),
			ToStage:   types.Stage(d.ToStage),
			Reason:    d.Reason,
		},
		Actor:     types.ActorID(d.Actor),
		CreatedAt: d.CreatedAt,
	}
}

func (r *auditRepository) entries() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "audit_entries"))
}

func (r *auditRepository) Append(ctx context.Context, e *model.AuditEntry) (*model.AuditEntry, error) {
	stored := *e
	stored.CreatedAt = time.Now().UTC()

	doc := &auditDoc{
		ID:         stored.ID.String(),
		EntityType: stored.EntityType.String(),
		EntityID:   stored.EntityID,
		Action:     stored.Action.String(),
		FromStage:  stored.Details.FromStage.String(),
		ToStage:    stored.Details.ToStage.String(),
		Reason:     stored.Details.Reason,
		Actor:      stored.Actor.String(),
		CreatedAt:  stored.CreatedAt,
	}
	if _, err := r.entries().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to append audit entry",
			goerr.V("entity_type", e.EntityType), goerr.V("entity_id", e.EntityID))
	}
	return &stored, nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error) {
	iter := r.entries().
		Where("entity_type", "==", entityType.String()).
		Where("entity_id", "==", entityID).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.AuditEntry, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list audit entries",
				goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
		}

		var doc auditDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode audit entry", goerr.V("doc_id", snap.Ref.ID))
		}
		entries = append(entries, doc.toModel())
	}
	return entries, nil
}

type sequenceRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *sequenceRepository) sequences() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "sequences"))
}

// Next increments the per-key counter document inside a transaction, making
// collisions structurally impossible: two concurrent callers can never read
// the same value.
func (r *sequenceRepository) Next(ctx context.Context, key string) (int64, error) {
	counterRef := r.sequences().Doc(key)

	var next int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				next = 1
				return tx.Set(counterRef, map[string]interface{}{"value": next})
			}
			return goerr.Wrap(err, "failed to get counter", goerr.V("key", key))
		}

		current, err := snap.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value", goerr.V("key", key))
		}
		val, ok := current.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64",
				goerr.V("key", key), goerr.V("value", current))
		}

		next = val + 1
		return tx.Update(counterRef, []firestore.Update{{Path: "value", Value: next}})
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to advance sequence", goerr.V("key", key))
	}
	return next, nil
}
