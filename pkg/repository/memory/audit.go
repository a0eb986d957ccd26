package memory

import (
	"context"
	"time"

	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

type auditRepository struct {
	store *store
}

func auditKey(entityType types.EntityType, entityID string) string {
	return entityType.String() + "/" + entityID
}

func (r *auditRepository) Append(ctx context.Context, e *model.AuditEntry) (*model.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *e
	stored.CreatedAt = time.Now().UTC()

	key := auditKey(e.EntityType, e.EntityID)
	r.store.audits[key] = append(r.store.audits[key], &stored)

	out := stored
	return &out, nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := r.store.audits[auditKey(entityType, entityID)]
	out := make([]*model.AuditEntry, 0, len(entries))
	for _, e := range entries {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

type sequenceRepository struct {
	store *store
}

func (r *sequenceRepository) Next(ctx context.Context, key string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.sequences[key]++
	return r.store.sequences[key], nil
}
