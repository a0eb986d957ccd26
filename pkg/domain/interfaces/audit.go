package interfaces

import (
	"context"

	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// AuditRepository is the append-only sink for mutation records. Entries are
// immutable once written; there is no update or delete.
type AuditRepository interface {
	// Append stores an entry, stamping CreatedAt
	Append(ctx context.Context, e *model.AuditEntry) (*model.AuditEntry, error)

	// ListByEntity returns all entries for an entity, oldest first
	ListByEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error)
}

// SequenceRepository hands out monotonically increasing numbers per key.
// Keys partition the sequence space (one per prefix/year pair). A number,
// once returned, is never handed out again even if the caller's subsequent
// insert fails; gaps are acceptable, duplicates are not.
type SequenceRepository interface {
	Next(ctx context.Context, key string) (int64, error)
}
