package model

import (
	"time"

	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// AuditEntry records a single successful mutation. Entries are append-only
// and immutable once written; they reference entities by ID without a
// foreign-key relationship.
type AuditEntry struct {
	ID         types.AuditEntryID
	EntityType types.EntityType
	EntityID   string
	Action     types.AuditAction
	Details    AuditDetails
	Actor      types.ActorID
	CreatedAt  time.Time
}

// AuditDetails is the structured before/after/reason payload of an entry.
// Fields not relevant to an action stay empty.
type AuditDetails struct {
	FromStage types.Stage `json:"from_stage,omitempty"`
	ToStage   types.Stage `json:"to_stage,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// NewAuditEntry builds an entry for the given entity and action. The caller
// appends it through the audit repository; CreatedAt is stamped on append.
func NewAuditEntry(entityType types.EntityType, entityID string, action types.AuditAction, actor types.ActorID, details AuditDetails) *AuditEntry {
	return &AuditEntry{
		ID:         types.NewAuditEntryID(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    details,
		Actor:      actor,
	}
}
