package interfaces

import (
	"context"

	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// CaseRepository defines the persistence contract for the canonical case
// record. All coordination between concurrent callers happens through the
// backend's transactional guarantees; implementations never assume
// single-threaded execution.
type CaseRepository interface {
	// Create inserts a new case. It enforces the uniqueness invariants:
	// at most one case per request (ErrRequestConflict) and globally unique
	// display numbers (ErrNumberConflict), both detectable under concurrent
	// creation.
	Create(ctx context.Context, c *model.Case) (*model.Case, error)

	// Get retrieves a case by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id types.CaseID) (*model.Case, error)

	// GetByRequestID retrieves a case by its natural key.
	// Returns ErrNotFound if absent.
	GetByRequestID(ctx context.Context, requestID types.RequestID) (*model.Case, error)

	// UpdateStage applies a stage patch with compare-and-swap semantics:
	// the write succeeds only if the stored stage still equals expected.
	// A mismatch returns ErrStale without mutating anything. Stage and
	// linked references are written in one atomic operation.
	UpdateStage(ctx context.Context, id types.CaseID, expected types.Stage, patch model.StagePatch) (*model.Case, error)

	// List returns the cases visible under the query, and Count the number
	// of such cases. Both are required to evaluate the same predicate
	// (model.CaseQuery.Match) so list pages and badge counters never drift.
	List(ctx context.Context, q model.CaseQuery) ([]*model.Case, error)
	Count(ctx context.Context, q model.CaseQuery) (int64, error)
}
