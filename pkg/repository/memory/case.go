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

type caseRepository struct {
	store *store
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) (*model.Case, error) {
	if err := c.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid case")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.casesByRequest[c.RequestID]; ok {
		return nil, goerr.Wrap(interfaces.ErrRequestConflict, "case already exists",
			goerr.V("request_id", c.RequestID), goerr.V("existing_case_id", existing))
	}
	if existing, ok := r.store.numbers[c.DisplayNumber]; ok {
		return nil, goerr.Wrap(interfaces.ErrNumberConflict, "display number taken",
			goerr.V("display_number", c.DisplayNumber), goerr.V("existing_case_id", existing))
	}

	now := time.Now().UTC()
	created := c.Clone()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.store.cases[created.ID] = created
	r.store.casesByRequest[created.RequestID] = created.ID
	r.store.numbers[created.DisplayNumber] = created.ID
	return created.Clone(), nil
}

func (r *caseRepository) Get(ctx context.Context, id types.CaseID) (*model.Case, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.cases[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("case_id", id))
	}
	return c.Clone(), nil
}

func (r *caseRepository) GetByRequestID(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.casesByRequest[requestID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("request_id", requestID))
	}
	return r.store.cases[id].Clone(), nil
}

func (r *caseRepository) UpdateStage(ctx context.Context, id types.CaseID, expected types.Stage, patch model.StagePatch) (*model.Case, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.cases[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("case_id", id))
	}
	if c.Stage != expected {
		return nil, goerr.Wrap(interfaces.ErrStale, "stage moved",
			goerr.V("case_id", id), goerr.V("expected", expected), goerr.V("actual", c.Stage))
	}

	updated := patch.Apply(c)
	updated.UpdatedAt = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		return nil, goerr.Wrap(err, "patched case violates invariants", goerr.V("case_id", id))
	}

	r.store.cases[id] = updated
	return updated.Clone(), nil
}

func (r *caseRepository) List(ctx context.Context, q model.CaseQuery) ([]*model.Case, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	lookup := lockedAssignments{store: r.store}
	matched := make([]*model.Case, 0)
	for _, c := range r.store.cases {
		if q.Match(c, lookup) {
			matched = append(matched, c.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (r *caseRepository) Count(ctx context.Context, q model.CaseQuery) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	lookup := lockedAssignments{store: r.store}
	var n int64
	for _, c := range r.store.cases {
		if q.Match(c, lookup) {
			n++
		}
	}
	return n, nil
}
