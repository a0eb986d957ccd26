package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// buildQuery is the one place a scoped case query is constructed. List
// pages and badge counters must never diverge, so both go through here and
// the repositories evaluate the same predicate for both.
func (uc *UseCases) buildQuery(stages []types.Stage, actor model.Actor) model.CaseQuery {
	return model.CaseQuery{
		Stages: stages,
		Actor:  actor,
		Policy: uc.policy,
	}
}

// ListCases returns the cases in the stage set visible to the actor
func (uc *UseCases) ListCases(ctx context.Context, stages []types.Stage, actor model.Actor) ([]*model.Case, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid actor")
	}
	cases, err := uc.repo.Case().List(ctx, uc.buildQuery(stages, actor))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cases")
	}
	return cases, nil
}

// CountCases is the count-only variant of ListCases, built from the same
// query; it backs badges and summary counters.
func (uc *UseCases) CountCases(ctx context.Context, stages []types.Stage, actor model.Actor) (int64, error) {
	if err := actor.Validate(); err != nil {
		return 0, goerr.Wrap(err, "invalid actor")
	}
	n, err := uc.repo.Case().Count(ctx, uc.buildQuery(stages, actor))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count cases")
	}
	return n, nil
}
