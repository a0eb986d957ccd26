package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
	"github.com/vistoria-lab/vistoria/pkg/service/pipeline"
	"github.com/vistoria-lab/vistoria/pkg/utils/errutil"
)

const (
	// createAttempts bounds the generate-then-insert cycle on display
	// number collisions; the backoff doubles per attempt.
	createAttempts = 4

	// findRetries bounds the re-read poll after losing a creation race: the
	// winner's transaction may not be visible on the first read.
	findRetries = 3
)

// sleepCtx waits for d without blocking the goroutine on anything but the
// timer or context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CreateForRequest creates the canonical case for a request at intake time,
// with stage request_submitted and no linked records. At most one case ever
// exists per request: a second call returns ErrDuplicateRequest and the
// caller falls back to fetch-by-request.
//
// Display number generation and the insert run in one bounded retry cycle.
// A number collision retries with a fresh number after backoff; exhaustion
// is ErrSequenceExhausted with nothing persisted.
func (uc *UseCases) CreateForRequest(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	if err := requestID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid request ID")
	}

	backoff := uc.createBackoff
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, goerr.Wrap(err, "creation aborted", goerr.V(RequestIDKey, requestID))
			}
			backoff *= 2
		}

		number, err := uc.numbers.Next(ctx, uc.numberPrefix, time.Now().UTC().Year())
		if err != nil {
			lastErr = err
			continue
		}

		c := &model.Case{
			ID:            types.NewCaseID(),
			DisplayNumber: number,
			RequestID:     requestID,
			Stage:         types.StageInitial,
		}

		created, err := uc.repo.Case().Create(ctx, c)
		switch {
		case err == nil:
			uc.writeAudit(ctx, types.EntityTypeCase, created.ID.String(),
				types.AuditActionCreated, model.AuditDetails{ToStage: created.Stage})
			return created, nil

		case errors.Is(err, interfaces.ErrRequestConflict):
			return nil, goerr.Wrap(ErrDuplicateRequest, "request already has a case",
				goerr.V(RequestIDKey, requestID))

		case errors.Is(err, interfaces.ErrNumberConflict):
			// another creator claimed the same number; take a fresh one
			lastErr = err
			continue

		default:
			return nil, goerr.Wrap(err, "failed to create case", goerr.V(RequestIDKey, requestID))
		}
	}

	return nil, goerr.Wrap(ErrSequenceExhausted, "could not allocate a display number",
		goerr.V(RequestIDKey, requestID), goerr.V("attempts", createAttempts), goerr.V("last_error", lastErr))
}

// FindOrCreateForRequest is the safe entry point for every downstream step
// that might race with the original creation. Concurrent callers converge on
// the same case: on a lost creation race the row is polled into visibility
// before surfacing a hard failure.
func (uc *UseCases) FindOrCreateForRequest(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	existing, err := uc.repo.Case().GetByRequestID(ctx, requestID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to look up case", goerr.V(RequestIDKey, requestID))
	}

	created, err := uc.CreateForRequest(ctx, requestID)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrDuplicateRequest) {
		return nil, err
	}

	for i := 0; i < findRetries; i++ {
		if c, err := uc.repo.Case().GetByRequestID(ctx, requestID); err == nil {
			return c, nil
		} else if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(err, "failed to re-read case after creation race",
				goerr.V(RequestIDKey, requestID))
		}
		if err := sleepCtx(ctx, uc.findDelay); err != nil {
			return nil, goerr.Wrap(err, "lookup aborted", goerr.V(RequestIDKey, requestID))
		}
	}

	return nil, goerr.New("case creation raced but the row never became visible",
		goerr.V(RequestIDKey, requestID), goerr.V("retries", findRetries))
}

// advance is the shared body of every stage wrapper: find or create the
// case, short-circuit if it already sits at or past the target (double
// submissions return the current case unchanged, no audit entry), otherwise
// run the transition engine.
func (uc *UseCases) advance(ctx context.Context, requestID types.RequestID, target types.Stage, opts ...pipeline.Option) (*model.Case, error) {
	c, err := uc.FindOrCreateForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if c.Stage.AtOrAfter(target) {
		return c, nil
	}

	updated, err := uc.engine.Transition(ctx, c, target, opts...)
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, pipeline.ErrStaleTransition) {
		// the race winner may still have carried the case to or past the
		// desired end state
		current, readErr := uc.repo.Case().Get(ctx, c.ID)
		if readErr == nil && current.Stage.AtOrAfter(target) {
			return current, nil
		}
	}
	return nil, err
}

// AcceptRequest advances the case to request_accepted
func (uc *UseCases) AcceptRequest(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageRequestAccepted)
}

// ScheduleInspection links the inspection and advances to
// inspection_scheduled. The reference is linked atomically with the stage
// write; its content is not validated here.
func (uc *UseCases) ScheduleInspection(ctx context.Context, requestID types.RequestID, inspectionID types.InspectionID) (*model.Case, error) {
	if err := inspectionID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid inspection ID", goerr.V(RequestIDKey, requestID))
	}
	return uc.advance(ctx, requestID, types.StageInspectionScheduled, pipeline.WithInspection(inspectionID))
}

// ScheduleAppointment links the appointment and advances to
// appointment_scheduled
func (uc *UseCases) ScheduleAppointment(ctx context.Context, requestID types.RequestID, appointmentID types.AppointmentID) (*model.Case, error) {
	if err := appointmentID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid appointment ID", goerr.V(RequestIDKey, requestID))
	}
	return uc.advance(ctx, requestID, types.StageAppointmentScheduled, pipeline.WithAppointment(appointmentID))
}

// StartAssessment advances the case to assessment_in_progress
func (uc *UseCases) StartAssessment(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageAssessmentInProgress)
}

// CompleteAssessment advances the case to assessment_completed
func (uc *UseCases) CompleteAssessment(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageAssessmentCompleted)
}

// FinalizeEstimate advances the case to estimate_finalized
func (uc *UseCases) FinalizeEstimate(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageEstimateFinalized)
}

// StartRepairCosting advances the case to frc_in_progress
func (uc *UseCases) StartRepairCosting(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageFRCInProgress)
}

// CompleteRepairCosting advances the case to frc_completed
func (uc *UseCases) CompleteRepairCosting(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageFRCCompleted)
}

// Archive advances the case to its archived terminal stage
func (uc *UseCases) Archive(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	return uc.advance(ctx, requestID, types.StageArchived)
}

// CancelCase cancels the case. With terminal set the case moves to the
// cancelled sink for good; otherwise the fallback rule applies: from
// appointment_scheduled onward the companion appointment is reverted and the
// case re-opens at inspection_scheduled so it stays on active worklists.
// Cancelling an already-cancelled case returns it unchanged.
func (uc *UseCases) CancelCase(ctx context.Context, requestID types.RequestID, reason string, terminal bool) (*model.Case, error) {
	c, err := uc.FindOrCreateForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if c.Stage == types.StageCancelled {
		return c, nil
	}

	if terminal {
		return uc.engine.CancelTerminal(ctx, c, reason)
	}
	return uc.engine.CancelWithFallback(ctx, c, reason)
}

// GetCase retrieves a case by ID
func (uc *UseCases) GetCase(ctx context.Context, id types.CaseID) (*model.Case, error) {
	c, err := uc.repo.Case().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrCaseNotFound, "no such case", goerr.V(CaseIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get case", goerr.V(CaseIDKey, id))
	}
	return c, nil
}

// GetCaseByRequest retrieves a case by its originating request
func (uc *UseCases) GetCaseByRequest(ctx context.Context, requestID types.RequestID) (*model.Case, error) {
	c, err := uc.repo.Case().GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrCaseNotFound, "no case for request", goerr.V(RequestIDKey, requestID))
		}
		return nil, goerr.Wrap(err, "failed to get case", goerr.V(RequestIDKey, requestID))
	}
	return c, nil
}

// AuditTrail returns the audit entries for an entity, oldest first
func (uc *UseCases) AuditTrail(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error) {
	entries, err := uc.repo.Audit().ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list audit entries",
			goerr.V("entity_type", entityType), goerr.V("entity_id", entityID))
	}
	return entries, nil
}

func (uc *UseCases) writeAudit(ctx context.Context, entityType types.EntityType, entityID string, action types.AuditAction, details model.AuditDetails) {
	actor, _ := model.ActorFromContext(ctx)
	entry := model.NewAuditEntry(entityType, entityID, action, actor.ID, details)
	if _, err := uc.repo.Audit().Append(ctx, entry); err != nil {
		_ = errutil.Handle(ctx, err, "failed to append audit entry")
	}
}
