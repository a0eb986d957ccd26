package pipeline

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
	"github.com/vistoria-lab/vistoria/pkg/utils/errutil"
	"github.com/vistoria-lab/vistoria/pkg/utils/logging"
)

// Engine validates and applies stage changes. It is the only writer of the
// stage field: every change goes through a compare-and-swap on the stage the
// caller observed, and every applied change emits exactly one audit entry.
type Engine struct {
	repo interfaces.Repository
}

// New creates a transition engine over the repository
func New(repo interfaces.Repository) *Engine {
	return &Engine{repo: repo}
}

type transitionOptions struct {
	reason            string
	setAppointmentRef bool
	appointmentRef    *types.AppointmentID
	setInspectionRef  bool
	inspectionRef     *types.InspectionID
}

// Option customizes a single transition
type Option func(*transitionOptions)

// WithReason attaches a reason recorded in the audit entry
func WithReason(reason string) Option {
	return func(o *transitionOptions) {
		o.reason = reason
	}
}

// WithAppointment links the appointment atomically with the stage write
func WithAppointment(id types.AppointmentID) Option {
	return func(o *transitionOptions) {
		o.setAppointmentRef = true
		o.appointmentRef = &id
	}
}

// WithInspection links the inspection atomically with the stage write
func WithInspection(id types.InspectionID) Option {
	return func(o *transitionOptions) {
		o.setInspectionRef = true
		o.inspectionRef = &id
	}
}

// Transition moves the case to target. The target must be the immediate
// successor of the case's stage, or the cancelled sink; anything else is
// ErrInvalidTransition and leaves the case untouched. Entering a stage that
// requires an appointment link without one (current or supplied via
// WithAppointment) is ErrMissingAppointmentLink.
//
// If the CAS write loses a race but the case already sits at target, the
// winner's result is returned without a second audit entry.
func (e *Engine) Transition(ctx context.Context, c *model.Case, target types.Stage, opts ...Option) (*model.Case, error) {
	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !target.IsValid() {
		return nil, goerr.Wrap(ErrInvalidTransition, "unknown target stage",
			goerr.V(CaseIDKey, c.ID), goerr.V(ToStageKey, target))
	}
	if !c.Stage.CanTransitionTo(target) {
		return nil, goerr.Wrap(ErrInvalidTransition, "target is not the immediate successor",
			goerr.V(CaseIDKey, c.ID), goerr.V(FromStageKey, c.Stage), goerr.V(ToStageKey, target))
	}

	effectiveAppointment := c.AppointmentRef
	if o.setAppointmentRef {
		effectiveAppointment = o.appointmentRef
	}
	if target.RequiresAppointment() && effectiveAppointment == nil {
		return nil, goerr.Wrap(ErrMissingAppointmentLink, "set the appointment link before this transition",
			goerr.V(CaseIDKey, c.ID), goerr.V(ToStageKey, target))
	}

	patch := model.StagePatch{
		Stage:             target,
		SetAppointmentRef: o.setAppointmentRef,
		AppointmentRef:    o.appointmentRef,
		SetInspectionRef:  o.setInspectionRef,
		InspectionRef:     o.inspectionRef,
	}

	updated, raced, err := e.applyPatch(ctx, c, patch)
	if err != nil {
		return nil, err
	}
	if raced {
		return updated, nil
	}

	action := types.AuditActionStageTransition
	if target == types.StageCancelled {
		action = types.AuditActionCancelled
	}
	e.writeAudit(ctx, types.EntityTypeCase, updated.ID.String(), action, model.AuditDetails{
		FromStage: c.Stage,
		ToStage:   target,
		Reason:    o.reason,
	})
	return updated, nil
}

// CancelTerminal moves the case to the cancelled sink for good
func (e *Engine) CancelTerminal(ctx context.Context, c *model.Case, reason string) (*model.Case, error) {
	return e.Transition(ctx, c, types.StageCancelled, WithReason(reason))
}

// CancelWithFallback cancels the companion appointment but keeps the case in
// active worklists: at appointment_scheduled or later, the appointment's
// status is reverted and the case re-opens at inspection_scheduled with the
// link cleared. Before appointment_scheduled there is no companion to revert
// and the operation degenerates to terminal cancellation.
//
// Two audit entries result: appointment_cancelled on the companion record,
// cancelled_with_fallback on the case.
func (e *Engine) CancelWithFallback(ctx context.Context, c *model.Case, reason string) (*model.Case, error) {
	if c.Stage.Terminal() {
		return nil, goerr.Wrap(ErrInvalidTransition, "case is already terminal",
			goerr.V(CaseIDKey, c.ID), goerr.V(FromStageKey, c.Stage))
	}
	if !c.Stage.AtOrAfter(types.StageAppointmentScheduled) {
		return e.CancelTerminal(ctx, c, reason)
	}

	// Invariant guarantees the link at this stage, but the record itself is
	// external input and may not exist; that is a logged no-op, not an error.
	if c.AppointmentRef != nil {
		apptID := *c.AppointmentRef
		if _, err := e.repo.Appointment().SetStatus(ctx, apptID, types.AppointmentStatusCancelled); err != nil {
			if !errors.Is(err, interfaces.ErrNotFound) {
				return nil, goerr.Wrap(err, "failed to cancel companion appointment",
					goerr.V(CaseIDKey, c.ID), goerr.V("appointment_id", apptID))
			}
			logging.From(ctx).Warn("companion appointment record not found, skipping status revert",
				"case_id", c.ID, "appointment_id", apptID)
		} else {
			e.writeAudit(ctx, types.EntityTypeAppointment, apptID.String(),
				types.AuditActionAppointmentCancelled, model.AuditDetails{Reason: reason})
		}
	}

	patch := model.StagePatch{
		Stage:             types.StageInspectionScheduled,
		SetAppointmentRef: true,
		AppointmentRef:    nil,
	}
	updated, raced, err := e.applyPatch(ctx, c, patch)
	if err != nil {
		return nil, err
	}
	if raced {
		return updated, nil
	}

	e.writeAudit(ctx, types.EntityTypeCase, updated.ID.String(),
		types.AuditActionCancelledWithFallback, model.AuditDetails{
			FromStage: c.Stage,
			ToStage:   types.StageInspectionScheduled,
			Reason:    reason,
		})
	return updated, nil
}

// applyPatch performs the CAS write. On a stale base it re-reads and decides
// idempotently: if the case already sits at the patch's target stage the
// concurrent winner had the same intent and its row is returned with raced
// set, telling the caller to skip its own audit entry; an unexpected stage
// is ErrStaleTransition.
func (e *Engine) applyPatch(ctx context.Context, c *model.Case, patch model.StagePatch) (updated *model.Case, raced bool, err error) {
	updated, err = e.repo.Case().UpdateStage(ctx, c.ID, c.Stage, patch)
	if err == nil {
		return updated, false, nil
	}
	if !errors.Is(err, interfaces.ErrStale) {
		return nil, false, err
	}

	current, readErr := e.repo.Case().Get(ctx, c.ID)
	if readErr != nil {
		return nil, false, goerr.Wrap(readErr, "failed to re-read case after stale write", goerr.V(CaseIDKey, c.ID))
	}
	if current.Stage == patch.Stage {
		logging.From(ctx).Info("transition lost the race, end state already satisfied",
			"case_id", c.ID, "stage", current.Stage)
		return current, true, nil
	}
	return nil, false, goerr.Wrap(ErrStaleTransition, "case moved to an unrelated stage",
		goerr.V(CaseIDKey, c.ID), goerr.V(FromStageKey, c.Stage), goerr.V(ToStageKey, patch.Stage),
		goerr.V("actual_stage", current.Stage))
}

func (e *Engine) writeAudit(ctx context.Context, entityType types.EntityType, entityID string, action types.AuditAction, details model.AuditDetails) {
	actor, _ := model.ActorFromContext(ctx)
	entry := model.NewAuditEntry(entityType, entityID, action, actor.ID, details)
	if _, err := e.repo.Audit().Append(ctx, entry); err != nil {
		// The mutation stands; a lost audit entry is an operational problem,
		// not a reason to surface failure for a committed stage change.
		_ = errutil.Handle(ctx, err, "failed to append audit entry")
	}
}
