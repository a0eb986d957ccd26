package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
	"github.com/vistoria-lab/vistoria/pkg/repository/memory"
	"github.com/vistoria-lab/vistoria/pkg/service/pipeline"
	"github.com/vistoria-lab/vistoria/pkg/usecase"
	"golang.org/x/sync/errgroup"
)

func newUseCases(repo *memory.Memory) *usecase.UseCases {
	return usecase.New(repo, usecase.WithRetryDelays(time.Millisecond, time.Millisecond))
}

func TestCreateForRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("creates at the initial stage with a formatted number", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		created, err := uc.CreateForRequest(ctx, "req-1")
		gt.NoError(t, err).Required()

		gt.Value(t, created.Stage).Equal(types.StageInitial)
		gt.Value(t, created.RequestID).Equal(types.RequestID("req-1"))
		gt.Value(t, created.DisplayNumber).Equal(
			fmt.Sprintf("ASM-%04d-001", time.Now().UTC().Year()))
		gt.Value(t, created.AppointmentRef).Nil()
		gt.Value(t, created.InspectionRef).Nil()

		entries, err := uc.AuditTrail(ctx, types.EntityTypeCase, created.ID.String())
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0].Action).Equal(types.AuditActionCreated)
	})

	t.Run("second creation for the same request is ErrDuplicateRequest", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		first, err := uc.CreateForRequest(ctx, "req-1")
		gt.NoError(t, err).Required()

		_, err = uc.CreateForRequest(ctx, "req-1")
		gt.Bool(t, errors.Is(err, usecase.ErrDuplicateRequest)).True()

		// the original is untouched
		current, err := uc.GetCaseByRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		gt.Value(t, current.ID).Equal(first.ID)
	})

	t.Run("number collision retries with a fresh number", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		// occupy the number the first attempt will generate
		year := time.Now().UTC().Year()
		_, err := repo.Case().Create(ctx, &model.Case{
			ID:            types.NewCaseID(),
			DisplayNumber: fmt.Sprintf("ASM-%04d-001", year),
			RequestID:     "req-other",
			Stage:         types.StageInitial,
		})
		gt.NoError(t, err).Required()

		created, err := uc.CreateForRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		gt.Value(t, created.DisplayNumber).Equal(fmt.Sprintf("ASM-%04d-002", year))
	})

	t.Run("invalid request ID", func(t *testing.T) {
		uc := newUseCases(memory.New())
		_, err := uc.CreateForRequest(ctx, "")
		gt.Error(t, err)
	})

	t.Run("custom prefix", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithNumberPrefix("DMG"))
		created, err := uc.CreateForRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		gt.Value(t, created.DisplayNumber).Equal(
			fmt.Sprintf("DMG-%04d-001", time.Now().UTC().Year()))
	})
}

func TestFindOrCreateForRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("call twice converges on one case", func(t *testing.T) {
		uc := newUseCases(memory.New())

		first, err := uc.FindOrCreateForRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		second, err := uc.FindOrCreateForRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		gt.Value(t, second.ID).Equal(first.ID)
	})

	t.Run("concurrent callers converge on one case", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		results := make([]*model.Case, 10)
		var eg errgroup.Group
		for i := 0; i < 10; i++ {
			i := i
			eg.Go(func() error {
				c, err := uc.FindOrCreateForRequest(ctx, "req-1")
				if err != nil {
					return err
				}
				results[i] = c
				return nil
			})
		}
		gt.NoError(t, eg.Wait()).Required()

		for _, c := range results {
			gt.Value(t, c.ID).Equal(results[0].ID)
		}

		// exactly one creation was recorded
		entries, err := uc.AuditTrail(ctx, types.EntityTypeCase, results[0].ID.String())
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0].Action).Equal(types.AuditActionCreated)
	})
}

func TestStageWrappers(t *testing.T) {
	ctx := context.Background()

	t.Run("full walk to archive", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		insp, err := uc.CreateInspection(ctx, "eng-a", time.Now().Add(24*time.Hour))
		gt.NoError(t, err).Required()
		appt, err := uc.CreateAppointment(ctx, "eng-a")
		gt.NoError(t, err).Required()

		c, err := uc.AcceptRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageRequestAccepted)

		c, err = uc.ScheduleInspection(ctx, "req-1", insp.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageInspectionScheduled)
		gt.Value(t, *c.InspectionRef).Equal(insp.ID)

		c, err = uc.ScheduleAppointment(ctx, "req-1", appt.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageAppointmentScheduled)
		gt.Value(t, *c.AppointmentRef).Equal(appt.ID)

		for _, step := range []struct {
			fn   func(context.Context, types.RequestID) (*model.Case, error)
			want types.Stage
		}{
			{uc.StartAssessment, types.StageAssessmentInProgress},
			{uc.CompleteAssessment, types.StageAssessmentCompleted},
			{uc.FinalizeEstimate, types.StageEstimateFinalized},
			{uc.StartRepairCosting, types.StageFRCInProgress},
			{uc.CompleteRepairCosting, types.StageFRCCompleted},
			{uc.Archive, types.StageArchived},
		} {
			c, err = step.fn(ctx, "req-1")
			gt.NoError(t, err).Required()
			gt.Value(t, c.Stage).Equal(step.want)
		}

		// created + one entry per transition
		entries, err := uc.AuditTrail(ctx, types.EntityTypeCase, c.ID.String())
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(10)
	})

	t.Run("first touch creates the case implicitly", func(t *testing.T) {
		uc := newUseCases(memory.New())

		c, err := uc.AcceptRequest(ctx, "req-new")
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageRequestAccepted)
		gt.Bool(t, c.DisplayNumber != "").True()
	})

	t.Run("double submission returns the case unchanged", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		first, err := uc.AcceptRequest(ctx, "req-1")
		gt.NoError(t, err).Required()

		second, err := uc.AcceptRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		gt.Value(t, second.Stage).Equal(first.Stage)

		// no duplicate audit entry for the repeat
		entries, err := uc.AuditTrail(ctx, types.EntityTypeCase, first.ID.String())
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(2)
	})

	t.Run("skipping ahead is rejected", func(t *testing.T) {
		uc := newUseCases(memory.New())

		_, err := uc.AcceptRequest(ctx, "req-1")
		gt.NoError(t, err).Required()

		_, err = uc.StartAssessment(ctx, "req-1")
		gt.Bool(t, errors.Is(err, pipeline.ErrInvalidTransition)).True()
	})

	t.Run("appointment stage without link is rejected", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		insp, err := uc.CreateInspection(ctx, "eng-a", time.Now())
		gt.NoError(t, err).Required()
		_, err = uc.AcceptRequest(ctx, "req-1")
		gt.NoError(t, err).Required()
		_, err = uc.ScheduleInspection(ctx, "req-1", insp.ID)
		gt.NoError(t, err).Required()

		_, err = uc.ScheduleAppointment(ctx, "req-1", "")
		gt.Error(t, err)
	})
}

func TestCancelCase(t *testing.T) {
	ctx := context.Background()

	walkTo := func(t *testing.T, uc *usecase.UseCases, rid types.RequestID, withAppointment bool) *model.Case {
		t.Helper()
		insp, err := uc.CreateInspection(ctx, "eng-a", time.Now())
		gt.NoError(t, err).Required()
		_, err = uc.AcceptRequest(ctx, rid)
		gt.NoError(t, err).Required()
		c, err := uc.ScheduleInspection(ctx, rid, insp.ID)
		gt.NoError(t, err).Required()
		if withAppointment {
			appt, err := uc.CreateAppointment(ctx, "eng-a")
			gt.NoError(t, err).Required()
			c, err = uc.ScheduleAppointment(ctx, rid, appt.ID)
			gt.NoError(t, err).Required()
		}
		return c
	}

	t.Run("terminal cancel moves to the sink", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)
		walkTo(t, uc, "req-1", true)

		c, err := uc.CancelCase(ctx, "req-1", "customer withdrew", true)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageCancelled)
	})

	t.Run("fallback cancel re-opens at inspection_scheduled", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)
		before := walkTo(t, uc, "req-1", true)
		apptID := *before.AppointmentRef

		c, err := uc.CancelCase(ctx, "req-1", "engineer unavailable", false)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageInspectionScheduled)
		gt.Value(t, c.AppointmentRef).Nil()

		appt, err := repo.Appointment().Get(ctx, apptID)
		gt.NoError(t, err).Required()
		gt.Value(t, appt.Status).Equal(types.AppointmentStatusCancelled)

		// the case stays workable: a fresh appointment can be scheduled again
		appt2, err := uc.CreateAppointment(ctx, "eng-b")
		gt.NoError(t, err).Required()
		c, err = uc.ScheduleAppointment(ctx, "req-1", appt2.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageAppointmentScheduled)
	})

	t.Run("fallback before any appointment is a terminal cancel", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)
		walkTo(t, uc, "req-1", false)

		c, err := uc.CancelCase(ctx, "req-1", "duplicate", false)
		gt.NoError(t, err).Required()
		gt.Value(t, c.Stage).Equal(types.StageCancelled)
	})

	t.Run("cancelling a cancelled case is a no-op", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)
		walkTo(t, uc, "req-1", false)

		first, err := uc.CancelCase(ctx, "req-1", "duplicate", true)
		gt.NoError(t, err).Required()

		second, err := uc.CancelCase(ctx, "req-1", "again", true)
		gt.NoError(t, err).Required()
		gt.Value(t, second.Stage).Equal(types.StageCancelled)

		entries, err := uc.AuditTrail(ctx, types.EntityTypeCase, first.ID.String())
		gt.NoError(t, err).Required()
		var cancels int
		for _, e := range entries {
			if e.Action == types.AuditActionCancelled {
				cancels++
			}
		}
		gt.Value(t, cancels).Equal(1)
	})
}

func TestGetCase(t *testing.T) {
	ctx := context.Background()
	uc := newUseCases(memory.New())

	created, err := uc.CreateForRequest(ctx, "req-1")
	gt.NoError(t, err).Required()

	got, err := uc.GetCase(ctx, created.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.ID).Equal(created.ID)

	_, err = uc.GetCase(ctx, types.NewCaseID())
	gt.Bool(t, errors.Is(err, usecase.ErrCaseNotFound)).True()

	_, err = uc.GetCaseByRequest(ctx, "req-none")
	gt.Bool(t, errors.Is(err, usecase.ErrCaseNotFound)).True()
}

func TestAuditActorAttribution(t *testing.T) {
	uc := newUseCases(memory.New())
	ctx := model.WithActor(context.Background(), model.Actor{ID: "eng-a", Role: types.RoleEngineer})

	created, err := uc.CreateForRequest(ctx, "req-1")
	gt.NoError(t, err).Required()

	entries, err := uc.AuditTrail(ctx, types.EntityTypeCase, created.ID.String())
	gt.NoError(t, err).Required()
	gt.Array(t, entries).Length(1)
	gt.Value(t, entries[0].Actor).Equal(types.ActorID("eng-a"))
}
