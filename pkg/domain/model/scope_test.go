package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

// stubAssignments answers assignment lookups from fixed maps
type stubAssignments struct {
	appointments map[types.AppointmentID]types.ActorID
	inspections  map[types.InspectionID]types.ActorID
}

func (s stubAssignments) AppointmentAssignedTo(id types.AppointmentID, actor types.ActorID) bool {
	return s.appointments[id] == actor
}

func (s stubAssignments) InspectionAssignedTo(id types.InspectionID, actor types.ActorID) bool {
	return s.inspections[id] == actor
}

func TestDefaultVisibilityPolicy(t *testing.T) {
	p := model.DefaultVisibilityPolicy()

	gt.Value(t, p.JoinFor(types.StageInitial)).Equal(model.ScopeJoinInspection)
	gt.Value(t, p.JoinFor(types.StageInspectionScheduled)).Equal(model.ScopeJoinInspection)
	gt.Value(t, p.JoinFor(types.StageAppointmentScheduled)).Equal(model.ScopeJoinAppointment)
	gt.Value(t, p.JoinFor(types.StageArchived)).Equal(model.ScopeJoinAppointment)
	gt.Value(t, p.JoinFor(types.StageCancelled)).Equal(model.ScopeJoinAppointment)
}

func TestNewVisibilityPolicy(t *testing.T) {
	t.Run("override applies", func(t *testing.T) {
		p, err := model.NewVisibilityPolicy(map[types.Stage]model.ScopeJoin{
			types.StageCancelled: model.ScopeJoinInspection,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, p.JoinFor(types.StageCancelled)).Equal(model.ScopeJoinInspection)
		gt.Value(t, p.JoinFor(types.StageArchived)).Equal(model.ScopeJoinAppointment)
	})

	t.Run("invalid stage rejected", func(t *testing.T) {
		_, err := model.NewVisibilityPolicy(map[types.Stage]model.ScopeJoin{
			"shipping": model.ScopeJoinInspection,
		})
		gt.Error(t, err)
	})

	t.Run("invalid join rejected", func(t *testing.T) {
		_, err := model.NewVisibilityPolicy(map[types.Stage]model.ScopeJoin{
			types.StageInitial: "owner",
		})
		gt.Error(t, err)
	})
}

func TestCaseQueryMatch(t *testing.T) {
	apptID := types.NewAppointmentID()
	inspID := types.NewInspectionID()
	assignments := stubAssignments{
		appointments: map[types.AppointmentID]types.ActorID{apptID: "eng-a"},
		inspections:  map[types.InspectionID]types.ActorID{inspID: "eng-b"},
	}

	admin := model.Actor{ID: "boss", Role: types.RoleAdmin}
	engA := model.Actor{ID: "eng-a", Role: types.RoleEngineer}
	engB := model.Actor{ID: "eng-b", Role: types.RoleEngineer}

	earlyCase := &model.Case{
		ID:            types.NewCaseID(),
		DisplayNumber: "ASM-2025-001",
		RequestID:     "req-1",
		Stage:         types.StageInspectionScheduled,
		InspectionRef: &inspID,
	}
	lateCase := &model.Case{
		ID:             types.NewCaseID(),
		DisplayNumber:  "ASM-2025-002",
		RequestID:      "req-2",
		Stage:          types.StageAssessmentInProgress,
		AppointmentRef: &apptID,
		InspectionRef:  &inspID,
	}

	t.Run("admin sees everything in the stage set", func(t *testing.T) {
		q := model.CaseQuery{Actor: admin}
		gt.Bool(t, q.Match(earlyCase, assignments)).True()
		gt.Bool(t, q.Match(lateCase, assignments)).True()
	})

	t.Run("stage filter applies before scoping", func(t *testing.T) {
		q := model.CaseQuery{Actor: admin, Stages: []types.Stage{types.StageInspectionScheduled}}
		gt.Bool(t, q.Match(earlyCase, assignments)).True()
		gt.Bool(t, q.Match(lateCase, assignments)).False()
	})

	t.Run("inspection join before appointment_scheduled", func(t *testing.T) {
		gt.Bool(t, model.CaseQuery{Actor: engB}.Match(earlyCase, assignments)).True()
		gt.Bool(t, model.CaseQuery{Actor: engA}.Match(earlyCase, assignments)).False()
	})

	t.Run("appointment join at and after appointment_scheduled", func(t *testing.T) {
		gt.Bool(t, model.CaseQuery{Actor: engA}.Match(lateCase, assignments)).True()
		gt.Bool(t, model.CaseQuery{Actor: engB}.Match(lateCase, assignments)).False()
	})

	t.Run("cancelled without appointment falls back to inspection join", func(t *testing.T) {
		cancelled := &model.Case{
			ID:            types.NewCaseID(),
			DisplayNumber: "ASM-2025-003",
			RequestID:     "req-3",
			Stage:         types.StageCancelled,
			InspectionRef: &inspID,
		}
		gt.Bool(t, model.CaseQuery{Actor: engB}.Match(cancelled, assignments)).True()
		gt.Bool(t, model.CaseQuery{Actor: engA}.Match(cancelled, assignments)).False()
	})

	t.Run("no linked record means not visible to restricted actors", func(t *testing.T) {
		bare := &model.Case{
			ID:            types.NewCaseID(),
			DisplayNumber: "ASM-2025-004",
			RequestID:     "req-4",
			Stage:         types.StageInitial,
		}
		gt.Bool(t, model.CaseQuery{Actor: engA}.Match(bare, assignments)).False()
		gt.Bool(t, model.CaseQuery{Actor: admin}.Match(bare, assignments)).True()
	})

	t.Run("policy override changes the join path", func(t *testing.T) {
		policy, err := model.NewVisibilityPolicy(map[types.Stage]model.ScopeJoin{
			types.StageAssessmentInProgress: model.ScopeJoinInspection,
		})
		gt.NoError(t, err).Required()

		q := model.CaseQuery{Actor: engB, Policy: policy}
		gt.Bool(t, q.Match(lateCase, assignments)).True()
	})
}
