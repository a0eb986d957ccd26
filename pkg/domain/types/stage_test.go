package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
)

func TestStageOrdering(t *testing.T) {
	stages := types.PipelineStages()
	gt.Array(t, stages).Length(10)
	gt.Value(t, stages[0]).Equal(types.StageInitial)
	gt.Value(t, stages[len(stages)-1]).Equal(types.StageArchived)

	for i, s := range stages {
		gt.Value(t, s.Index()).Equal(i)
	}
	gt.Value(t, types.StageCancelled.Index()).Equal(-1)
	gt.Value(t, types.Stage("bogus").Index()).Equal(-1)
}

func TestStageSuccessor(t *testing.T) {
	stages := types.PipelineStages()
	for i := 0; i < len(stages)-1; i++ {
		next, ok := stages[i].Successor()
		gt.Bool(t, ok).True()
		gt.Value(t, next).Equal(stages[i+1])
	}

	_, ok := types.StageArchived.Successor()
	gt.Bool(t, ok).False()
	_, ok = types.StageCancelled.Successor()
	gt.Bool(t, ok).False()
}

func TestStageAtOrAfter(t *testing.T) {
	gt.Bool(t, types.StageAssessmentInProgress.AtOrAfter(types.StageAppointmentScheduled)).True()
	gt.Bool(t, types.StageAppointmentScheduled.AtOrAfter(types.StageAppointmentScheduled)).True()
	gt.Bool(t, types.StageInspectionScheduled.AtOrAfter(types.StageAppointmentScheduled)).False()

	// cancelled has no position on the main path
	gt.Bool(t, types.StageCancelled.AtOrAfter(types.StageInitial)).False()
	gt.Bool(t, types.StageArchived.AtOrAfter(types.StageCancelled)).False()
}

func TestStageTerminal(t *testing.T) {
	gt.Bool(t, types.StageArchived.Terminal()).True()
	gt.Bool(t, types.StageCancelled.Terminal()).True()
	for _, s := range types.PipelineStages()[:9] {
		gt.Bool(t, s.Terminal()).False()
	}
}

func TestStageRequiresAppointment(t *testing.T) {
	gt.Bool(t, types.StageInitial.RequiresAppointment()).False()
	gt.Bool(t, types.StageInspectionScheduled.RequiresAppointment()).False()
	gt.Bool(t, types.StageAppointmentScheduled.RequiresAppointment()).True()
	gt.Bool(t, types.StageFRCCompleted.RequiresAppointment()).True()
	gt.Bool(t, types.StageArchived.RequiresAppointment()).True()
	gt.Bool(t, types.StageCancelled.RequiresAppointment()).False()
}

func TestStageCanTransitionTo(t *testing.T) {
	stages := types.PipelineStages()

	// only the immediate successor is legal on the main path
	for i, from := range stages {
		for j, to := range stages {
			want := !from.Terminal() && j == i+1
			gt.Value(t, from.CanTransitionTo(to)).Equal(want)
		}
	}

	// cancelled is reachable from every non-terminal stage and from nowhere else
	for _, from := range stages {
		gt.Value(t, from.CanTransitionTo(types.StageCancelled)).Equal(!from.Terminal())
	}
	gt.Bool(t, types.StageCancelled.CanTransitionTo(types.StageInitial)).False()
	gt.Bool(t, types.StageArchived.CanTransitionTo(types.StageCancelled)).False()
}

func TestParseStage(t *testing.T) {
	s, err := types.ParseStage("assessment_in_progress")
	gt.NoError(t, err)
	gt.Value(t, s).Equal(types.StageAssessmentInProgress)

	s, err = types.ParseStage("cancelled")
	gt.NoError(t, err)
	gt.Value(t, s).Equal(types.StageCancelled)

	_, err = types.ParseStage("shipping")
	gt.Error(t, err)
	_, err = types.ParseStage("")
	gt.Error(t, err)
}
