package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vistoria-lab/vistoria/pkg/domain/interfaces"
	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
	"github.com/vistoria-lab/vistoria/pkg/service/pipeline"
	"github.com/vistoria-lab/vistoria/pkg/usecase"
	"github.com/vistoria-lab/vistoria/pkg/utils/errutil"
)

type caseResponse struct {
	ID             string    `json:"id"`
	DisplayNumber  string    `json:"display_number"`
	RequestID      string    `json:"request_id"`
	Stage          string    `json:"stage"`
	AppointmentRef string    `json:"appointment_ref,omitempty"`
	InspectionRef  string    `json:"inspection_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toCaseResponse(c *model.Case) caseResponse {
	resp := caseResponse{
		ID:            c.ID.String(),
		DisplayNumber: c.DisplayNumber,
		RequestID:     c.RequestID.String(),
		Stage:         c.Stage.String(),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.AppointmentRef != nil {
		resp.AppointmentRef = c.AppointmentRef.String()
	}
	if c.InspectionRef != nil {
		resp.InspectionRef = c.InspectionRef.String()
	}
	return resp
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		_ = errutil.Handle(ctx, err, "failed to encode response")
	}
}

// writeError maps domain errors onto HTTP statuses. Invalid transitions and
// lost races are conflicts; a missing appointment link is a failed
// precondition the caller can satisfy and retry.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidTransition):
		errutil.HandleHTTP(ctx, w, err, http.StatusConflict)
	case errors.Is(err, pipeline.ErrMissingAppointmentLink):
		errutil.HandleHTTP(ctx, w, err, http.StatusPreconditionFailed)
	case errors.Is(err, pipeline.ErrStaleTransition):
		errutil.HandleHTTP(ctx, w, err, http.StatusConflict)
	case errors.Is(err, usecase.ErrCaseNotFound), errors.Is(err, interfaces.ErrNotFound):
		errutil.HandleHTTP(ctx, w, err, http.StatusNotFound)
	case errors.Is(err, usecase.ErrSequenceExhausted):
		errutil.HandleHTTP(ctx, w, err, http.StatusServiceUnavailable)
	default:
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
	}
}

func requestIDParam(r *http.Request) types.RequestID {
	return types.RequestID(chi.URLParam(r, "requestID"))
}

// createCase is the request-intake boundary. A duplicate submission falls
// back to the existing case so double posts never surface an error.
func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestIDParam(r)

	created, err := s.uc.CreateForRequest(ctx, requestID)
	if err == nil {
		writeJSON(ctx, w, http.StatusCreated, toCaseResponse(created))
		return
	}
	if errors.Is(err, usecase.ErrDuplicateRequest) {
		existing, findErr := s.uc.GetCaseByRequest(ctx, requestID)
		if findErr == nil {
			writeJSON(ctx, w, http.StatusOK, toCaseResponse(existing))
			return
		}
		writeError(ctx, w, findErr)
		return
	}
	writeError(ctx, w, err)
}

func (s *Server) getCaseByRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.uc.GetCaseByRequest(ctx, requestIDParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toCaseResponse(c))
}

// stageAction adapts a parameterless lifecycle wrapper into a handler
func (s *Server) stageAction(action func(context.Context, types.RequestID) (*model.Case, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		c, err := action(ctx, requestIDParam(r))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, toCaseResponse(c))
	}
}

func (s *Server) scheduleInspection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		InspectionID string `json:"inspection_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InspectionID == "" {
		http.Error(w, "inspection_id is required", http.StatusBadRequest)
		return
	}

	c, err := s.uc.ScheduleInspection(ctx, requestIDParam(r), types.InspectionID(body.InspectionID))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toCaseResponse(c))
}

func (s *Server) scheduleAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	c, err := s.uc.ScheduleAppointment(ctx, requestIDParam(r), types.AppointmentID(body.AppointmentID))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toCaseResponse(c))
}

func (s *Server) cancelCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		Reason   string `json:"reason"`
		Terminal bool   `json:"terminal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.uc.CancelCase(ctx, requestIDParam(r), body.Reason, body.Terminal)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toCaseResponse(c))
}

func (s *Server) getCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.uc.GetCase(ctx, types.CaseID(chi.URLParam(r, "caseID")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toCaseResponse(c))
}

func parseStages(r *http.Request) ([]types.Stage, error) {
	values := r.URL.Query()["stage"]
	stages := make([]types.Stage, 0, len(values))
	for _, v := range values {
		stage, err := types.ParseStage(v)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := model.ActorFromContext(ctx)
	if err != nil {
		http.Error(w, "actor identity headers required", http.StatusBadRequest)
		return
	}

	stages, err := parseStages(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cases, err := s.uc.ListCases(ctx, stages, actor)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]caseResponse, 0, len(cases))
	for _, c := range cases {
		out = append(out, toCaseResponse(c))
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"cases": out})
}

func (s *Server) countCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := model.ActorFromContext(ctx)
	if err != nil {
		http.Error(w, "actor identity headers required", http.StatusBadRequest)
		return
	}

	stages, err := parseStages(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := s.uc.CountCases(ctx, stages, actor)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]int64{"count": n})
}

type auditEntryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	FromStage string    `json:"from_stage,omitempty"`
	ToStage   string    `json:"to_stage,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) auditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.uc.AuditTrail(ctx, types.EntityTypeCase, chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID.String(),
			Action:    e.Action.String(),
			FromStage: e.Details.FromStage.String(),
			ToStage:   e.Details.ToStage.String(),
			Reason:    e.Details.Reason,
			Actor:     e.Actor.String(),
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		AssigneeID string `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AssigneeID == "" {
		http.Error(w, "assignee_id is required", http.StatusBadRequest)
		return
	}

	a, err := s.uc.CreateAppointment(ctx, types.ActorID(body.AssigneeID))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, map[string]string{
		"id":          a.ID.String(),
		"assignee_id": a.AssigneeID.String(),
		"status":      a.Status.String(),
	})
}

func (s *Server) createInspection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		AssigneeID   string     `json:"assignee_id"`
		ScheduledFor *time.Time `json:"scheduled_for"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AssigneeID == "" {
		http.Error(w, "assignee_id is required", http.StatusBadRequest)
		return
	}

	scheduledFor := time.Time{}
	if body.ScheduledFor != nil {
		scheduledFor = *body.ScheduledFor
	}

	i, err := s.uc.CreateInspection(ctx, types.ActorID(body.AssigneeID), scheduledFor)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, map[string]string{
		"id":          i.ID.String(),
		"assignee_id": i.AssigneeID.String(),
	})
}
