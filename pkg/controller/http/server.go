package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vistoria-lab/vistoria/pkg/usecase"
	"github.com/vistoria-lab/vistoria/pkg/utils/safe"
)

// Server is the REST surface over the case lifecycle service. It is a thin
// boundary: actor identity arrives pre-resolved in forwarded headers and all
// behavior lives in the usecase layer.
type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

// Options configures the server
type Options func(*Server)

// New creates the HTTP server
func New(uc *usecase.UseCases, opts ...Options) *Server {
	s := &Server{
		router: chi.NewRouter(),
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		safe.Write(req.Context(), w, []byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(actorMiddleware)

		r.Route("/requests/{requestID}", func(r chi.Router) {
			r.Post("/case", s.createCase)
			r.Get("/case", s.getCaseByRequest)

			r.Post("/accept", s.stageAction(s.uc.AcceptRequest))
			r.Post("/schedule-inspection", s.scheduleInspection)
			r.Post("/schedule-appointment", s.scheduleAppointment)
			r.Post("/start-assessment", s.stageAction(s.uc.StartAssessment))
			r.Post("/complete-assessment", s.stageAction(s.uc.CompleteAssessment))
			r.Post("/finalize-estimate", s.stageAction(s.uc.FinalizeEstimate))
			r.Post("/start-frc", s.stageAction(s.uc.StartRepairCosting))
			r.Post("/complete-frc", s.stageAction(s.uc.CompleteRepairCosting))
			r.Post("/archive", s.stageAction(s.uc.Archive))
			r.Post("/cancel", s.cancelCase)
		})

		r.Route("/cases", func(r chi.Router) {
			r.Get("/", s.listCases)
			r.Get("/count", s.countCases)
			r.Get("/{caseID}", s.getCase)
			r.Get("/{caseID}/audit", s.auditTrail)
		})

		r.Post("/appointments", s.createAppointment)
		r.Post("/inspections", s.createInspection)
	})

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
