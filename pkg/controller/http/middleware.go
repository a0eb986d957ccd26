package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vistoria-lab/vistoria/pkg/domain/model"
	"github.com/vistoria-lab/vistoria/pkg/domain/types"
	"github.com/vistoria-lab/vistoria/pkg/utils/logging"
)

// Forwarded identity headers. Authentication happens upstream; these carry
// the already-resolved actor.
const (
	headerActorID   = "X-Vistoria-Actor"
	headerActorRole = "X-Vistoria-Role"
)

// accessLogger logs every request with its status and duration
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.From(r.Context()).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// actorMiddleware attaches the forwarded actor to the request context. A
// request without identity headers passes through without an actor; the
// scoped endpoints reject it, the others do not need one.
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerActorID)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		role, err := types.ParseRole(r.Header.Get(headerActorRole))
		if err != nil {
			http.Error(w, "invalid actor role", http.StatusBadRequest)
			return
		}

		ctx := model.WithActor(r.Context(), model.Actor{
			ID:   types.ActorID(id),
			Role: role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
