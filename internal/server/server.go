// Package server exposes the briefing engine's narrow operational
// surface over HTTP: health checks, metrics, provider health, and an
// on-demand briefing trigger. The full gateway's proxy, routing,
// caching, and policy surfaces are out of scope here (spec §1) — this
// router only ever needs the small slice the worker and its operators
// touch.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/newsbrief/engine/internal/activity"
	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/newsbrief/engine/internal/usage"
	"github.com/newsbrief/engine/internal/worker"
	"github.com/rs/zerolog"
)

// Deps bundles the collaborators the router's handlers call into.
type Deps struct {
	Registry       *llmprovider.Registry
	Usage          *usage.Service
	Worker         *worker.Worker
	Activity       *activity.Tracker
	RequestTimeout time.Duration
}

// New builds a chi router with the teacher's middleware ordering —
// recoverer, request logger, body size limit — reduced to the routes
// this engine actually serves.
func New(deps Deps, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))
	r.Use(maxBodySize(1 << 20))
	r.Use(timeoutMiddleware(deps.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "newsbrief-engine"})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "newsbrief-engine"})
	})

	if deps.Usage != nil {
		r.Get("/metrics", deps.Usage.Registry().Handler().ServeHTTP)
	}

	r.Get("/v1/providers/health", providerHealthHandler(deps.Registry))
	r.Post("/v1/briefing/trigger", triggerHandler(deps.Worker, log))
	r.Post("/v1/activity/record", recordActivityHandler(deps.Activity, log))

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}

func maxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request_too_large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
