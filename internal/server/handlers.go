package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/newsbrief/engine/internal/activity"
	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/newsbrief/engine/internal/worker"
	"github.com/rs/zerolog"
)

// providerHealthHandler reports each registered provider's configured
// state. The engine only ever calls providers synchronously inline
// with a briefing run, so there is no background health checker to
// report latency or last-check time from — configured state is all
// there is to report (spec §6).
func providerHealthHandler(registry *llmprovider.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{})
			return
		}
		resp := make(map[string]interface{})
		for name, configured := range registry.Statuses() {
			resp[name] = map[string]interface{}{"configured": configured}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type triggerRequest struct {
	UserID string `json:"user_id"`
}

// triggerHandler handles the on-demand briefing trigger (spec §4.5):
// it runs the worker's state machine synchronously for the requested
// user and reports the terminal outcome.
func triggerHandler(w *worker.Worker, log zerolog.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req triggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
			return
		}
		if w == nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"error": "worker unavailable"})
			return
		}

		outcome := w.RunBriefing(r.Context(), req.UserID, true)
		status := http.StatusOK
		if outcome == worker.OutcomeFailed {
			status = http.StatusInternalServerError
		}
		writeJSON(rw, status, map[string]string{"user_id": req.UserID, "outcome": string(outcome)})
	}
}

type recordActivityRequest struct {
	UserID   string `json:"user_id"`
	Timezone string `json:"timezone"`
}

// recordActivityHandler is the one HTTP-facing entry point for the
// Activity Tracker (spec §4.6 "record_activity"). The app that owns
// read events is out of scope (spec §1), so this is the seam it would
// call through: each hit bumps the caller's current local hour in the
// reading histogram that later drives briefing_generation_time.
func recordActivityHandler(tracker *activity.Tracker, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordActivityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Timezone == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and timezone are required"})
			return
		}
		loc, err := time.LoadLocation(req.Timezone)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timezone"})
			return
		}
		if tracker == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "activity tracker unavailable"})
			return
		}
		if err := tracker.RecordActivity(r.Context(), req.UserID, loc, time.Now()); err != nil {
			log.Error().Err(err).Str("user_id", req.UserID).Msg("record activity")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "record_activity failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"user_id": req.UserID, "status": "recorded"})
	}
}
