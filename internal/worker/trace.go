package worker

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RunID identifies one end-to-end briefing generation for a user, the
// way a TraceID identifies a request in a gateway (spec §4.5 run log).
type RunID [16]byte

func (r RunID) String() string { return hex.EncodeToString(r[:]) }

// GenerateRunID creates a new random run identifier.
func GenerateRunID() RunID {
	var id RunID
	_, _ = rand.Read(id[:])
	return id
}

// Span represents one stage of a briefing run: scoring, summarizing,
// processing, or persisting. There is no inbound HTTP request to
// propagate a trace context from here, so, unlike a gateway's
// request-scoped tracer, a Span only ever logs locally — it carries no
// exporter, no sampler, and no W3C propagation header.
type Span struct {
	mu        sync.Mutex
	Name      string
	RunID     RunID
	StartTime time.Time
	EndTime   time.Time
	Attrs     map[string]string
	Status    string // "ok", "error", "unset"
	StatusMsg string
	finished  bool
	log       zerolog.Logger
}

// StartSpan begins timing a named stage within a run and logs entry.
func StartSpan(log zerolog.Logger, runID RunID, name string) *Span {
	s := &Span{
		Name:      name,
		RunID:     runID,
		StartTime: time.Now().UTC(),
		Attrs:     make(map[string]string),
		Status:    "unset",
		log:       log,
	}
	s.log.Debug().Str("run_id", runID.String()).Str("stage", name).Msg("stage started")
	return s
}

// SetAttribute attaches a key-value pair to the span's closing log line.
func (s *Span) SetAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attrs[key] = value
}

// SetStatus records the stage's outcome.
func (s *Span) SetStatus(status, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.StatusMsg = msg
}

// Duration reports elapsed time since the span started.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// End closes the span and emits its summary log line.
func (s *Span) End() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.EndTime = time.Now().UTC()
	s.finished = true
	evt := s.log.Debug()
	if s.Status == "error" {
		evt = s.log.Warn()
	}
	evt = evt.Str("run_id", s.RunID.String()).
		Str("stage", s.Name).
		Dur("duration", s.EndTime.Sub(s.StartTime)).
		Str("status", s.Status)
	for k, v := range s.Attrs {
		evt = evt.Str(k, v)
	}
	msg := s.StatusMsg
	s.mu.Unlock()
	if msg == "" {
		msg = "stage finished"
	}
	evt.Msg(msg)
}
