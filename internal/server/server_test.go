package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/newsbrief/engine/internal/activity"
	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	registry := llmprovider.NewRegistry("claude-3.5-sonnet")
	tracker := activity.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	log := zerolog.New(io.Discard)

	return New(Deps{
		Registry:       registry,
		Worker:         nil,
		Activity:       tracker,
		RequestTimeout: time.Second,
	}, log)
}

func TestHealthEndpoints(t *testing.T) {
	r := testRouter(t)

	for _, path := range []string{"/healthz", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, req)
		if rw.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rw.Code)
		}
	}
}

func TestProviderHealthReportsEmptyWhenNoneRegistered(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/providers/health", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("expected no registered providers, got %v", body)
	}
}

func TestTriggerHandlerRejectsMissingUserID(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/briefing/trigger", bytes.NewBufferString(`{}`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestTriggerHandlerReturns503WhenWorkerUnavailable(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/briefing/trigger", bytes.NewBufferString(`{"user_id":"u1"}`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
}

func TestRecordActivityHandlerValidatesInput(t *testing.T) {
	r := testRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing user_id", `{"timezone":"America/New_York"}`},
		{"missing timezone", `{"user_id":"u1"}`},
		{"bad timezone", `{"user_id":"u1","timezone":"Not/A_Zone"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/activity/record", bytes.NewBufferString(tc.body))
			rw := httptest.NewRecorder()
			r.ServeHTTP(rw, req)
			if rw.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rw.Code)
			}
		})
	}
}

func TestRecordActivityHandlerRecordsOnSuccess(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/activity/record", bytes.NewBufferString(`{"user_id":"u1","timezone":"America/New_York"}`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
}
