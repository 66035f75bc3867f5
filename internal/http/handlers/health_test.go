package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/leadradar/pkg/logging"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthCheckConnected(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, logging.Discard())
	fixed := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode json response: %v", err)
	}
	if body.Status != "ok" || body.DB != "connected" {
		t.Fatalf("unexpected body: %#v", body)
	}
	if !body.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected timestamp %s", body.Timestamp)
	}
}

func TestHealthCheckInMemory(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, logging.Discard()).Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode json response: %v", err)
	}
	if body.DB != "memory" {
		t.Fatalf("expected memory db state, got %q", body.DB)
	}
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewHealthHandler(stubPinger{err: errors.New("connection refused")}, logging.Discard())
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode json response: %v", err)
	}
	if body.Error.Code != "DB_ERROR" || body.Error.Message != "Database connection failed" {
		t.Fatalf("unexpected error body: %#v", body)
	}
}
