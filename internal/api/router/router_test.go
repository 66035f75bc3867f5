package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/internal/http/handlers"
	"github.com/wolfman30/leadradar/internal/leads"
	"github.com/wolfman30/leadradar/internal/observability/metrics"
	"github.com/wolfman30/leadradar/pkg/logging"
)

type denyAfter struct {
	remaining int
}

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	if d.remaining <= 0 {
		return false, nil
	}
	d.remaining--
	return true, nil
}

func newTestRouter(t *testing.T, limiter *denyAfter) http.Handler {
	t.Helper()

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	formRepo := forms.NewInMemoryRepository()
	leadRepo := leads.NewInMemoryRepository(formRepo)
	leadService := leads.NewService(formRepo, leadRepo, leadRepo, nil, metrics.NewLeadMetrics(reg), logger)

	cfg := &Config{
		Logger:             logger,
		FormsHandler:       forms.NewHandler(formRepo, logger),
		LeadsHandler:       leads.NewHandler(leadService, logger),
		HealthHandler:      handlers.NewHealthHandler(nil, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"*"},
	}
	if limiter != nil {
		cfg.LeadRateLimiter = limiter
	}
	return New(cfg)
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(t, router, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
	if _, ok := resp["timestamp"]; !ok {
		t.Errorf("expected timestamp in health response")
	}
}

func TestRouterLeadCaptureFlow(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(t, router, http.MethodPost, "/api/admin/forms", `{"name":"Expo 2025","status":"ACTIVE"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create form: expected %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var created struct {
		Item forms.Form `json:"item"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	formPath := fmt.Sprintf("/api/admin/forms/%d", created.Item.ID)

	rr = serve(t, router, http.MethodPost, formPath+"/fields", `{"label":"Email","key":"email","type":"EMAIL","required":true}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create field: expected %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = serve(t, router, http.MethodPost, "/api/leads", fmt.Sprintf(`{"formId":%d,"values":{"email":"visitor@example.com"}}`, created.Item.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit lead: expected %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = serve(t, router, http.MethodGet, "/api/admin/leads", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list leads: expected %d, got %d", http.StatusOK, rr.Code)
	}
	var list leads.ListLeadsResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode leads: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Form.Name != "Expo 2025" {
		t.Fatalf("unexpected leads: %#v", list.Items)
	}

	rr = serve(t, router, http.MethodGet, "/api/admin/leads/export", "")
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected export content type %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "visitor@example.com") {
		t.Fatalf("expected export to contain the lead, got %q", rr.Body.String())
	}

	rr = serve(t, router, http.MethodGet, "/metrics", "")
	if !strings.Contains(rr.Body.String(), `leadradar_leads_submissions_total{result="created"} 1`) {
		t.Fatalf("expected submission counter in metrics output")
	}
}

func TestRouterRateLimitsLeadSubmissions(t *testing.T) {
	router := newTestRouter(t, &denyAfter{remaining: 1})

	rr := serve(t, router, http.MethodPost, "/api/leads", `{"formId":999,"values":{}}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected first submission to reach the handler, got %d", rr.Code)
	}

	rr = serve(t, router, http.MethodPost, "/api/leads", `{"formId":999,"values":{}}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected %d, got %d", http.StatusTooManyRequests, rr.Code)
	}

	rr = serve(t, router, http.MethodGet, "/api/admin/leads", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("admin routes are not rate limited, got %d", rr.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(t, router, http.MethodGet, "/api/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"code":"NOT_FOUND"`) {
		t.Fatalf("expected json error envelope, got %q", rr.Body.String())
	}

	rr = serve(t, router, http.MethodGet, "/api/admin/forms/abc", "")
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "INVALID_FORM_ID") {
		t.Fatalf("expected INVALID_FORM_ID, got %d %q", rr.Code, rr.Body.String())
	}
}
