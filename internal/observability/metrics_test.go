package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/painel-vendas/painel/internal/jobs"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("dashboard:cache_warmup").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, `painel_jobs_total{job="dashboard:cache_warmup",status="success"} 1`) {
		t.Fatalf("expected body to contain painel_jobs_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestPollerAndBuildCollectors(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveFetch("placar", "applied", 120*time.Millisecond)
	metrics.ObserveFetch("placar", "blocked", 80*time.Millisecond)
	metrics.ObserveRedraw("placar", "metrics")
	metrics.ObserveRotation("regional", "panels")
	metrics.ObserveBuild("dashboard", time.Second, errors.New("boom"))

	body := scrape(t, metrics)
	for _, want := range []string{
		`painel_poller_fetches_total{outcome="blocked",variant="placar"} 1`,
		`painel_poller_redraws_total{group="metrics",variant="placar"} 1`,
		`painel_poller_rotations_total{rotator="panels",variant="regional"} 1`,
		`painel_dashboard_build_failures_total{endpoint="dashboard"} 1`,
		`painel_dashboard_build_seconds_count{endpoint="dashboard"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveFetch("main", "error", time.Second)
	metrics.ObserveBuild("dashboard", time.Second, nil)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
