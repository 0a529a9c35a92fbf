package saleshttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/painel-vendas/painel/internal/sales"
)

type stubService struct {
	mu       sync.Mutex
	payload  sales.Dashboard
	err      error
	last     sales.Query
	branch   string
	branches []string
}

func (s *stubService) Dashboard(ctx context.Context, q sales.Query) (sales.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = q
	return s.payload, s.err
}

func (s *stubService) Branches(ctx context.Context) ([]string, error) {
	return s.branches, nil
}

func (s *stubService) Sellers(ctx context.Context, branch string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branch = branch
	return []string{"ANA"}, nil
}

type stubObserver struct {
	calls int
	err   error
}

func (s *stubObserver) ObserveBuild(endpoint string, elapsed time.Duration, err error) {
	s.calls++
	s.err = err
}

func newRouter(svc *stubService, obs *stubObserver) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, svc, obs, time.UTC).MountRoutes(r)
	return r
}

func TestDashboardParsesFilters(t *testing.T) {
	svc := &stubService{payload: sales.Dashboard{Total: 1500, Count: 3, Average: 500}}
	obs := &stubObserver{}
	router := newRouter(svc, obs)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?dataInicio=2025-11-01&dataFim=2025-11-30&filial=Sinop&filial=Sorriso&vendedor=ana&tipoPeriodo=mes&agruparPorMes=true", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := svc.last.Branches; len(got) != 2 || got[0] != "Sinop" || got[1] != "Sorriso" {
		t.Fatalf("unexpected branches %v", got)
	}
	if svc.last.Seller != "ana" || svc.last.PeriodToken != "mes" || !svc.last.GroupByMonth {
		t.Fatalf("unexpected query %+v", svc.last)
	}
	if !svc.last.Start.Equal(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", svc.last.Start)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["totalVendas"] != 1500.0 || body["ticketMedio"] != 500.0 {
		t.Fatalf("unexpected body %v", body)
	}
	if obs.calls != 1 || obs.err != nil {
		t.Fatalf("expected one observed build, got %d", obs.calls)
	}
}

func TestDashboardRejectsBadDates(t *testing.T) {
	router := newRouter(&stubService{}, nil)
	cases := []string{
		"/api/dashboard?dataFim=2025-11-30",
		"/api/dashboard?dataInicio=2025-13-01&dataFim=2025-11-30",
		"/api/dashboard?dataInicio=2025-11-30&dataFim=2025-11-01",
		"/api/dashboard?dataInicio=2025-11-01&dataFim=2025-11-30&agruparPorMes=talvez",
	}
	for _, target := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("expected problem json, got %s", ct)
		}
	}
}

func TestDashboardServiceErrors(t *testing.T) {
	svc := &stubService{err: errors.New("db down")}
	obs := &stubObserver{}
	router := newRouter(svc, obs)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard?dataInicio=2025-11-01&dataFim=2025-11-30", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if obs.err == nil {
		t.Fatalf("expected failure observed")
	}

	svc.err = sales.ErrInvalidQuery
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard?dataInicio=2025-11-01&dataFim=2025-11-30", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListEndpoints(t *testing.T) {
	svc := &stubService{branches: []string{"Sinop", "Sorriso"}}
	router := newRouter(svc, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/filiais", nil))
	var branches []string
	if err := json.Unmarshal(rr.Body.Bytes(), &branches); err != nil || len(branches) != 2 {
		t.Fatalf("unexpected branches %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vendedores/por-unidade?filial=Sinop", nil))
	if rr.Code != http.StatusOK || svc.branch != "Sinop" {
		t.Fatalf("expected branch lookup, got %d %q", rr.Code, svc.branch)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vendedores/por-unidade", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without filial, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vendedores", nil))
	if rr.Code != http.StatusOK || svc.branch != "" {
		t.Fatalf("expected all sellers, got %d %q", rr.Code, svc.branch)
	}
}

func TestQueryKeyIsCaseInsensitiveOnSeller(t *testing.T) {
	a := sales.Query{Seller: "ana", Start: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)}
	b := a
	b.Seller = "ANA"
	if queryKey(a) != queryKey(b) {
		t.Fatalf("expected equal keys")
	}
	b.GroupByMonth = true
	if queryKey(a) == queryKey(b) {
		t.Fatalf("expected grouping to change the key")
	}
}
