package saleshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/httpx"
	"github.com/painel-vendas/painel/internal/sales"
)

const requestTimeout = 10 * time.Second

// Service is the sales contract used by the handler.
type Service interface {
	Dashboard(ctx context.Context, q sales.Query) (sales.Dashboard, error)
	Branches(ctx context.Context) ([]string, error)
	Sellers(ctx context.Context, branch string) ([]string, error)
}

// BuildObserver records how long payloads took to build.
type BuildObserver interface {
	ObserveBuild(endpoint string, elapsed time.Duration, err error)
}

// Handler serves the dashboard JSON API.
type Handler struct {
	logger   *slog.Logger
	service  Service
	observer BuildObserver
	loc      *time.Location
	group    singleflight.Group
}

// NewHandler constructs the handler. Dates are read in loc (time.Local when nil).
func NewHandler(logger *slog.Logger, service Service, observer BuildObserver, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		logger:   logger.With(slog.String("component", "sales.http")),
		service:  service,
		observer: observer,
		loc:      loc,
	}
}

// MountRoutes registers the dashboard API.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/api/dashboard", h.handleDashboard)
	r.Get("/api/filiais", h.handleBranches)
	r.Get("/api/vendedores", h.handleSellers)
	r.Get("/api/vendedores/por-unidade", h.handleSellersByBranch)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r, h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	start := time.Now()
	val, err, shared := h.do(ctx, queryKey(q), func(ctx context.Context) (any, error) {
		return h.service.Dashboard(ctx, q)
	})
	if h.observer != nil && !shared {
		h.observer.ObserveBuild("dashboard", time.Since(start), err)
	}
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, val)
}

func (h *Handler) handleBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.service.Branches(r.Context())
	if err != nil {
		h.fail(w, "branches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, branches)
}

func (h *Handler) handleSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.service.Sellers(r.Context(), "")
	if err != nil {
		h.fail(w, "sellers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sellers)
}

func (h *Handler) handleSellersByBranch(w http.ResponseWriter, r *http.Request) {
	branch := strings.TrimSpace(r.URL.Query().Get("filial"))
	if branch == "" {
		httpx.RespondError(w, fmt.Errorf("%w: filial is required", httpx.ErrValidation))
		return
	}
	sellers, err := h.service.Sellers(r.Context(), branch)
	if err != nil {
		h.fail(w, "sellers by branch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sellers)
}

// do coalesces concurrent identical requests. Waiters give up when their own
// context ends.
func (h *Handler) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	ch := h.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
		defer cancel()
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, sales.ErrInvalidQuery):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" timed out", slog.Any("error", err))
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// ParseQuery reads the dashboard filters from the request. filial may repeat.
func ParseQuery(r *http.Request, loc *time.Location) (sales.Query, error) {
	values := r.URL.Query()
	startRaw, endRaw := values.Get("dataInicio"), values.Get("dataFim")
	if startRaw == "" || endRaw == "" {
		return sales.Query{}, fmt.Errorf("%w: dataInicio and dataFim are required", httpx.ErrValidation)
	}
	start, err := period.ParseDate(startRaw, loc)
	if err != nil {
		return sales.Query{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	end, err := period.ParseDate(endRaw, loc)
	if err != nil {
		return sales.Query{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if start.After(end) {
		return sales.Query{}, fmt.Errorf("%w: %v", httpx.ErrValidation, period.ErrInvertedRange)
	}

	byMonth := false
	if raw := values.Get("agruparPorMes"); raw != "" {
		byMonth, err = strconv.ParseBool(raw)
		if err != nil {
			return sales.Query{}, fmt.Errorf("%w: agruparPorMes must be a boolean", httpx.ErrValidation)
		}
	}

	q := sales.Query{
		Branches:     values["filial"],
		Seller:       values.Get("vendedor"),
		Start:        start,
		End:          end,
		GroupByMonth: byMonth,
		PeriodToken:  values.Get("tipoPeriodo"),
	}
	return q.Normalize(), nil
}

func queryKey(q sales.Query) string {
	return strings.Join([]string{
		strings.Join(q.Branches, ","),
		strings.ToUpper(q.Seller),
		q.Start.Format(period.DateLayout),
		q.End.Format(period.DateLayout),
		q.PeriodToken,
		strconv.FormatBool(q.GroupByMonth),
	}, "|")
}
