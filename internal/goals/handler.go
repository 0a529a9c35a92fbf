package goals

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
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/httpx"
)

// GoalService is the contract used by the handler.
type GoalService interface {
	GoalFor(ctx context.Context, branch string, start, end time.Time) (Resolved, error)
	GoalsFor(ctx context.Context, branches []string, start, end time.Time) (map[string]decimal.Decimal, error)
	ListActive(ctx context.Context) ([]Goal, error)
	History(ctx context.Context, branch string) ([]Goal, error)
	Create(ctx context.Context, g Goal) (Goal, error)
	Update(ctx context.Context, id int64, g Goal) (Goal, error)
	Deactivate(ctx context.Context, id int64) error
}

// Invalidator drops cached dashboards after goals change.
type Invalidator interface {
	Bump(ctx context.Context) (int64, error)
}

// Handler serves /api/metas.
type Handler struct {
	logger      *slog.Logger
	service     GoalService
	invalidator Invalidator
	auth        func(http.Handler) http.Handler
	validator   *validator.Validate
	loc         *time.Location
}

// NewHandler constructs the goals handler. auth wraps the mutating routes.
func NewHandler(logger *slog.Logger, service GoalService, invalidator Invalidator, auth func(http.Handler) http.Handler, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		logger:      logger.With(slog.String("component", "goals.http")),
		service:     service,
		invalidator: invalidator,
		auth:        auth,
		validator:   validator.New(),
		loc:         loc,
	}
}

// MountRoutes registers the goal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/metas", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/filial", h.handleBranchGoal)
		r.Get("/filiais", h.handleBranchGoals)
		r.Get("/filial/{filial}/historico", h.handleHistory)

		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Use(h.auth)
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDeactivate)
		})
	})
}

type goalPayload struct {
	Branch      string  `json:"filial" validate:"required,max=100"`
	Value       float64 `json:"valorMeta" validate:"required,gt=0"`
	Start       string  `json:"dataInicio" validate:"required,datetime=2006-01-02"`
	End         string  `json:"dataFim" validate:"required,datetime=2006-01-02"`
	Active      *bool   `json:"ativa"`
	Description string  `json:"descricao" validate:"max=255"`
}

type goalResponse struct {
	ID          int64   `json:"id"`
	Branch      string  `json:"filial"`
	Value       float64 `json:"valorMeta"`
	Start       string  `json:"dataInicio"`
	End         string  `json:"dataFim"`
	Active      bool    `json:"ativa"`
	Description string  `json:"descricao,omitempty"`
}

type branchGoalResponse struct {
	Branch  string  `json:"filial"`
	Value   float64 `json:"valorMeta"`
	Start   string  `json:"dataInicio"`
	End     string  `json:"dataFim"`
	Default bool    `json:"padrao"`
}

func toResponse(g Goal) goalResponse {
	return goalResponse{
		ID:          g.ID,
		Branch:      g.Branch,
		Value:       g.Value.InexactFloat64(),
		Start:       g.Start.Format(period.DateLayout),
		End:         g.End.Format(period.DateLayout),
		Active:      g.Active,
		Description: g.Description,
	}
}

func toResponses(goals []Goal) []goalResponse {
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toResponse(g))
	}
	return out
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.ListActive(r.Context())
	if err != nil {
		h.fail(w, "list goals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponses(goals))
}

func (h *Handler) handleBranchGoal(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resolved, err := h.service.GoalFor(r.Context(), r.URL.Query().Get("filial"), start, end)
	if err != nil {
		h.fail(w, "branch goal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, branchGoalResponse{
		Branch:  resolved.Branch,
		Value:   resolved.Value.InexactFloat64(),
		Start:   resolved.Start.Format(period.DateLayout),
		End:     resolved.End.Format(period.DateLayout),
		Default: resolved.Default,
	})
}

func (h *Handler) handleBranchGoals(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var branches []string
	for _, b := range r.URL.Query()["filial"] {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				branches = append(branches, part)
			}
		}
	}
	if len(branches) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: filial is required", httpx.ErrValidation))
		return
	}
	goals, err := h.service.GoalsFor(r.Context(), branches, start, end)
	if err != nil {
		h.fail(w, "branch goals", err)
		return
	}
	out := make(map[string]float64, len(goals))
	for branch, v := range goals {
		out[branch] = v.InexactFloat64()
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.History(r.Context(), chi.URLParam(r, "filial"))
	if err != nil {
		h.fail(w, "goal history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponses(goals))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	goal, err := h.decode(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), goal)
	if err != nil {
		h.fail(w, "create goal", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	goal, err := h.decode(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, goal)
	if err != nil {
		h.fail(w, "update goal", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, "deactivate goal", err)
		return
	}
	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request) (Goal, error) {
	var payload goalPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		return Goal{}, fmt.Errorf("%w: malformed body", httpx.ErrValidation)
	}
	if err := h.validator.Struct(payload); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return Goal{}, fmt.Errorf("%w: %s failed %s", httpx.ErrValidation, fields[0].Field(), fields[0].Tag())
		}
		return Goal{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	start, err := period.ParseDate(payload.Start, h.loc)
	if err != nil {
		return Goal{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	end, err := period.ParseDate(payload.End, h.loc)
	if err != nil {
		return Goal{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	return Goal{
		Branch:      strings.TrimSpace(payload.Branch),
		Value:       decimal.NewFromFloat(payload.Value).Round(2),
		Start:       start,
		End:         end,
		Active:      active,
		Description: strings.TrimSpace(payload.Description),
	}, nil
}

func (h *Handler) parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := period.ParseDate(q.Get("dataInicio"), h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	end, err := period.ParseDate(q.Get("dataFim"), h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return start, end, nil
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.invalidator == nil {
		return
	}
	if _, err := h.invalidator.Bump(ctx); err != nil {
		h.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrDuplicate) {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	}
	return id, nil
}
