package caps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/httpx"
)

// BoardService is the contract used by the handler.
type BoardService interface {
	Board(ctx context.Context, p period.Period) (Board, error)
	Sellers(ctx context.Context) ([]string, error)
}

// Handler serves /bone/api.
type Handler struct {
	logger  *slog.Logger
	service BoardService
	loc     *time.Location
}

// NewHandler constructs the caps handler.
func NewHandler(logger *slog.Logger, service BoardService, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger.With(slog.String("component", "caps.http")), service: service, loc: loc}
}

// MountRoutes registers the caps API.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/bone/api", func(r chi.Router) {
		r.Get("/dados", h.handleBoard)
		r.Get("/vendedores", h.handleSellers)
	})
}

func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriod(r, h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	board, err := h.service.Board(r.Context(), p)
	if err != nil {
		h.fail(w, "caps board", err)
		return
	}
	httpx.JSON(w, http.StatusOK, board)
}

func (h *Handler) handleSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.service.Sellers(r.Context())
	if err != nil {
		h.fail(w, "caps sellers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sellers)
}

// ParsePeriod reads dataInicio, dataFim and periodo. When either date is
// missing the whole competition window is used.
func ParsePeriod(r *http.Request, loc *time.Location) (period.Period, error) {
	q := r.URL.Query()
	token := q.Get("periodo")
	if token == "" {
		token = "hoje"
	}
	p := period.Period{Kind: period.ParseKind(token)}

	rawStart, rawEnd := q.Get("dataInicio"), q.Get("dataFim")
	if rawStart == "" || rawEnd == "" {
		p.Start = time.Date(DefaultStart.Year(), DefaultStart.Month(), DefaultStart.Day(), 0, 0, 0, 0, loc)
		p.End = time.Date(DefaultEnd.Year(), DefaultEnd.Month(), DefaultEnd.Day(), 0, 0, 0, 0, loc)
		return p, nil
	}
	start, err := period.ParseDate(rawStart, loc)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	end, err := period.ParseDate(rawEnd, loc)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	p.Start, p.End = start, end
	if err := p.Validate(); err != nil {
		return period.Period{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return p, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
