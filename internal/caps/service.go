package caps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/cache"
	"github.com/painel-vendas/painel/internal/platform/httpx"
)

// Competition window used when a request names no dates.
var (
	DefaultStart = time.Date(2025, time.November, 19, 0, 0, 0, 0, time.Local)
	DefaultEnd   = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.Local)
)

const podiumSize = 3

// Placement is a podium step.
type Placement struct {
	Position int     `json:"posicao"`
	Name     string  `json:"nome,omitempty"`
	Total    float64 `json:"total"`
	Branch   string  `json:"filial"`
}

// Entry is a ranking line.
type Entry struct {
	Name   string  `json:"nome"`
	Total  float64 `json:"total"`
	Branch string  `json:"filial"`
	Change float64 `json:"variacao"`
}

// Board is the /bone/api/dados payload. Totals are always null.
type Board struct {
	Total        *float64    `json:"totalVendas"`
	Count        *int64      `json:"numeroVendas"`
	Average      *float64    `json:"ticketMedio"`
	Series       []struct{}  `json:"dadosGrafico"`
	Ranking      []Entry     `json:"top10Vendedores"`
	SellerPodium []Placement `json:"podiumVendedores"`
	UnitPodium   []Placement `json:"podiumUnidades"`
}

// Service builds the board.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService wires the repository with an optional cache.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger.With(slog.String("component", "caps"))}
}

// Board ranks sellers over p. Each seller is compared with the window of the
// same length that ends the day before p starts.
func (s *Service) Board(ctx context.Context, p period.Period) (Board, error) {
	if err := p.Validate(); err != nil {
		return Board{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	key, err := s.cache.Key(ctx, "board", p.StartParam(), p.EndParam())
	if err != nil {
		return Board{}, err
	}
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (Board, error) {
		return s.build(ctx, p)
	})
}

// Sellers lists competing sellers.
func (s *Service) Sellers(ctx context.Context) ([]string, error) {
	key, err := s.cache.Key(ctx, "vendedores")
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, key, s.repo.Sellers)
}

func (s *Service) build(ctx context.Context, p period.Period) (Board, error) {
	prev := period.Trailing(p)

	var (
		totals   []SellerTotal
		branches map[string]string
		before   map[string]decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.repo.SellerTotals(gctx, p.Start, p.End)
		return err
	})
	g.Go(func() (err error) {
		branches, err = s.repo.LeadingBranches(gctx, p.Start, p.End)
		return err
	})
	g.Go(func() (err error) {
		before, err = s.repo.TotalsBySeller(gctx, prev.Start, prev.End)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("board aggregation failed", slog.Any("error", err))
		return Board{}, fmt.Errorf("caps: board: %w", err)
	}

	board := Board{
		Series:       []struct{}{},
		Ranking:      make([]Entry, 0, len(totals)),
		SellerPodium: []Placement{},
		UnitPodium:   []Placement{},
	}
	for i, t := range totals {
		upper := strings.ToUpper(t.Name)
		branch := branches[upper]
		total := t.Total.Round(2).InexactFloat64()
		if i < podiumSize {
			board.SellerPodium = append(board.SellerPodium, Placement{Position: i + 1, Name: t.Name, Total: total, Branch: branch})
			board.UnitPodium = append(board.UnitPodium, Placement{Position: i + 1, Total: total, Branch: branch})
		}
		board.Ranking = append(board.Ranking, Entry{
			Name:   t.Name,
			Total:  total,
			Branch: branch,
			Change: change(t.Total, before[upper]),
		})
	}
	return board, nil
}

// change is the percentage variation at four decimals, half up. No previous
// sales yield 0.
func change(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	return current.Sub(previous).DivRound(previous, 4).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
