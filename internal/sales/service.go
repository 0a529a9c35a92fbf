package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/cache"
)

// GoalSource resolves the goal of each branch for a date range.
type GoalSource interface {
	GoalsFor(ctx context.Context, branches []string, start, end time.Time) (map[string]decimal.Decimal, error)
}

// Service builds dashboard payloads on top of the repository and the cache.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	goals  GoalSource
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the repository with an optional cache and goal source.
func NewService(repo Repository, c *cache.Versioned, goals GoalSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  c,
		goals:  goals,
		logger: logger.With(slog.String("component", "sales")),
		now:    time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Dashboard returns the aggregated payload for q.
func (s *Service) Dashboard(ctx context.Context, q Query) (Dashboard, error) {
	q = q.Normalize()
	if q.Start.IsZero() || q.End.IsZero() {
		return Dashboard{}, fmt.Errorf("%w: dataInicio and dataFim are required", ErrInvalidQuery)
	}
	if q.Start.After(q.End) {
		return Dashboard{}, fmt.Errorf("%w: %w", ErrInvalidQuery, period.ErrInvertedRange)
	}

	key, err := s.cache.Key(ctx, "dashboard",
		strings.Join(q.Branches, ","),
		strings.ToUpper(q.Seller),
		q.Start.Format(period.DateLayout),
		q.End.Format(period.DateLayout),
		q.PeriodToken,
		strconv.FormatBool(q.GroupByMonth),
	)
	if err != nil {
		return Dashboard{}, err
	}
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (Dashboard, error) {
		return s.build(ctx, q)
	})
}

// Branches lists every branch with sales rows.
func (s *Service) Branches(ctx context.Context) ([]string, error) {
	key, err := s.cache.Key(ctx, "filiais")
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, key, s.repo.Branches)
}

// Sellers lists seller names, restricted to branch when it is not empty.
func (s *Service) Sellers(ctx context.Context, branch string) ([]string, error) {
	branch = strings.TrimSpace(branch)
	key, err := s.cache.Key(ctx, "vendedores", branch)
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]string, error) {
		return s.repo.Sellers(ctx, branch)
	})
}

// Bump invalidates every cached payload.
func (s *Service) Bump(ctx context.Context) (int64, error) {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, q Query) (Dashboard, error) {
	filter := q.Filter()
	prev := period.Previous(q.Period(), s.now())
	prevFilter := filter
	prevFilter.Start, prevFilter.End = prev.Start, prev.End

	var (
		totals       Totals
		prevTotals   Totals
		largest      Sale
		hasLargest   bool
		sellers      []NamedTotal
		prevSellers  []NamedTotal
		branchTotals []NamedTotal
		days         []DayTotal
		branches     []string
		sellerNames  []string
		goals        map[string]decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.repo.Totals(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		largest, hasLargest, err = s.repo.LargestSale(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		sellers, err = s.repo.SellerTotals(gctx, filter)
		return err
	})
	g.Go(func() (err error) {
		prevSellers, err = s.repo.SellerTotals(gctx, prevFilter)
		return err
	})
	g.Go(func() (err error) {
		// The leading unit is searched across every branch.
		branchTotals, err = s.repo.BranchTotals(gctx, Filter{Seller: q.Seller, Start: q.Start, End: q.End})
		return err
	})
	g.Go(func() (err error) {
		days, err = s.repo.DailyTotals(gctx, filter, q.GroupByMonth)
		return err
	})
	g.Go(func() (err error) {
		branches, err = s.repo.Branches(gctx)
		return err
	})
	g.Go(func() (err error) {
		sellerNames, err = s.repo.Sellers(gctx, "")
		return err
	})
	if q.Compares() {
		g.Go(func() (err error) {
			prevTotals, err = s.repo.Totals(gctx, prevFilter)
			return err
		})
	}
	if len(q.Branches) > 0 && s.goals != nil {
		g.Go(func() (err error) {
			goals, err = s.goals.GoalsFor(gctx, q.Branches, q.Start, q.End)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard aggregation failed", slog.Any("error", err))
		return Dashboard{}, err
	}

	out := Dashboard{
		Total:    money(totals.Sum),
		Count:    totals.Count,
		Average:  money(totals.Ticket()),
		Series:   series(days),
		Ranking:  ranking(sellers, prevSellers),
		Branches: branches,
		Sellers:  sellerNames,
		Goals:    map[string]float64{},
	}
	if hasLargest {
		out.Highlights.LargestSale = money(largest.Value)
		out.Highlights.LargestSaleCustomer = largest.Customer
		out.Highlights.LargestSaleSeller = largest.Seller
	}
	if len(sellers) > 0 {
		out.Highlights.TopSeller = sellers[0].Name
		out.Highlights.TopSellerTotal = money(sellers[0].Total)
	}
	if len(branchTotals) > 0 {
		out.Highlights.TopBranch = branchTotals[0].Name
		out.Highlights.TopBranchTotal = money(branchTotals[0].Total)
	}
	if q.Compares() {
		out.Comparison = compare(totals, prevTotals)
	}
	for branch, goal := range goals {
		out.Goals[branch] = money(goal)
	}
	return out, nil
}

func compare(cur, prev Totals) *Comparison {
	curCount := decimal.NewFromInt(cur.Count)
	prevCount := decimal.NewFromInt(prev.Count)
	curTicket, prevTicket := cur.Ticket(), prev.Ticket()
	return &Comparison{
		Total:   Variation(&cur.Sum, &prev.Sum),
		Count:   Variation(&curCount, &prevCount),
		Average: Variation(&curTicket, &prevTicket),
	}
}

func series(days []DayTotal) []Point {
	out := make([]Point, 0, len(days))
	for _, d := range days {
		out = append(out, Point{Date: d.Day.Format(period.DateLayout), Value: money(d.Total)})
	}
	return out
}

// ranking pairs each seller with the change against the previous window.
// Previous totals are matched case-insensitively.
func ranking(current, previous []NamedTotal) []RankedSeller {
	before := make(map[string]decimal.Decimal, len(previous))
	for _, p := range previous {
		name := strings.ToUpper(p.Name)
		before[name] = before[name].Add(p.Total)
	}
	out := make([]RankedSeller, 0, len(current))
	for _, c := range current {
		prev := before[strings.ToUpper(c.Name)]
		entry := RankedSeller{Name: c.Name, Total: money(c.Total)}
		if change := Variation(&c.Total, &prev); change != nil {
			entry.Change = *change
		}
		out = append(out, entry)
	}
	return out
}
