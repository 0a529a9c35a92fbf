package goals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/painel-vendas/painel/internal/platform/httpx"
)

// Service resolves and maintains goals.
type Service struct {
	repo     Repository
	fallback decimal.Decimal
	logger   *slog.Logger
}

// NewService builds the service. A non-positive fallback uses DefaultValue.
func NewService(repo Repository, fallback decimal.Decimal, logger *slog.Logger) *Service {
	if !fallback.IsPositive() {
		fallback = DefaultValue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, fallback: fallback, logger: logger.With(slog.String("component", "goals"))}
}

// Fallback returns the value assumed for branches without goals.
func (s *Service) Fallback() decimal.Decimal {
	return s.fallback
}

// GoalFor returns the goal of branch for the range. The active goal with the
// latest start wins; branches without one get the fallback.
func (s *Service) GoalFor(ctx context.Context, branch string, start, end time.Time) (Resolved, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return Resolved{}, fmt.Errorf("%w: filial is required", httpx.ErrValidation)
	}
	found, err := s.repo.Overlapping(ctx, []string{branch}, start, end)
	if err != nil {
		return Resolved{}, err
	}
	if len(found) == 0 {
		return Resolved{Branch: branch, Value: s.fallback, Start: start, End: end, Default: true}, nil
	}
	latest := found[len(found)-1]
	return Resolved{Branch: branch, Value: latest.Value, Start: latest.Start, End: latest.End}, nil
}

// GoalsFor maps every branch to its goal for the range.
func (s *Service) GoalsFor(ctx context.Context, branches []string, start, end time.Time) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(branches))
	if len(branches) == 0 {
		return out, nil
	}
	found, err := s.repo.Overlapping(ctx, branches, start, end)
	if err != nil {
		return nil, err
	}
	// Oldest first, so later starts overwrite earlier ones.
	for _, g := range found {
		out[g.Branch] = g.Value
	}
	for _, b := range branches {
		if _, ok := out[b]; !ok {
			out[b] = s.fallback
		}
	}
	return out, nil
}

// ListActive lists every active goal.
func (s *Service) ListActive(ctx context.Context) ([]Goal, error) {
	return s.repo.ListActive(ctx)
}

// History lists every goal of a branch, newest first.
func (s *Service) History(ctx context.Context, branch string) ([]Goal, error) {
	return s.repo.History(ctx, strings.TrimSpace(branch))
}

// Create stores a new active goal.
func (s *Service) Create(ctx context.Context, g Goal) (Goal, error) {
	if err := check(g); err != nil {
		return Goal{}, err
	}
	created, err := s.repo.Create(ctx, g)
	if err != nil {
		return Goal{}, err
	}
	s.logger.Info("goal created", slog.Int64("id", created.ID), slog.String("filial", created.Branch))
	return created, nil
}

// Update replaces a goal.
func (s *Service) Update(ctx context.Context, id int64, g Goal) (Goal, error) {
	if err := check(g); err != nil {
		return Goal{}, err
	}
	updated, err := s.repo.Update(ctx, id, g)
	if err != nil {
		return Goal{}, err
	}
	s.logger.Info("goal updated", slog.Int64("id", id))
	return updated, nil
}

// Deactivate marks a goal inactive. Unknown ids are ignored.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

func check(g Goal) error {
	if strings.TrimSpace(g.Branch) == "" {
		return fmt.Errorf("%w: filial is required", httpx.ErrValidation)
	}
	if !g.Value.IsPositive() {
		return fmt.Errorf("%w: valorMeta must be positive", httpx.ErrValidation)
	}
	if g.Start.After(g.End) {
		return fmt.Errorf("%w: dataInicio after dataFim", httpx.ErrValidation)
	}
	return nil
}
