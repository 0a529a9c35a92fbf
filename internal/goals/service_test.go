package goals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painel-vendas/painel/internal/platform/httpx"
)

type stubRepo struct {
	goals       []Goal
	created     []Goal
	deactivated []int64
	err         error
}

func (s *stubRepo) ListActive(ctx context.Context) ([]Goal, error) {
	var out []Goal
	for _, g := range s.goals {
		if g.Active {
			out = append(out, g)
		}
	}
	return out, s.err
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Goal, error) {
	for _, g := range s.goals {
		if g.ID == id {
			return g, nil
		}
	}
	return Goal{}, httpx.ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, g Goal) (Goal, error) {
	if s.err != nil {
		return Goal{}, s.err
	}
	g.ID = int64(len(s.goals) + 1)
	g.Active = true
	s.goals = append(s.goals, g)
	s.created = append(s.created, g)
	return g, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, g Goal) (Goal, error) {
	for i := range s.goals {
		if s.goals[i].ID == id {
			g.ID = id
			s.goals[i] = g
			return g, nil
		}
	}
	return Goal{}, httpx.ErrNotFound
}

func (s *stubRepo) Deactivate(ctx context.Context, id int64) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *stubRepo) Overlapping(ctx context.Context, branches []string, start, end time.Time) ([]Goal, error) {
	if s.err != nil {
		return nil, s.err
	}
	want := map[string]bool{}
	for _, b := range branches {
		want[b] = true
	}
	var out []Goal
	for _, g := range s.goals {
		if g.Active && want[g.Branch] && g.Overlaps(start, end) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubRepo) History(ctx context.Context, branch string) ([]Goal, error) {
	var out []Goal
	for _, g := range s.goals {
		if g.Branch == branch {
			out = append(out, g)
		}
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seeded() *stubRepo {
	return &stubRepo{goals: []Goal{
		{ID: 1, Branch: "Sinop", Value: decimal.NewFromInt(200000), Start: day(2025, 10, 1), End: day(2025, 10, 31), Active: true},
		{ID: 2, Branch: "Sinop", Value: decimal.NewFromInt(300000), Start: day(2025, 10, 27), End: day(2025, 11, 30), Active: true},
		{ID: 3, Branch: "Sorriso", Value: decimal.NewFromInt(999), Start: day(2025, 10, 1), End: day(2025, 10, 31), Active: false},
	}}
}

func TestGoalForPrefersLatestStart(t *testing.T) {
	svc := NewService(seeded(), decimal.Zero, nil)
	got, err := svc.GoalFor(context.Background(), "Sinop", day(2025, 10, 27), day(2025, 10, 31))
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(300000)))
	assert.False(t, got.Default)
	assert.Equal(t, day(2025, 11, 30), got.End)
}

func TestGoalForFallsBackToDefault(t *testing.T) {
	svc := NewService(seeded(), decimal.Zero, nil)
	got, err := svc.GoalFor(context.Background(), "Sorriso", day(2025, 10, 27), day(2025, 10, 31))
	require.NoError(t, err)
	assert.True(t, got.Default)
	assert.Equal(t, "1000000.00", got.Value.StringFixed(2))

	_, err = svc.GoalFor(context.Background(), " ", day(2025, 10, 27), day(2025, 10, 31))
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGoalsForFillsMissingBranches(t *testing.T) {
	svc := NewService(seeded(), decimal.NewFromInt(500000), nil)
	got, err := svc.GoalsFor(context.Background(), []string{"Sinop", "Sorriso", "Matupá"}, day(2025, 10, 27), day(2025, 10, 31))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got["Sinop"].Equal(decimal.NewFromInt(300000)))
	assert.True(t, got["Sorriso"].Equal(decimal.NewFromInt(500000)))
	assert.True(t, got["Matupá"].Equal(decimal.NewFromInt(500000)))

	empty, err := svc.GoalsFor(context.Background(), nil, day(2025, 10, 27), day(2025, 10, 31))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGoalsForPropagatesErrors(t *testing.T) {
	repo := seeded()
	repo.err = errors.New("db down")
	svc := NewService(repo, decimal.Zero, nil)
	_, err := svc.GoalsFor(context.Background(), []string{"Sinop"}, day(2025, 10, 27), day(2025, 10, 31))
	assert.ErrorIs(t, err, repo.err)
}

func TestCreateValidates(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, decimal.Zero, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Goal{Branch: "Sinop", Value: decimal.Zero, Start: day(2025, 11, 1), End: day(2025, 11, 30)})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.Create(ctx, Goal{Branch: "Sinop", Value: decimal.NewFromInt(1), Start: day(2025, 11, 30), End: day(2025, 11, 1)})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.created)

	created, err := svc.Create(ctx, Goal{Branch: "Sinop", Value: decimal.NewFromInt(1), Start: day(2025, 11, 1), End: day(2025, 11, 30)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestUpdateMissingGoal(t *testing.T) {
	svc := NewService(seeded(), decimal.Zero, nil)
	_, err := svc.Update(context.Background(), 42, Goal{Branch: "Sinop", Value: decimal.NewFromInt(1), Start: day(2025, 11, 1), End: day(2025, 11, 30)})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestOverlaps(t *testing.T) {
	g := Goal{Start: day(2025, 10, 1), End: day(2025, 10, 31)}
	assert.True(t, g.Overlaps(day(2025, 10, 31), day(2025, 11, 5)))
	assert.True(t, g.Overlaps(day(2025, 9, 1), day(2025, 10, 1)))
	assert.False(t, g.Overlaps(day(2025, 11, 1), day(2025, 11, 5)))
}
