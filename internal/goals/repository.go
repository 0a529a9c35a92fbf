package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/painel-vendas/painel/internal/platform/httpx"
)

// Repository persists goals in the metas table.
type Repository interface {
	ListActive(ctx context.Context) ([]Goal, error)
	Get(ctx context.Context, id int64) (Goal, error)
	Create(ctx context.Context, g Goal) (Goal, error)
	Update(ctx context.Context, id int64, g Goal) (Goal, error)
	Deactivate(ctx context.Context, id int64) error
	// Overlapping returns active goals of branches intersecting the range, oldest start first.
	Overlapping(ctx context.Context, branches []string, start, end time.Time) ([]Goal, error)
	History(ctx context.Context, branch string) ([]Goal, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const goalColumns = `id, filial, valor_meta, data_inicio, data_fim, ativa, COALESCE(descricao, '')`

func (r *repository) ListActive(ctx context.Context) ([]Goal, error) {
	return r.list(ctx, `SELECT `+goalColumns+` FROM metas WHERE ativa = true ORDER BY filial, data_inicio DESC`)
}

func (r *repository) Get(ctx context.Context, id int64) (Goal, error) {
	g, err := scanGoal(r.pool.QueryRow(ctx, `SELECT `+goalColumns+` FROM metas WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, fmt.Errorf("%w: goal %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return Goal{}, fmt.Errorf("goals: get: %w", err)
	}
	return g, nil
}

func (r *repository) Create(ctx context.Context, g Goal) (Goal, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO metas (filial, valor_meta, data_inicio, data_fim, ativa, descricao)
VALUES ($1, $2, $3, $4, true, NULLIF($5, ''))
RETURNING `+goalColumns,
		g.Branch, numeric(g.Value), date(g.Start), date(g.End), g.Description)
	created, err := scanGoal(row)
	if err != nil {
		return Goal{}, mapWriteError("create", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, g Goal) (Goal, error) {
	row := r.pool.QueryRow(ctx, `UPDATE metas SET filial = $1, valor_meta = $2, data_inicio = $3, data_fim = $4, ativa = $5, descricao = NULLIF($6, '')
WHERE id = $7 RETURNING `+goalColumns,
		g.Branch, numeric(g.Value), date(g.Start), date(g.End), g.Active, g.Description, id)
	updated, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, fmt.Errorf("%w: goal %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return Goal{}, mapWriteError("update", err)
	}
	return updated, nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `UPDATE metas SET ativa = false WHERE id = $1`, id); err != nil {
		return fmt.Errorf("goals: deactivate: %w", err)
	}
	return nil
}

func (r *repository) Overlapping(ctx context.Context, branches []string, start, end time.Time) ([]Goal, error) {
	return r.list(ctx, `SELECT `+goalColumns+` FROM metas
WHERE filial = ANY($1) AND ativa = true AND data_inicio <= $3 AND data_fim >= $2
ORDER BY data_inicio, id`, branches, date(start), date(end))
}

func (r *repository) History(ctx context.Context, branch string) ([]Goal, error) {
	return r.list(ctx, `SELECT `+goalColumns+` FROM metas WHERE filial = $1 ORDER BY data_inicio DESC`, branch)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Goal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("goals: query: %w", err)
	}
	defer rows.Close()

	out := []Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("goals: scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	var value pgtype.Numeric
	var start, end pgtype.Date
	if err := row.Scan(&g.ID, &g.Branch, &value, &start, &end, &g.Active, &g.Description); err != nil {
		return Goal{}, err
	}
	if value.Valid && value.Int != nil {
		g.Value = decimal.NewFromBigInt(value.Int, value.Exp)
	}
	g.Start, g.End = start.Time, end.Time
	return g, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: a goal for this branch and range already exists", httpx.ErrDuplicate)
	}
	return fmt.Errorf("goals: %s: %w", op, err)
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func date(t time.Time) pgtype.Date {
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}
