package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads sales from financeiro_clientes. Only rows with at least one
// payment in financeiro_pagamentos count as sales.
type Repository interface {
	Totals(ctx context.Context, f Filter) (Totals, error)
	LargestSale(ctx context.Context, f Filter) (Sale, bool, error)
	SellerTotals(ctx context.Context, f Filter) ([]NamedTotal, error)
	BranchTotals(ctx context.Context, f Filter) ([]NamedTotal, error)
	DailyTotals(ctx context.Context, f Filter, byMonth bool) ([]DayTotal, error)
	Branches(ctx context.Context) ([]string, error)
	Sellers(ctx context.Context, branch string) ([]string, error)
}

type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository builds a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const paidSale = "EXISTS (SELECT 1 FROM financeiro_pagamentos p WHERE p.cliente_id = v.id)"

// where renders the filter. Empty branch lists match every branch and the
// seller is compared case-insensitively.
func where(f Filter, withSeller bool) (string, []any) {
	conditions := []string{paidSale, "v.data BETWEEN $1 AND $2"}
	args := []any{dateParam(f.Start), dateParam(f.End)}
	argPos := 3

	if len(f.Branches) > 0 {
		conditions = append(conditions, fmt.Sprintf("v.filial = ANY($%d)", argPos))
		args = append(args, f.Branches)
		argPos++
	}
	if withSeller && f.Seller != "" {
		conditions = append(conditions, fmt.Sprintf("UPPER(v.vendedor) = $%d", argPos))
		args = append(args, strings.ToUpper(f.Seller))
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *repository) Totals(ctx context.Context, f Filter) (Totals, error) {
	cond, args := where(f, true)
	query := `SELECT COALESCE(SUM(v.valor_debito), 0), COUNT(*) FROM financeiro_clientes v` + cond

	var sum pgtype.Numeric
	var out Totals
	if err := r.db.QueryRow(ctx, query, args...).Scan(&sum, &out.Count); err != nil {
		return Totals{}, fmt.Errorf("sales: totals: %w", err)
	}
	out.Sum = toDecimal(sum)
	return out, nil
}

func (r *repository) LargestSale(ctx context.Context, f Filter) (Sale, bool, error) {
	cond, args := where(f, true)
	query := `SELECT v.nome, COALESCE(v.vendedor, ''), v.valor_debito FROM financeiro_clientes v` + cond +
		` ORDER BY v.valor_debito DESC, v.id LIMIT 1`

	var sale Sale
	var value pgtype.Numeric
	err := r.db.QueryRow(ctx, query, args...).Scan(&sale.Customer, &sale.Seller, &value)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, false, nil
	}
	if err != nil {
		return Sale{}, false, fmt.Errorf("sales: largest sale: %w", err)
	}
	sale.Value = toDecimal(value)
	return sale, true, nil
}

// SellerTotals ranks sellers by total. The seller filter is ignored.
func (r *repository) SellerTotals(ctx context.Context, f Filter) ([]NamedTotal, error) {
	cond, args := where(f, false)
	query := `SELECT v.vendedor, SUM(v.valor_debito) AS total FROM financeiro_clientes v` + cond +
		` AND v.vendedor IS NOT NULL GROUP BY v.vendedor HAVING SUM(v.valor_debito) > 0 ORDER BY total DESC, v.vendedor`
	return r.namedTotals(ctx, "seller totals", query, args)
}

// BranchTotals ranks branches by total.
func (r *repository) BranchTotals(ctx context.Context, f Filter) ([]NamedTotal, error) {
	cond, args := where(f, true)
	query := `SELECT v.filial, SUM(v.valor_debito) AS total FROM financeiro_clientes v` + cond +
		` GROUP BY v.filial ORDER BY total DESC, v.filial`
	return r.namedTotals(ctx, "branch totals", query, args)
}

func (r *repository) namedTotals(ctx context.Context, op, query string, args []any) ([]NamedTotal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: %s: %w", op, err)
	}
	defer rows.Close()

	var out []NamedTotal
	for rows.Next() {
		var item NamedTotal
		var total pgtype.Numeric
		if err := rows.Scan(&item.Name, &total); err != nil {
			return nil, fmt.Errorf("sales: scan %s: %w", op, err)
		}
		item.Total = toDecimal(total)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) DailyTotals(ctx context.Context, f Filter, byMonth bool) ([]DayTotal, error) {
	bucket := "v.data"
	if byMonth {
		bucket = "DATE_TRUNC('month', v.data)::date"
	}
	cond, args := where(f, true)
	query := fmt.Sprintf(`SELECT %s AS dia, SUM(v.valor_debito) FROM financeiro_clientes v%s GROUP BY dia ORDER BY dia`, bucket, cond)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: daily totals: %w", err)
	}
	defer rows.Close()

	var out []DayTotal
	for rows.Next() {
		var day pgtype.Date
		var total pgtype.Numeric
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("sales: scan daily totals: %w", err)
		}
		if !day.Valid {
			continue
		}
		out = append(out, DayTotal{Day: day.Time, Total: toDecimal(total)})
	}
	return out, rows.Err()
}

func (r *repository) Branches(ctx context.Context) ([]string, error) {
	return r.names(ctx, "branches", `SELECT DISTINCT v.filial FROM financeiro_clientes v ORDER BY v.filial`)
}

// Sellers lists upper-cased seller names, optionally for a single branch.
func (r *repository) Sellers(ctx context.Context, branch string) ([]string, error) {
	if branch == "" {
		return r.names(ctx, "sellers", `SELECT DISTINCT UPPER(v.vendedor) AS nome FROM financeiro_clientes v
WHERE v.vendedor IS NOT NULL ORDER BY nome`)
	}
	return r.names(ctx, "sellers", `SELECT DISTINCT UPPER(v.vendedor) AS nome FROM financeiro_clientes v
WHERE v.filial = $1 AND v.vendedor IS NOT NULL ORDER BY nome`, branch)
}

func (r *repository) names(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: %s: %w", op, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("sales: scan %s: %w", op, err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func dateParam(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}

func toDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
