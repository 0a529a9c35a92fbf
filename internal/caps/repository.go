// Package caps serves the caps competition board: sales flagged bone = 'SIM'
// in the three competing branches.
package caps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Competing branches.
var Branches = []string{"Sorriso", "Lucas do Rio Verde", "Sinop"}

// SellerTotal is a seller's total in the window.
type SellerTotal struct {
	Name  string
	Total decimal.Decimal
}

// Repository reads vendas_nacional.
type Repository interface {
	SellerTotals(ctx context.Context, start, end time.Time) ([]SellerTotal, error)
	// LeadingBranches maps upper-cased seller names to the branch where they sold most.
	LeadingBranches(ctx context.Context, start, end time.Time) (map[string]string, error)
	// TotalsBySeller sums sales per upper-cased seller name.
	TotalsBySeller(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error)
	Sellers(ctx context.Context) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const scope = `v.filial = ANY($1) AND v.bone = 'SIM'`

func (r *repository) SellerTotals(ctx context.Context, start, end time.Time) ([]SellerTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT v.vendedor, SUM(v.valor_venda) AS total FROM vendas_nacional v
WHERE `+scope+` AND v.vendedor IS NOT NULL AND v.data_venda BETWEEN $2 AND $3
GROUP BY v.vendedor ORDER BY total DESC, v.vendedor`, Branches, date(start), date(end))
	if err != nil {
		return nil, fmt.Errorf("caps: seller totals: %w", err)
	}
	defer rows.Close()

	var out []SellerTotal
	for rows.Next() {
		var item SellerTotal
		var total pgtype.Numeric
		if err := rows.Scan(&item.Name, &total); err != nil {
			return nil, fmt.Errorf("caps: scan seller totals: %w", err)
		}
		item.Total = toDecimal(total)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) LeadingBranches(ctx context.Context, start, end time.Time) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ON (nome) nome, filial FROM (
  SELECT UPPER(v.vendedor) AS nome, v.filial, SUM(v.valor_venda) AS total FROM vendas_nacional v
  WHERE `+scope+` AND v.vendedor IS NOT NULL AND v.data_venda BETWEEN $2 AND $3
  GROUP BY UPPER(v.vendedor), v.filial
) t ORDER BY nome, total DESC, filial`, Branches, date(start), date(end))
	if err != nil {
		return nil, fmt.Errorf("caps: leading branches: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, branch string
		if err := rows.Scan(&name, &branch); err != nil {
			return nil, fmt.Errorf("caps: scan leading branches: %w", err)
		}
		out[name] = branch
	}
	return out, rows.Err()
}

func (r *repository) TotalsBySeller(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT UPPER(v.vendedor), SUM(v.valor_venda) FROM vendas_nacional v
WHERE `+scope+` AND v.vendedor IS NOT NULL AND v.data_venda BETWEEN $2 AND $3
GROUP BY UPPER(v.vendedor)`, Branches, date(start), date(end))
	if err != nil {
		return nil, fmt.Errorf("caps: totals by seller: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var name string
		var total pgtype.Numeric
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("caps: scan totals by seller: %w", err)
		}
		out[name] = toDecimal(total)
	}
	return out, rows.Err()
}

func (r *repository) Sellers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT UPPER(v.vendedor) AS nome FROM vendas_nacional v
WHERE `+scope+` AND v.vendedor IS NOT NULL ORDER BY nome`, Branches)
	if err != nil {
		return nil, fmt.Errorf("caps: sellers: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("caps: scan sellers: %w", err)
		}
		out = append(out, strings.TrimSpace(name))
	}
	return out, rows.Err()
}

func date(t time.Time) pgtype.Date {
	return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}

func toDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
