// Package sales aggregates paid customer sales into the dashboard payload.
package sales

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/painel-vendas/painel/internal/period"
)

// ErrInvalidQuery marks dashboard queries rejected before touching the database.
var ErrInvalidQuery = errors.New("sales: invalid query")

// Filter narrows the rows that count as sales.
type Filter struct {
	Branches []string
	Seller   string
	Start    time.Time
	End      time.Time
}

// Query is a dashboard request.
type Query struct {
	Branches     []string
	Seller       string
	Start        time.Time
	End          time.Time
	GroupByMonth bool
	// PeriodToken is the raw tipoPeriodo value. Empty disables the comparison block.
	PeriodToken string
}

// Normalize trims the query and drops blank branches.
func (q Query) Normalize() Query {
	out := q
	out.Seller = strings.TrimSpace(q.Seller)
	out.PeriodToken = strings.TrimSpace(q.PeriodToken)
	out.Branches = nil
	for _, b := range q.Branches {
		if b = strings.TrimSpace(b); b != "" {
			out.Branches = append(out.Branches, b)
		}
	}
	return out
}

// Filter returns the row filter of the query.
func (q Query) Filter() Filter {
	return Filter{Branches: q.Branches, Seller: q.Seller, Start: q.Start, End: q.End}
}

// Period returns the resolved range with the kind named by PeriodToken.
func (q Query) Period() period.Period {
	return period.Period{Kind: period.ParseKind(q.PeriodToken), Start: q.Start, End: q.End}
}

// Compares reports whether the response carries a comparison block.
func (q Query) Compares() bool {
	return q.PeriodToken != "" && period.ParseKind(q.PeriodToken) != period.KindCustom
}

// Totals is the sum and count of matching sales.
type Totals struct {
	Sum   decimal.Decimal
	Count int64
}

// Ticket is the average sale, rounded half up to cents. Zero when there are no sales.
func (t Totals) Ticket() decimal.Decimal {
	if t.Count == 0 {
		return decimal.Zero
	}
	return t.Sum.Div(decimal.NewFromInt(t.Count)).Round(2)
}

// Sale is a single sale row.
type Sale struct {
	Customer string
	Seller   string
	Value    decimal.Decimal
}

// NamedTotal is a total attributed to a seller or a branch.
type NamedTotal struct {
	Name  string
	Total decimal.Decimal
}

// DayTotal is a chart bucket.
type DayTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// Point is a chart sample on the wire.
type Point struct {
	Date  string  `json:"data"`
	Value float64 `json:"valor"`
}

// RankedSeller is a ranking line on the wire.
type RankedSeller struct {
	Name   string  `json:"nome"`
	Total  float64 `json:"total"`
	Change float64 `json:"variacao"`
}

// Highlights is the maxResponse block.
type Highlights struct {
	LargestSale         float64 `json:"maiorVenda"`
	LargestSaleCustomer string  `json:"clienteMaiorVenda"`
	LargestSaleSeller   string  `json:"vendedorMaiorVenda"`
	TopSeller           string  `json:"vendedorQueMaisVendeu"`
	TopSellerTotal      float64 `json:"totalVendedorMax"`
	TopBranch           string  `json:"unidadeQueMaisVendeu"`
	TopBranchTotal      float64 `json:"totalUnidadeMax"`
}

// Comparison holds percentage variations against the previous period.
type Comparison struct {
	Total   *float64 `json:"totalVendasVariacao"`
	Count   *float64 `json:"numeroVendasVariacao"`
	Average *float64 `json:"ticketMedioVariacao"`
}

// Dashboard is the /api/dashboard payload.
type Dashboard struct {
	Total      float64            `json:"totalVendas"`
	Count      int64              `json:"numeroVendas"`
	Average    float64            `json:"ticketMedio"`
	Highlights Highlights         `json:"maxResponse"`
	Series     []Point            `json:"dadosGrafico"`
	Ranking    []RankedSeller     `json:"top10Vendedores"`
	Comparison *Comparison        `json:"comparison,omitempty"`
	Branches   []string           `json:"filiais"`
	Sellers    []string           `json:"vendedores"`
	Goals      map[string]float64 `json:"metas"`
}

var hundred = decimal.NewFromInt(100)

// Variation returns the percentage change from previous to current at four
// decimals, half up. A zero previous value yields 100 when current grew and 0 otherwise.
func Variation(current, previous *decimal.Decimal) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	var out float64
	switch {
	case previous.IsZero() && current.IsPositive():
		out = 100
	case previous.IsZero():
		out = 0
	default:
		out = current.Sub(*previous).DivRound(*previous, 4).Mul(hundred).InexactFloat64()
	}
	return &out
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
