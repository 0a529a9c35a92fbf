package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/painel-vendas/painel/internal/period"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// Currency formats v as BRL with two decimals and pt-BR grouping, e.g. R$ 1.234,56.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	rounded := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	amount := brl.Sprint(number.Decimal(rounded.InexactFloat64(), number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	return sign + "R$ " + amount
}

// CompactCurrency abbreviates large amounts: R$ 1.2M, R$ 3.4K, R$ 950.
func CompactCurrency(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("R$ %.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("R$ %.1fK", v/1_000)
	default:
		return fmt.Sprintf("R$ %.0f", v)
	}
}

// Indicator is a rendered comparison badge.
type Indicator struct {
	Visible  bool
	Positive bool
	Text     string
}

// Comparison renders a variation as an arrow and a one-decimal percentage.
// It is hidden for custom periods and when no variation exists.
func Comparison(change *float64, kind period.Kind) Indicator {
	if kind == period.KindCustom || change == nil {
		return Indicator{}
	}
	positive := *change >= 0
	arrow := "↓"
	if positive {
		arrow = "↑"
	}
	return Indicator{
		Visible:  true,
		Positive: positive,
		Text:     fmt.Sprintf("%s %.1f%%", arrow, math.Abs(*change)),
	}
}

var monthsShort = [...]string{"jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."}

// DateLabel formats a YYYY-MM-DD chart key as dd/mm, or as month and year
// for monthly series. Unparseable input is returned as is.
func DateLabel(value string, kind period.Kind) string {
	t, err := time.Parse(period.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return value
	}
	if kind.GroupByMonth() {
		return fmt.Sprintf("%s de %d", monthsShort[t.Month()-1], t.Year())
	}
	return t.Format("02/01")
}

// TeamName names a caps competition team after its branch.
func TeamName(branch string) string {
	upper := strings.ToUpper(branch)
	switch {
	case strings.Contains(upper, "LUCAS"):
		return "TEAM LUCAS"
	case strings.Contains(upper, "SORRISO"):
		return "TEAM SORRISO"
	case strings.Contains(upper, "SINOP"):
		return "TEAM SINOP"
	}
	return "TEAM " + branch
}

// Percent returns value/goal as a percentage, 0 when the goal is not positive.
func Percent(value, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return value / goal * 100
}

// ScoreColor picks the scoreboard color for an attainment percentage.
func ScoreColor(pct float64) string {
	switch {
	case pct >= 100:
		return "#10b981"
	case pct >= 75:
		return "#667eea"
	case pct >= 50:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

// BandColor returns the gauge band color for a percentage.
func BandColor(pct float64) string {
	switch {
	case pct < 20:
		return "#dc2626"
	case pct < 40:
		return "#ef4444"
	case pct < 60:
		return "#f59e0b"
	case pct < 80:
		return "#fbbf24"
	case pct < 100:
		return "#84cc16"
	default:
		return "#10b981"
	}
}
