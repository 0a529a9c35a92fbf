// Package period resolves named reporting periods into concrete local date ranges.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format used for every date parameter.
const DateLayout = "2006-01-02"

var (
	// ErrInvertedRange is returned when a custom range starts after it ends.
	ErrInvertedRange = errors.New("period: start date after end date")
	// ErrInvalidDate is returned when a custom date cannot be parsed.
	ErrInvalidDate = errors.New("period: invalid date")
)

// Kind identifies a period preset.
type Kind string

// Supported period kinds.
const (
	KindToday     Kind = "today"
	KindYesterday Kind = "yesterday"
	KindWeek      Kind = "week"
	KindMonth     Kind = "month"
	KindLastMonth Kind = "lastMonth"
	KindQuarter   Kind = "quarter"
	KindYear      Kind = "year"
	KindCustom    Kind = "custom"
)

var tokenKinds = map[string]Kind{
	"dia":           KindToday,
	"hoje":          KindToday,
	"today":         KindToday,
	"ontem":         KindYesterday,
	"yesterday":     KindYesterday,
	"semana":        KindWeek,
	"week":          KindWeek,
	"mes":           KindMonth,
	"month":         KindMonth,
	"mes-passado":   KindLastMonth,
	"lastmonth":     KindLastMonth,
	"trimestre":     KindQuarter,
	"quarter":       KindQuarter,
	"ano":           KindYear,
	"year":          KindYear,
	"personalizado": KindCustom,
	"custom":        KindCustom,
}

// ParseKind maps a selector token to a Kind. Unknown or empty tokens resolve to today.
func ParseKind(token string) Kind {
	if kind, ok := tokenKinds[strings.ToLower(strings.TrimSpace(token))]; ok {
		return kind
	}
	return KindToday
}

// Token returns the tipoPeriodo value the dashboard API understands.
func (k Kind) Token() string {
	switch k {
	case KindYesterday:
		return "ontem"
	case KindWeek:
		return "semana"
	case KindMonth:
		return "mes"
	case KindLastMonth:
		return "mes-passado"
	case KindQuarter:
		return "trimestre"
	case KindYear:
		return "ano"
	case KindCustom:
		return "personalizado"
	default:
		return "dia"
	}
}

// Label returns the display name shown on the scoreboard.
func (k Kind) Label() string {
	switch k {
	case KindYesterday:
		return "Ontem"
	case KindWeek:
		return "Esta Semana"
	case KindMonth:
		return "Este Mês"
	case KindLastMonth:
		return "Mês Passado"
	case KindQuarter:
		return "Trimestre Atual"
	case KindYear:
		return "Este Ano"
	case KindCustom:
		return "Personalizado"
	default:
		return "Hoje"
	}
}

// GroupByMonth reports whether chart series for the kind are aggregated per month.
func (k Kind) GroupByMonth() bool {
	return k == KindYear || k == KindQuarter
}

// Period is a resolved inclusive date range.
type Period struct {
	Kind  Kind      `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StartParam formats the start date for query strings.
func (p Period) StartParam() string {
	return p.Start.Format(DateLayout)
}

// EndParam formats the end date for query strings.
func (p Period) EndParam() string {
	return p.End.Format(DateLayout)
}

// Days returns the number of calendar days covered, both ends included.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Validate rejects ranges whose start falls after the end.
func (p Period) Validate() error {
	if Day(p.Start).After(Day(p.End)) {
		return fmt.Errorf("%w: %s > %s", ErrInvertedRange, p.StartParam(), p.EndParam())
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%s %s..%s", p.Kind, p.StartParam(), p.EndParam())
}

// Resolver turns kinds into periods relative to the current local day.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver builds a resolver for the given location (time.Local when nil).
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc, now: time.Now}
}

// WithNow overrides the resolver clock for testing.
func (r *Resolver) WithNow(fn func() time.Time) {
	if fn != nil {
		r.now = fn
	}
}

// Today returns midnight of the current local day.
func (r *Resolver) Today() time.Time {
	return Day(r.now().In(r.loc))
}

// Resolve computes the period for kind. customStart and customEnd are only read for KindCustom.
func (r *Resolver) Resolve(kind Kind, customStart, customEnd string) (Period, error) {
	today := r.Today()
	y, m, d := today.Date()
	p := Period{Kind: kind}

	switch kind {
	case KindYesterday:
		p.Start = today.AddDate(0, 0, -1)
		p.End = p.Start
	case KindWeek:
		offset := (int(today.Weekday()) + 6) % 7
		p.Start = time.Date(y, m, d-offset, 0, 0, 0, 0, r.loc)
		p.End = today
	case KindMonth:
		p.Start = time.Date(y, m, 1, 0, 0, 0, 0, r.loc)
		p.End = time.Date(y, m+1, 0, 0, 0, 0, 0, r.loc)
	case KindLastMonth:
		p.Start = time.Date(y, m-1, 1, 0, 0, 0, 0, r.loc)
		p.End = time.Date(y, m, 0, 0, 0, 0, 0, r.loc)
	case KindQuarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		p.Start = time.Date(y, first, 1, 0, 0, 0, 0, r.loc)
		p.End = time.Date(y, first+3, 0, 0, 0, 0, 0, r.loc)
	case KindYear:
		p.Start = time.Date(y, time.January, 1, 0, 0, 0, 0, r.loc)
		p.End = time.Date(y, time.December, 31, 0, 0, 0, 0, r.loc)
	case KindCustom:
		start, err := ParseDate(customStart, r.loc)
		if err != nil {
			return Period{}, err
		}
		end, err := ParseDate(customEnd, r.loc)
		if err != nil {
			return Period{}, err
		}
		p.Start, p.End = start, end
	default:
		p.Kind = KindToday
		p.Start = today
		p.End = today
	}

	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// ParseDate reads a YYYY-MM-DD literal as a local calendar date.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b, ignoring DST shifts.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// DaysIn returns the length of t's month.
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths shifts t by n months, clamping the day to the target month length.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := DaysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
