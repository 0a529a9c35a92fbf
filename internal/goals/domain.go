// Package goals stores the sales goal of each branch per date range.
package goals

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultValue is the goal assumed for branches without an active goal.
var DefaultValue = decimal.RequireFromString("1000000.00")

// Goal is a sales target for a branch over an inclusive date range.
type Goal struct {
	ID          int64
	Branch      string
	Value       decimal.Decimal
	Start       time.Time
	End         time.Time
	Active      bool
	Description string
}

// Overlaps reports whether the goal range intersects [start, end].
func (g Goal) Overlaps(start, end time.Time) bool {
	return !g.Start.After(end) && !g.End.Before(start)
}

// Resolved is the goal that applies to a branch and range. Default marks the fallback value.
type Resolved struct {
	Branch  string
	Value   decimal.Decimal
	Start   time.Time
	End     time.Time
	Default bool
}
