package dashboard

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/painel-vendas/painel/internal/period"
)

// Selection is what the operator picked on screen.
type Selection struct {
	Kind        period.Kind
	CustomStart string
	CustomEnd   string
	Branches    []string
	Seller      string
}

// Filters is the resolved query sent with a fetch. Its Key is the identity
// used by the regression guard.
type Filters struct {
	Start    string   `json:"dataInicio"`
	End      string   `json:"dataFim"`
	Kind     string   `json:"tipoPeriodo"`
	Branches []string `json:"filial,omitempty"`
	Seller   string   `json:"vendedor,omitempty"`
}

// NewFilters builds filters for a resolved period. Empty branch names are dropped.
func NewFilters(p period.Period, branches []string, seller string) Filters {
	cleaned := make([]string, 0, len(branches))
	for _, b := range branches {
		if b = strings.TrimSpace(b); b != "" {
			cleaned = append(cleaned, b)
		}
	}
	return Filters{
		Start:    p.StartParam(),
		End:      p.EndParam(),
		Kind:     p.Kind.Token(),
		Branches: cleaned,
		Seller:   strings.TrimSpace(seller),
	}
}

// Key returns a canonical representation. Branch order is significant.
func (f Filters) Key() string {
	raw, err := json.Marshal(f)
	if err != nil {
		return f.Start + "|" + f.End + "|" + f.Kind + "|" + strings.Join(f.Branches, ",") + "|" + f.Seller
	}
	return string(raw)
}

// Equal compares two filter sets by value.
func (f Filters) Equal(other Filters) bool {
	return f.Start == other.Start &&
		f.End == other.End &&
		f.Kind == other.Kind &&
		f.Seller == other.Seller &&
		slices.Equal(f.Branches, other.Branches)
}

// Custom reports whether the filters cover an operator-chosen range.
func (f Filters) Custom() bool {
	return f.Kind == period.KindCustom.Token()
}
