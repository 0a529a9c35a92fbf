package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/painel-vendas/painel/internal/period"
)

// DefaultGoal is the target used for a branch without a registered goal.
const DefaultGoal = 1_000_000.00

// Default cadences shared by every variant.
const (
	DefaultRefreshInterval  = 15 * time.Second
	DefaultRotationInterval = 10 * time.Second
	DefaultRankingPageSize  = 10
)

// ErrInvalidVariant is returned for unknown names or incomplete settings.
var ErrInvalidVariant = errors.New("dashboard: invalid variant")

// Panel is one metrics block: a gauge, its figures and its chart.
type Panel struct {
	Key      string
	Label    string
	Branches []string
	// Goal overrides the goal computed from the payload when positive.
	Goal float64
	// Rotates marks panels shown through the unit rotation.
	Rotates bool
}

// Variant parameterizes a dashboard instance.
type Variant struct {
	Name     string
	Endpoint Endpoint
	Panels   []Panel
	// RankingBranches, when set, fetches the ranking separately across these branches.
	RankingBranches []string
	RefreshInterval time.Duration
	RankingPageSize int
	RankingRotation time.Duration
	PanelPageSize   int
	PanelRotation   time.Duration
	// ChartRotation alternates accumulated and daily series when positive.
	ChartRotation   time.Duration
	GuardRegression bool
	DefaultGoal     float64
	// FixedPeriod pins the period regardless of the selection.
	FixedPeriod *Selection
	Podium      bool
}

// RotatingPanels returns the panels paged by the unit rotation.
func (v Variant) RotatingPanels() []Panel {
	out := make([]Panel, 0, len(v.Panels))
	for _, p := range v.Panels {
		if p.Rotates {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings a running instance depends on.
func (v Variant) Validate() error {
	if v.Endpoint.Path == "" {
		return fmt.Errorf("%w: %s has no endpoint", ErrInvalidVariant, v.Name)
	}
	if len(v.Panels) == 0 {
		return fmt.Errorf("%w: %s has no panels", ErrInvalidVariant, v.Name)
	}
	if v.RankingPageSize <= 0 {
		return fmt.Errorf("%w: %s ranking page size must be positive", ErrInvalidVariant, v.Name)
	}
	for _, p := range v.Panels {
		if p.Goal < 0 {
			return fmt.Errorf("%w: panel %s has a negative goal", ErrInvalidVariant, p.Key)
		}
	}
	return nil
}

// MainVariant is the general dashboard over the selected branches.
func MainVariant() Variant {
	return Variant{
		Name:            "main",
		Endpoint:        Endpoint{Path: "/api/dashboard"},
		Panels:          []Panel{{Key: "geral", Label: "Geral"}},
		RefreshInterval: DefaultRefreshInterval,
		RankingPageSize: DefaultRankingPageSize,
		RankingRotation: DefaultRotationInterval,
		GuardRegression: true,
		DefaultGoal:     DefaultGoal,
	}
}

// PlacarVariant is the scoreboard for one unit and an optional seller.
func PlacarVariant(unit string, goal float64) (Variant, error) {
	if goal <= 0 {
		return Variant{}, fmt.Errorf("%w: placar goal must be positive", ErrInvalidVariant)
	}
	label := strings.TrimSpace(unit)
	if label == "" {
		label = "Todas as unidades"
	}
	panel := Panel{Key: "placar", Label: label, Goal: goal}
	if unit = strings.TrimSpace(unit); unit != "" {
		panel.Branches = []string{unit}
	}
	return Variant{
		Name:            "placar",
		Endpoint:        Endpoint{Path: "/api/dashboard"},
		Panels:          []Panel{panel},
		RefreshInterval: DefaultRefreshInterval,
		RankingPageSize: DefaultRankingPageSize,
		RankingRotation: DefaultRotationInterval,
		ChartRotation:   DefaultRotationInterval,
		GuardRegression: true,
		DefaultGoal:     DefaultGoal,
	}, nil
}

// Regional unit keys.
const (
	UnitJaragua    = "jaragua"
	UnitMatoGrosso = "matoGrosso"
	UnitMatupa     = "matupa"
	UnitSorriso    = "sorriso"
	UnitLucas      = "lucas"
	UnitSinop      = "sinop"
	UnitNovaMutum  = "novamutum"
)

// RegionalPanels lists the regional units in display order.
func RegionalPanels() []Panel {
	return []Panel{
		{Key: UnitJaragua, Label: "Jaraguá do Sul", Branches: []string{"Jaraguá do Sul"}},
		{Key: UnitMatoGrosso, Label: "Mato Grosso", Branches: []string{"Matupá", "Sorriso", "Lucas do Rio Verde", "Sinop", "Nova Mutum"}},
		{Key: UnitMatupa, Label: "Matupá", Branches: []string{"Matupá"}, Rotates: true},
		{Key: UnitSorriso, Label: "Sorriso", Branches: []string{"Sorriso"}, Rotates: true},
		{Key: UnitLucas, Label: "Lucas do Rio Verde", Branches: []string{"Lucas do Rio Verde"}, Rotates: true},
		{Key: UnitSinop, Label: "Sinop", Branches: []string{"Sinop"}, Rotates: true},
		{Key: UnitNovaMutum, Label: "Nova Mutum", Branches: []string{"Nova Mutum"}, Rotates: true},
	}
}

// RegionalVariant is the rollup of Jaraguá and the Mato Grosso units over
// the campaign window.
func RegionalVariant() Variant {
	panels := RegionalPanels()
	var all []string
	for _, p := range panels {
		if p.Key == UnitJaragua || p.Key == UnitMatoGrosso {
			all = append(all, p.Branches...)
		}
	}
	return Variant{
		Name:            "regional",
		Endpoint:        Endpoint{Path: "/api/dashboard"},
		Panels:          panels,
		RankingBranches: all,
		RefreshInterval: DefaultRefreshInterval,
		RankingPageSize: DefaultRankingPageSize,
		RankingRotation: DefaultRotationInterval,
		PanelPageSize:   3,
		PanelRotation:   DefaultRotationInterval,
		GuardRegression: true,
		DefaultGoal:     DefaultGoal,
		FixedPeriod: &Selection{
			Kind:        period.KindCustom,
			CustomStart: "2025-10-27",
			CustomEnd:   "2025-10-31",
		},
	}
}

// RegionalUnitVariant narrows the regional dashboard to one unit.
func RegionalUnitVariant(key string) (Variant, error) {
	v := RegionalVariant()
	for _, p := range v.Panels {
		if p.Key == key {
			p.Rotates = false
			v.Name = "regional:" + key
			v.Panels = []Panel{p}
			v.RankingBranches = nil
			v.PanelPageSize = 0
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: unknown regional unit %q", ErrInvalidVariant, key)
}

// BoneVariant is the caps competition board. Totals are null there, so the
// regression guard has nothing to compare.
func BoneVariant() Variant {
	return Variant{
		Name: "bone",
		Endpoint: Endpoint{
			Path:         "/bone/api/dados",
			PeriodParam:  "periodo",
			CustomAsDay:  true,
			SkipBranches: true,
		},
		Panels:          []Panel{{Key: "bone", Label: "Campanha Boné"}},
		RefreshInterval: DefaultRefreshInterval,
		RankingPageSize: DefaultRankingPageSize,
		RankingRotation: DefaultRotationInterval,
		DefaultGoal:     DefaultGoal,
		Podium:          true,
	}
}

// VariantByName resolves main, placar, regional, regional:<unit> and bone.
func VariantByName(name, unit string, goal float64) (Variant, error) {
	switch {
	case name == "" || name == "main":
		return MainVariant(), nil
	case name == "placar":
		return PlacarVariant(unit, goal)
	case name == "regional":
		return RegionalVariant(), nil
	case strings.HasPrefix(name, "regional:"):
		return RegionalUnitVariant(strings.TrimPrefix(name, "regional:"))
	case name == "bone":
		return BoneVariant(), nil
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrInvalidVariant, name)
}
