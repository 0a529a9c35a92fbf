package dashboard

import (
	"encoding/json"
	"maps"
)

// SeriesPoint is one chart sample keyed by an ISO date.
type SeriesPoint struct {
	Date  string  `json:"data"`
	Value float64 `json:"valor"`
}

// RankedEntry is a seller line in a ranking. Position is the slice index.
type RankedEntry struct {
	Name   string   `json:"nome"`
	Branch string   `json:"filial,omitempty"`
	Total  float64  `json:"total"`
	Change *float64 `json:"variacao,omitempty"`
}

// UnmarshalJSON accepts either total or totalVendas for the entry value.
func (e *RankedEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string   `json:"nome"`
		Branch      string   `json:"filial"`
		Total       *float64 `json:"total"`
		TotalVendas *float64 `json:"totalVendas"`
		Change      *float64 `json:"variacao"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = RankedEntry{Name: raw.Name, Branch: raw.Branch, Change: raw.Change}
	switch {
	case raw.Total != nil:
		e.Total = *raw.Total
	case raw.TotalVendas != nil:
		e.Total = *raw.TotalVendas
	}
	return nil
}

// PodiumEntry is a top-three placement.
type PodiumEntry struct {
	Position int     `json:"posicao"`
	Name     string  `json:"nome,omitempty"`
	Branch   string  `json:"filial"`
	Total    float64 `json:"total"`
}

// Highlights carries the record figures of the period.
type Highlights struct {
	LargestSale         float64 `json:"maiorVenda"`
	LargestSaleCustomer string  `json:"clienteMaiorVenda"`
	LargestSaleSeller   string  `json:"vendedorMaiorVenda"`
	TopSeller           string  `json:"vendedorQueMaisVendeu"`
	TopSellerTotal      float64 `json:"totalVendedorMax"`
	TopBranch           string  `json:"unidadeQueMaisVendeu"`
	TopBranchTotal      float64 `json:"totalUnidadeMax"`
}

// Comparison holds signed percentage variations against the previous period.
type Comparison struct {
	Total   *float64 `json:"totalVendasVariacao"`
	Count   *float64 `json:"numeroVendasVariacao"`
	Average *float64 `json:"ticketMedioVariacao"`
}

// Snapshot is a decoded dashboard payload. Absent fields stay at their zero value.
type Snapshot struct {
	Total        float64            `json:"totalVendas"`
	Count        int64              `json:"numeroVendas"`
	Average      float64            `json:"ticketMedio"`
	Series       []SeriesPoint      `json:"dadosGrafico"`
	Ranking      []RankedEntry      `json:"top10Vendedores"`
	Highlights   Highlights         `json:"maxResponse"`
	Comparison   *Comparison        `json:"comparison,omitempty"`
	SellerPodium []PodiumEntry      `json:"podiumVendedores,omitempty"`
	UnitPodium   []PodiumEntry      `json:"podiumUnidades,omitempty"`
	Branches     []string           `json:"filiais,omitempty"`
	Sellers      []string           `json:"vendedores,omitempty"`
	Goals        map[string]float64 `json:"metas,omitempty"`
}

// Clone returns a deep copy so cached snapshots never share memory with live ones.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Series = append([]SeriesPoint(nil), s.Series...)
	out.Ranking = cloneRanking(s.Ranking)
	out.SellerPodium = append([]PodiumEntry(nil), s.SellerPodium...)
	out.UnitPodium = append([]PodiumEntry(nil), s.UnitPodium...)
	out.Branches = append([]string(nil), s.Branches...)
	out.Sellers = append([]string(nil), s.Sellers...)
	if s.Goals != nil {
		out.Goals = maps.Clone(s.Goals)
	}
	if s.Comparison != nil {
		out.Comparison = &Comparison{
			Total:   cloneFloat(s.Comparison.Total),
			Count:   cloneFloat(s.Comparison.Count),
			Average: cloneFloat(s.Comparison.Average),
		}
	}
	return out
}

// GoalFor sums the goals of branches, using fallback for branches without one.
func (s Snapshot) GoalFor(branches []string, fallback float64) float64 {
	if len(branches) == 0 {
		return fallback
	}
	total := 0.0
	for _, b := range branches {
		if v, ok := s.Goals[b]; ok && v > 0 {
			total += v
			continue
		}
		total += fallback
	}
	return total
}

// Accumulated turns a daily series into its running total.
func Accumulated(points []SeriesPoint) []SeriesPoint {
	out := make([]SeriesPoint, len(points))
	running := 0.0
	for i, p := range points {
		running += p.Value
		out[i] = SeriesPoint{Date: p.Date, Value: running}
	}
	return out
}

func cloneRanking(in []RankedEntry) []RankedEntry {
	if in == nil {
		return nil
	}
	out := make([]RankedEntry, len(in))
	for i, e := range in {
		out[i] = e
		out[i].Change = cloneFloat(e.Change)
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
