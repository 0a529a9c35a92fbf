package render

import (
	"html/template"
	"log/slog"
	"sync"

	"github.com/painel-vendas/painel/internal/dashboard"
	"github.com/painel-vendas/painel/internal/period"
)

// Widget id prefixes and fixed ids.
const (
	IDRanking      = "ranking"
	IDRankingChart = "ranking-chart"
	IDPanels       = "panels"
	IDPodium       = "podium"
)

// MetricsID names the metrics block of a panel.
func MetricsID(panel string) string { return "metrics-" + panel }

// GaugeID names the gauge of a panel.
func GaugeID(panel string) string { return "gauge-" + panel }

// SeriesID names the series chart of a panel.
func SeriesID(panel string) string { return "chart-" + panel }

// WidgetIDs lists every widget id a variant can draw.
func WidgetIDs(v dashboard.Variant) []string {
	ids := []string{IDRanking, IDRankingChart}
	for _, p := range v.Panels {
		ids = append(ids, MetricsID(p.Key), GaugeID(p.Key), SeriesID(p.Key))
	}
	if v.PanelPageSize > 0 {
		ids = append(ids, IDPanels)
	}
	if v.Podium {
		ids = append(ids, IDPodium)
	}
	return ids
}

type metricsView struct {
	Key           string
	Label         string
	Total         float64
	Count         int64
	Average       float64
	Goal          float64
	Percent       float64
	Progress      float64
	Color         string
	TotalChange   Indicator
	CountChange   Indicator
	AverageChange Indicator
	Highlights    dashboard.Highlights
}

type rankingRow struct {
	Name   string
	Branch string
	Total  float64
	Change Indicator
}

type rankingView struct {
	Entries []rankingRow
	Offset  int
	Page    int
	Pages   int
}

type podiumView struct {
	Sellers []dashboard.PodiumEntry
	Units   []dashboard.PodiumEntry
}

// Set draws dashboard groups into targets. It implements dashboard.Renderer.
type Set struct {
	targets Targets
	logger  *slog.Logger

	mu     sync.Mutex
	charts map[string]*Chart
}

// NewSet builds a renderer set over targets.
func NewSet(targets Targets, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{
		targets: targets,
		logger:  logger.With(slog.String("component", "render")),
		charts:  make(map[string]*Chart),
	}
}

var _ dashboard.Renderer = (*Set)(nil)

// RenderMetrics draws the figures and the gauge of a panel.
func (s *Set) RenderMetrics(panel dashboard.Panel, snap dashboard.Snapshot, goal float64, kind period.Kind) {
	pct := Percent(snap.Total, goal)
	view := metricsView{
		Key:        panel.Key,
		Label:      panel.Label,
		Total:      snap.Total,
		Count:      snap.Count,
		Average:    snap.Average,
		Goal:       goal,
		Percent:    pct,
		Progress:   progress(pct),
		Color:      ScoreColor(pct),
		Highlights: snap.Highlights,
	}
	if c := snap.Comparison; c != nil {
		view.TotalChange = Comparison(c.Total, kind)
		view.CountChange = Comparison(c.Count, kind)
		view.AverageChange = Comparison(c.Average, kind)
	}
	s.draw(MetricsID(panel.Key), func() (template.HTML, error) {
		return executeFragment("metrics", view)
	})

	opts := GaugeOpts{Title: panel.Label}
	if panel.Rotates {
		opts.Width, opts.Height = 140, 100
	}
	s.draw(GaugeID(panel.Key), func() (template.HTML, error) {
		return Gauge(snap.Total, goal, opts)
	})
}

// RenderSeries redraws the time series chart of a panel.
func (s *Set) RenderSeries(panel dashboard.Panel, points []dashboard.SeriesPoint, kind period.Kind, mode dashboard.SeriesMode) {
	id := SeriesID(panel.Key)
	if len(points) == 0 {
		s.dispose(id)
		return
	}
	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		values[i] = p.Value
		labels[i] = DateLabel(p.Date, kind)
	}
	title := "Vendas diárias"
	if mode == dashboard.SeriesAccumulated {
		title = "Vendas acumuladas"
	}
	s.draw(id, func() (template.HTML, error) {
		return Line(0, 0, values, labels, LineOpts{Title: title, Description: panel.Label, ShowDots: len(points) <= 31})
	})
}

// RenderRanking redraws the visible page of the ranking as a list and a bar chart.
func (s *Set) RenderRanking(entries []dashboard.RankedEntry, page dashboard.Page) {
	start, end := clampPage(page, len(entries))
	visible := entries[start:end]

	view := rankingView{Offset: start, Page: page.Index, Pages: page.Count}
	values := make([]float64, len(visible))
	names := make([]string, len(visible))
	for i, e := range visible {
		view.Entries = append(view.Entries, rankingRow{
			Name:   e.Name,
			Branch: e.Branch,
			Total:  e.Total,
			Change: Comparison(e.Change, period.KindMonth),
		})
		values[i] = e.Total
		names[i] = e.Name
	}
	s.draw(IDRanking, func() (template.HTML, error) {
		return executeFragment("ranking", view)
	})
	if len(visible) == 0 {
		s.dispose(IDRankingChart)
		return
	}
	s.draw(IDRankingChart, func() (template.HTML, error) {
		return Bars(0, values, names, BarOpts{Title: "Top vendedores", Offset: start})
	})
}

// RenderPanels lists the units on the visible page.
func (s *Set) RenderPanels(panels []dashboard.Panel, page dashboard.Page) {
	start, end := clampPage(page, len(panels))
	keys := make([]string, 0, end-start)
	for _, p := range panels[start:end] {
		keys = append(keys, p.Key)
	}
	s.draw(IDPanels, func() (template.HTML, error) {
		return executeFragment("panels", keys)
	})
}

// RenderPodium draws the caps competition podiums.
func (s *Set) RenderPodium(snap dashboard.Snapshot) {
	s.draw(IDPodium, func() (template.HTML, error) {
		return executeFragment("podium", podiumView{Sellers: snap.SellerPodium, Units: snap.UnitPodium})
	})
}

// Dispose tears every chart down.
func (s *Set) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.charts {
		if err := c.Dispose(); err != nil {
			s.logger.Warn("dispose failed", slog.String("widget", id), slog.Any("error", err))
		}
	}
}

func (s *Set) draw(id string, build func() (template.HTML, error)) {
	chart, ok := s.chart(id)
	if !ok {
		return
	}
	content, err := build()
	if err != nil {
		s.logger.Warn("render failed", slog.String("widget", id), slog.Any("error", err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := chart.Recreate(content); err != nil {
		s.logger.Warn("write failed", slog.String("widget", id), slog.Any("error", err))
	}
}

func (s *Set) dispose(id string) {
	chart, ok := s.chart(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := chart.Dispose(); err != nil {
		s.logger.Warn("dispose failed", slog.String("widget", id), slog.Any("error", err))
	}
}

func (s *Set) chart(id string) (*Chart, bool) {
	target, ok := s.targets.Lookup(id)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charts[id]
	if !ok {
		c = NewChart(id, target)
		s.charts[id] = c
	}
	return c, true
}

func clampPage(page dashboard.Page, total int) (int, int) {
	start, end := page.Start, page.End
	if start < 0 || start > total {
		start = 0
	}
	if end > total || end < start {
		end = total
	}
	return start, end
}
