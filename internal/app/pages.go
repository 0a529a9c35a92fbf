package app

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/painel-vendas/painel/internal/caps"
	"github.com/painel-vendas/painel/internal/dashboard"
	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/render"
	"github.com/painel-vendas/painel/internal/sales"
	"github.com/painel-vendas/painel/internal/view"
)

// PageSales is the sales contract used by the HTML pages.
type PageSales interface {
	Dashboard(ctx context.Context, q sales.Query) (sales.Dashboard, error)
}

// PageCaps is the caps contract used by the HTML pages.
type PageCaps interface {
	Board(ctx context.Context, p period.Period) (caps.Board, error)
}

// Pages renders the HTML shells with server-drawn charts.
type Pages struct {
	templates   *view.Engine
	sales       PageSales
	caps        PageCaps
	resolver    *period.Resolver
	logger      *slog.Logger
	defaultGoal float64
	refresh     int
}

// NewPages wires the page handlers.
func NewPages(templates *view.Engine, salesSvc PageSales, capsSvc PageCaps, resolver *period.Resolver, defaultGoal float64, logger *slog.Logger) *Pages {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = period.NewResolver(time.Local)
	}
	if defaultGoal <= 0 {
		defaultGoal = dashboard.DefaultGoal
	}
	return &Pages{
		templates:   templates,
		sales:       salesSvc,
		caps:        capsSvc,
		resolver:    resolver,
		logger:      logger.With(slog.String("component", "pages")),
		defaultGoal: defaultGoal,
		refresh:     int(dashboard.DefaultRefreshInterval / time.Second),
	}
}

// MountRoutes registers the page routes.
func (p *Pages) MountRoutes(r chi.Router) {
	r.Get("/", p.handleIndex)
	r.Get("/placar", p.handlePlacar)
	r.Get("/regional", p.handleRegional)
	r.Get("/bone", p.handleBone)
}

type panelView struct {
	Key          string
	Label        string
	Total        float64
	Count        int64
	Ticket       float64
	Goal         float64
	Percent      float64
	Color        string
	Gauge        template.HTML
	Chart        template.HTML
	TotalChange  render.Indicator
	CountChange  render.Indicator
	TicketChange render.Indicator
	Highlights   sales.Highlights
}

type rankRow struct {
	Position int
	Name     string
	Branch   string
	Total    float64
	Change   float64
	Up       bool
}

type pageView struct {
	Period      period.Period
	PeriodLabel string
	Panels      []panelView
	Ranking     []rankRow
	Podium      []caps.Placement
	Units       []caps.Placement
	Bars        template.HTML
	Error       string
}

func (p *Pages) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	per, err := p.resolve(q.Get("periodo"), q.Get("dataInicio"), q.Get("dataFim"))
	if err != nil {
		p.renderError(w, r, "pages/index.html", "Painel de Vendas", err)
		return
	}
	branches := splitList(q["filial"])
	query := salesQuery(per, branches, q.Get("vendedor"))

	data := pageView{Period: per, PeriodLabel: per.Kind.Label()}
	payload, err := p.sales.Dashboard(r.Context(), query)
	if err != nil {
		p.logger.Error("index dashboard", slog.Any("error", err))
		data.Error = "Não foi possível carregar os dados de vendas."
	} else {
		goal := goalFor(payload.Goals, branches, p.defaultGoal)
		data.Panels = []panelView{p.panel(dashboard.Panel{Key: "geral", Label: "Geral"}, payload, goal, per.Kind, false)}
		data.Ranking = sellerRows(payload.Ranking, dashboard.DefaultRankingPageSize)
	}
	p.render(w, r, "pages/index.html", "Painel de Vendas", data)
}

func (p *Pages) handlePlacar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	per, err := p.resolve(q.Get("periodo"), q.Get("dataInicio"), q.Get("dataFim"))
	if err != nil {
		p.renderError(w, r, "pages/placar.html", "Placar", err)
		return
	}
	goal := p.defaultGoal
	if raw := q.Get("meta"); raw != "" {
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil && v > 0 {
			goal = v
		}
	}
	variant, err := dashboard.PlacarVariant(q.Get("filial"), goal)
	if err != nil {
		p.renderError(w, r, "pages/placar.html", "Placar", err)
		return
	}
	panel := variant.Panels[0]

	data := pageView{Period: per, PeriodLabel: per.Kind.Label()}
	payload, err := p.sales.Dashboard(r.Context(), salesQuery(per, panel.Branches, q.Get("vendedor")))
	if err != nil {
		p.logger.Error("placar dashboard", slog.Any("error", err))
		data.Error = "Não foi possível carregar o placar."
	} else {
		data.Panels = []panelView{p.panel(panel, payload, panel.Goal, per.Kind, true)}
		data.Ranking = sellerRows(payload.Ranking, dashboard.DefaultRankingPageSize)
	}
	p.render(w, r, "pages/placar.html", "Placar", data)
}

func (p *Pages) handleRegional(w http.ResponseWriter, r *http.Request) {
	variant := dashboard.RegionalVariant()
	fixed := variant.FixedPeriod
	per, err := p.resolver.Resolve(fixed.Kind, fixed.CustomStart, fixed.CustomEnd)
	if err != nil {
		p.renderError(w, r, "pages/regional.html", "Regional", err)
		return
	}

	data := pageView{Period: per, PeriodLabel: per.Kind.Label()}
	for _, panel := range variant.Panels {
		payload, err := p.sales.Dashboard(r.Context(), salesQuery(per, panel.Branches, ""))
		if err != nil {
			p.logger.Error("regional dashboard", slog.String("unit", panel.Key), slog.Any("error", err))
			data.Error = "Algumas unidades não puderam ser carregadas."
			continue
		}
		goal := goalFor(payload.Goals, panel.Branches, p.defaultGoal)
		data.Panels = append(data.Panels, p.panel(panel, payload, goal, per.Kind, false))
	}
	ranking, err := p.sales.Dashboard(r.Context(), salesQuery(per, variant.RankingBranches, ""))
	if err != nil {
		p.logger.Error("regional ranking", slog.Any("error", err))
	} else {
		data.Ranking = sellerRows(ranking.Ranking, variant.RankingPageSize)
	}
	p.render(w, r, "pages/regional.html", "Regional", data)
}

func (p *Pages) handleBone(w http.ResponseWriter, r *http.Request) {
	per, err := caps.ParsePeriod(r, p.resolver.Today().Location())
	if err != nil {
		p.renderError(w, r, "pages/bone.html", "Campanha Boné", err)
		return
	}
	data := pageView{Period: per, PeriodLabel: per.Kind.Label()}
	board, err := p.caps.Board(r.Context(), per)
	if err != nil {
		p.logger.Error("caps board", slog.Any("error", err))
		data.Error = "Não foi possível carregar a campanha."
		p.render(w, r, "pages/bone.html", "Campanha Boné", data)
		return
	}
	data.Podium = board.SellerPodium
	data.Units = board.UnitPodium

	limit := min(len(board.Ranking), dashboard.DefaultRankingPageSize)
	values := make([]float64, 0, limit)
	names := make([]string, 0, limit)
	for i, e := range board.Ranking[:limit] {
		values = append(values, e.Total)
		names = append(names, e.Name)
		data.Ranking = append(data.Ranking, rankRow{Position: i + 1, Name: e.Name, Branch: render.TeamName(e.Branch), Total: e.Total, Change: e.Change, Up: e.Change >= 0})
	}
	if len(values) > 0 {
		bars, err := render.Bars(render.DefaultWidth, values, names, render.BarOpts{Title: "Ranking da campanha", LeaderColor: "#f59e0b"})
		if err != nil {
			p.logger.Warn("caps bars", slog.Any("error", err))
		}
		data.Bars = bars
	}
	p.render(w, r, "pages/bone.html", "Campanha Boné", data)
}

func (p *Pages) panel(panel dashboard.Panel, payload sales.Dashboard, goal float64, kind period.Kind, accumulated bool) panelView {
	pct := render.Percent(payload.Total, goal)
	out := panelView{
		Key:        panel.Key,
		Label:      panel.Label,
		Total:      payload.Total,
		Count:      payload.Count,
		Ticket:     payload.Average,
		Goal:       goal,
		Percent:    pct,
		Color:      render.ScoreColor(pct),
		Highlights: payload.Highlights,
	}
	if payload.Comparison != nil {
		out.TotalChange = render.Comparison(payload.Comparison.Total, kind)
		out.CountChange = render.Comparison(payload.Comparison.Count, kind)
		out.TicketChange = render.Comparison(payload.Comparison.Average, kind)
	}

	gauge, err := render.Gauge(payload.Total, goal, render.GaugeOpts{Title: panel.Label})
	if err != nil {
		p.logger.Warn("gauge", slog.String("panel", panel.Key), slog.Any("error", err))
	}
	out.Gauge = gauge

	points := make([]dashboard.SeriesPoint, 0, len(payload.Series))
	for _, pt := range payload.Series {
		points = append(points, dashboard.SeriesPoint{Date: pt.Date, Value: pt.Value})
	}
	if accumulated {
		points = dashboard.Accumulated(points)
	}
	if len(points) > 0 {
		values := make([]float64, len(points))
		labels := make([]string, len(points))
		for i, pt := range points {
			values[i] = pt.Value
			labels[i] = render.DateLabel(pt.Date, kind)
		}
		chart, err := render.Line(render.DefaultWidth, render.DefaultHeight, values, labels, render.LineOpts{Title: "Vendas " + panel.Label, ShowDots: len(points) <= 31})
		if err != nil {
			p.logger.Warn("series chart", slog.String("panel", panel.Key), slog.Any("error", err))
		}
		out.Chart = chart
	}
	return out
}

func (p *Pages) resolve(token, start, end string) (period.Period, error) {
	kind := period.ParseKind(token)
	if token == "" && start != "" && end != "" {
		kind = period.KindCustom
	}
	return p.resolver.Resolve(kind, start, end)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name, title string, data pageView) {
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Refresh:     p.refresh,
		Generated:   time.Now().In(p.resolver.Today().Location()),
		Data:        data,
	}
	if err := p.templates.Render(w, name, td); err != nil {
		p.logger.Error("render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, name, title string, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	p.render(w, r, name, title, pageView{Error: err.Error()})
}

func salesQuery(per period.Period, branches []string, seller string) sales.Query {
	return sales.Query{
		Branches:     branches,
		Seller:       seller,
		Start:        per.Start,
		End:          per.End,
		GroupByMonth: per.Kind.GroupByMonth(),
		PeriodToken:  per.Kind.Token(),
	}
}

func goalFor(goals map[string]float64, branches []string, fallback float64) float64 {
	return dashboard.Snapshot{Goals: goals}.GoalFor(branches, fallback)
}

func sellerRows(ranking []sales.RankedSeller, limit int) []rankRow {
	if limit > len(ranking) {
		limit = len(ranking)
	}
	out := make([]rankRow, 0, limit)
	for i, e := range ranking[:limit] {
		out = append(out, rankRow{Position: i + 1, Name: e.Name, Total: e.Total, Change: e.Change, Up: e.Change >= 0})
	}
	return out
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
