// Package dashboard runs the polling loop behind every sales dashboard:
// resolve the period, fetch, diff against the last snapshot, redraw the
// groups that changed and keep the page rotations going.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/painel-vendas/painel/internal/period"
)

const rankingKey = "__ranking__"

// SeriesMode selects how a time series is drawn.
type SeriesMode int

// Series modes.
const (
	SeriesDaily SeriesMode = iota
	SeriesAccumulated
)

func (m SeriesMode) String() string {
	if m == SeriesAccumulated {
		return "accumulated"
	}
	return "daily"
}

// Renderer draws the display groups. Implementations skip missing targets.
type Renderer interface {
	RenderMetrics(panel Panel, snap Snapshot, goal float64, kind period.Kind)
	RenderSeries(panel Panel, points []SeriesPoint, kind period.Kind, mode SeriesMode)
	RenderRanking(entries []RankedEntry, page Page)
	RenderPanels(panels []Panel, page Page)
	RenderPodium(snap Snapshot)
	Dispose()
}

// Source fetches one payload.
type Source interface {
	Dashboard(ctx context.Context, ep Endpoint, filters Filters) (Result, error)
}

// Config wires a dashboard instance.
type Config struct {
	Variant   Variant
	Selection Selection
	Source    Source
	Renderer  Renderer
	Notifier  Notifier
	Recorder  Recorder
	Resolver  *period.Resolver
	Logger    *slog.Logger
	// Ticker replaces the ticker factory of every scheduler.
	Ticker TickerFunc
}

// Dashboard is one running dashboard. All mutable state lives here.
type Dashboard struct {
	id       string
	variant  Variant
	source   Source
	renderer Renderer
	notifier Notifier
	recorder Recorder
	resolver *period.Resolver
	logger   *slog.Logger
	flights  singleflight.Group

	refresher  *Refresher
	rankingRot *Rotator
	panelRot   *Rotator
	chartRot   *Rotator

	mu         sync.Mutex
	selection  Selection
	detectors  map[string]*Detector
	applied    map[string]uint64
	current    map[string]Snapshot
	kind       period.Kind
	ranking    []RankedEntry
	seriesMode SeriesMode
	visible    bool
	runCtx     context.Context
}

// New validates cfg and builds a stopped dashboard.
func New(cfg Config) (*Dashboard, error) {
	if err := cfg.Variant.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil || cfg.Renderer == nil {
		return nil, errors.New("dashboard: source and renderer are required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = period.NewResolver(time.Local)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dashboard{
		id:        uuid.NewString(),
		variant:   cfg.Variant,
		source:    cfg.Source,
		renderer:  cfg.Renderer,
		notifier:  cfg.Notifier,
		recorder:  cfg.Recorder,
		resolver:  cfg.Resolver,
		selection: cfg.Selection,
		detectors: make(map[string]*Detector),
		applied:   make(map[string]uint64),
		current:   make(map[string]Snapshot),
		visible:   true,
	}
	d.logger = cfg.Logger.With(slog.String("component", "dashboard"), slog.String("variant", d.variant.Name), slog.String("instance", d.id))

	d.refresher = NewRefresher(d.variant.RefreshInterval, func(ctx context.Context) {
		_ = d.Refresh(ctx)
	})
	d.rankingRot = NewRotator(d.variant.RankingPageSize, d.variant.RankingRotation, d.onRankingPage)
	if d.variant.PanelPageSize > 0 {
		d.panelRot = NewRotator(d.variant.PanelPageSize, d.variant.PanelRotation, d.onPanelPage)
	}
	if d.variant.ChartRotation > 0 {
		d.chartRot = NewRotator(1, d.variant.ChartRotation, d.onChartPage)
	}
	if cfg.Ticker != nil {
		d.refresher.WithTicker(cfg.Ticker)
		for _, r := range d.rotators() {
			r.WithTicker(cfg.Ticker)
		}
	}
	return d, nil
}

// ID identifies the instance in logs.
func (d *Dashboard) ID() string { return d.id }

// Variant returns the instance configuration.
func (d *Dashboard) Variant() Variant { return d.variant }

// Run performs the first refresh, arms the schedulers and blocks until ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	d.mu.Lock()
	d.runCtx = ctx
	d.visible = true
	d.mu.Unlock()

	if d.panelRot != nil {
		page := d.panelRot.Reset(len(d.variant.RotatingPanels()))
		d.renderPanels(page)
	}
	if d.chartRot != nil {
		d.chartRot.Reset(2)
	}

	if err := d.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("initial refresh failed", slog.Any("error", err))
	}
	d.refresher.Start(ctx)
	d.startRotators(ctx)

	<-ctx.Done()
	d.refresher.Stop()
	d.stopRotators()
	d.logger.Info("dashboard stopped")
	return nil
}

// SetVisible suspends every timer when hidden. Becoming visible refreshes
// immediately and restarts the rotations.
func (d *Dashboard) SetVisible(visible bool) {
	d.mu.Lock()
	if d.visible == visible {
		d.mu.Unlock()
		return
	}
	d.visible = visible
	ctx := d.runCtx
	d.mu.Unlock()

	if !visible {
		d.stopRotators()
	}
	d.refresher.SetVisible(visible)
	if visible && ctx != nil {
		d.startRotators(ctx)
	}
	d.logger.Info("visibility changed", slog.Bool("visible", visible))
}

// Configure replaces the selection, tears the charts down and refreshes.
func (d *Dashboard) Configure(ctx context.Context, sel Selection) error {
	d.stopRotators()
	d.mu.Lock()
	d.selection = sel
	for _, det := range d.detectors {
		det.Reset()
	}
	d.current = make(map[string]Snapshot)
	d.ranking = nil
	d.seriesMode = SeriesDaily
	d.renderer.Dispose()
	d.mu.Unlock()

	if d.panelRot != nil {
		d.renderPanels(d.panelRot.Reset(len(d.variant.RotatingPanels())))
	}
	if d.chartRot != nil {
		d.chartRot.Reset(2)
	}
	err := d.Refresh(ctx)
	d.mu.Lock()
	runCtx, visible := d.runCtx, d.visible
	d.mu.Unlock()
	if runCtx != nil && visible {
		d.startRotators(runCtx)
	}
	return err
}

// Snapshot returns the displayed snapshot of a panel.
func (d *Dashboard) Snapshot(panelKey string) (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap, ok := d.current[panelKey]
	if !ok {
		return Snapshot{}, false
	}
	return snap.Clone(), true
}

// Ranking returns the displayed ranking and its page.
func (d *Dashboard) Ranking() ([]RankedEntry, Page) {
	d.mu.Lock()
	entries := cloneRanking(d.ranking)
	d.mu.Unlock()
	return entries, d.rankingRot.Current()
}

// Refresh runs one fetch/diff/render pass. Concurrent calls for the same
// selection share a single pass.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	sel := d.selection
	d.mu.Unlock()
	if fixed := d.variant.FixedPeriod; fixed != nil {
		sel.Kind, sel.CustomStart, sel.CustomEnd = fixed.Kind, fixed.CustomStart, fixed.CustomEnd
	}

	p, err := d.resolver.Resolve(sel.Kind, sel.CustomStart, sel.CustomEnd)
	if err != nil {
		d.recorder.ObserveFetch(d.variant.Name, OutcomeRejected, 0)
		if errors.Is(err, period.ErrInvertedRange) {
			d.notifier.Notify(LevelWarning, "A data de início deve ser anterior à data de fim")
		} else {
			d.notifier.Notify(LevelWarning, "Data inválida no período personalizado")
		}
		return err
	}

	key := NewFilters(p, sel.Branches, sel.Seller).Key()
	ch := d.flights.DoChan(key, func() (interface{}, error) {
		return nil, d.refresh(ctx, p, sel)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

type job struct {
	key     string
	panel   *Panel
	filters Filters
}

type jobResult struct {
	job     job
	result  Result
	err     error
	elapsed time.Duration
}

func (d *Dashboard) jobs(p period.Period, sel Selection) []job {
	jobs := make([]job, 0, len(d.variant.Panels)+1)
	for i := range d.variant.Panels {
		panel := &d.variant.Panels[i]
		branches := panel.Branches
		if len(branches) == 0 {
			branches = sel.Branches
		}
		jobs = append(jobs, job{key: panel.Key, panel: panel, filters: NewFilters(p, branches, sel.Seller)})
	}
	if len(d.variant.RankingBranches) > 0 {
		jobs = append(jobs, job{key: rankingKey, filters: NewFilters(p, d.variant.RankingBranches, sel.Seller)})
	}
	return jobs
}

func (d *Dashboard) refresh(ctx context.Context, p period.Period, sel Selection) error {
	jobs := d.jobs(p, sel)
	results := make([]jobResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(4)
	for i, j := range jobs {
		g.Go(func() error {
			start := time.Now()
			res, err := d.source.Dashboard(ctx, d.variant.Endpoint, j.filters)
			results[i] = jobResult{job: j, result: res, err: err, elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	d.mu.Lock()
	rankingChanged := false
	for _, r := range results {
		changed, err := d.applyLocked(r, p.Kind)
		if err != nil {
			failed = append(failed, err)
		}
		rankingChanged = rankingChanged || changed
	}
	d.kind = p.Kind
	ranking := cloneRanking(d.ranking)
	runCtx, visible := d.runCtx, d.visible
	d.mu.Unlock()

	if rankingChanged {
		page := d.rankingRot.Reset(len(ranking))
		d.renderer.RenderRanking(ranking, page)
		d.recorder.ObserveRedraw(d.variant.Name, GroupRanking)
	}
	// A new ranking starts over on page 0 with a full interval.
	if runCtx != nil && visible && (rankingChanged || !d.rankingRot.Running()) {
		d.rankingRot.Start(runCtx)
	}

	if len(failed) > 0 {
		d.notifier.Notify(LevelError, "Erro ao carregar dados do dashboard")
		return errors.Join(failed...)
	}
	return nil
}

// applyLocked folds one fetch result into the state and redraws the groups
// it changed. It reports whether the displayed ranking was replaced.
func (d *Dashboard) applyLocked(r jobResult, kind period.Kind) (bool, error) {
	name := d.variant.Name
	if r.err != nil {
		d.recorder.ObserveFetch(name, OutcomeError, r.elapsed)
		d.logger.Error("fetch failed", slog.String("panel", r.job.key), slog.Any("error", r.err))
		return false, fmt.Errorf("%s: %w", r.job.key, r.err)
	}
	if r.result.Seq < d.applied[r.job.key] {
		d.recorder.ObserveFetch(name, OutcomeStale, r.elapsed)
		d.logger.Debug("stale response dropped", slog.String("panel", r.job.key), slog.Uint64("seq", r.result.Seq))
		return false, nil
	}
	d.applied[r.job.key] = r.result.Seq

	det := d.detector(r.job.key)
	snap := r.result.Snapshot
	changes := det.Evaluate(snap, r.result.Filters)
	switch {
	case changes.Blocked:
		d.recorder.ObserveFetch(name, OutcomeBlocked, r.elapsed)
		d.logger.Warn("total regressed, update discarded", slog.String("panel", r.job.key), slog.Float64("total", snap.Total))
		return false, nil
	case !changes.Data:
		d.recorder.ObserveFetch(name, OutcomeUnchanged, r.elapsed)
		return false, nil
	}
	d.recorder.ObserveFetch(name, OutcomeApplied, r.elapsed)
	det.Commit(snap, r.result.Filters, changes)

	rankingChanged := false
	if r.job.panel == nil {
		if changes.Ranking {
			d.ranking = cloneRanking(snap.Ranking)
			rankingChanged = true
		}
		return rankingChanged, nil
	}

	panel := *r.job.panel
	d.current[panel.Key] = snap.Clone()
	if changes.Metrics {
		d.renderer.RenderMetrics(panel, snap, d.goalFor(panel, snap, r.result.Filters), kind)
		d.recorder.ObserveRedraw(name, GroupMetrics)
	}
	if changes.Series {
		d.renderer.RenderSeries(panel, d.seriesFor(snap.Series), kind, d.seriesMode)
		d.recorder.ObserveRedraw(name, GroupSeries)
	}
	if d.variant.Podium {
		d.renderer.RenderPodium(snap)
		d.recorder.ObserveRedraw(name, GroupPodium)
	}
	if changes.Ranking && len(d.variant.RankingBranches) == 0 && r.job.panel == &d.variant.Panels[0] {
		d.ranking = cloneRanking(snap.Ranking)
		rankingChanged = true
	}
	return rankingChanged, nil
}

func (d *Dashboard) goalFor(panel Panel, snap Snapshot, filters Filters) float64 {
	if panel.Goal > 0 {
		return panel.Goal
	}
	return snap.GoalFor(filters.Branches, d.variant.DefaultGoal)
}

func (d *Dashboard) seriesFor(points []SeriesPoint) []SeriesPoint {
	if d.seriesMode == SeriesAccumulated {
		return Accumulated(points)
	}
	return append([]SeriesPoint(nil), points...)
}

func (d *Dashboard) detector(key string) *Detector {
	det, ok := d.detectors[key]
	if !ok {
		det = NewDetector(d.variant.GuardRegression)
		d.detectors[key] = det
	}
	return det
}

func (d *Dashboard) onRankingPage(page Page) {
	d.mu.Lock()
	ranking := cloneRanking(d.ranking)
	d.mu.Unlock()
	d.renderer.RenderRanking(ranking, page)
	d.recorder.ObserveRotation(d.variant.Name, GroupRanking)
}

func (d *Dashboard) onPanelPage(page Page) {
	d.renderPanels(page)
	d.recorder.ObserveRotation(d.variant.Name, GroupPanels)
}

func (d *Dashboard) renderPanels(page Page) {
	d.renderer.RenderPanels(d.variant.RotatingPanels(), page)
}

func (d *Dashboard) onChartPage(page Page) {
	d.mu.Lock()
	d.seriesMode = SeriesMode(page.Index)
	panel := d.variant.Panels[0]
	snap, ok := d.current[panel.Key]
	kind := d.kind
	var points []SeriesPoint
	if ok {
		points = d.seriesFor(snap.Series)
	}
	mode := d.seriesMode
	d.mu.Unlock()
	if !ok {
		return
	}
	d.renderer.RenderSeries(panel, points, kind, mode)
	d.recorder.ObserveRotation(d.variant.Name, GroupSeries)
}

func (d *Dashboard) rotators() []*Rotator {
	out := []*Rotator{d.rankingRot}
	if d.panelRot != nil {
		out = append(out, d.panelRot)
	}
	if d.chartRot != nil {
		out = append(out, d.chartRot)
	}
	return out
}

func (d *Dashboard) startRotators(ctx context.Context) {
	for _, r := range d.rotators() {
		r.Start(ctx)
	}
}

func (d *Dashboard) stopRotators() {
	for _, r := range d.rotators() {
		r.Stop()
	}
}
