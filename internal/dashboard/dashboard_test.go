package dashboard

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painel-vendas/painel/internal/period"
)

type scriptedSource struct {
	mu    sync.Mutex
	seq   atomic.Uint64
	calls []Filters
	next  func(Filters) (Snapshot, error)
}

func (s *scriptedSource) Dashboard(_ context.Context, _ Endpoint, filters Filters) (Result, error) {
	seq := s.seq.Add(1)
	s.mu.Lock()
	s.calls = append(s.calls, filters)
	next := s.next
	s.mu.Unlock()
	snap, err := next(filters)
	if err != nil {
		return Result{Seq: seq}, err
	}
	return Result{Snapshot: snap, Filters: filters, Seq: seq}, nil
}

func (s *scriptedSource) set(fn func(Filters) (Snapshot, error)) {
	s.mu.Lock()
	s.next = fn
	s.mu.Unlock()
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingRenderer struct {
	mu       sync.Mutex
	metrics  []float64
	goals    map[string]float64
	series   int
	modes    []SeriesMode
	rankings []Page
	panels   []Page
	podiums  int
	disposed int
}

func (r *recordingRenderer) RenderMetrics(panel Panel, snap Snapshot, goal float64, _ period.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, snap.Total)
	if r.goals == nil {
		r.goals = map[string]float64{}
	}
	r.goals[panel.Key] = goal
}

func (r *recordingRenderer) RenderSeries(_ Panel, _ []SeriesPoint, _ period.Kind, mode SeriesMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series++
	r.modes = append(r.modes, mode)
}

func (r *recordingRenderer) RenderRanking(_ []RankedEntry, page Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rankings = append(r.rankings, page)
}

func (r *recordingRenderer) RenderPanels(_ []Panel, page Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels = append(r.panels, page)
}

func (r *recordingRenderer) RenderPodium(Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.podiums++
}

func (r *recordingRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed++
}

func (r *recordingRenderer) redraws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.metrics) + r.series + len(r.rankings)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []Level
}

func (n *recordingNotifier) Notify(level Level, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, level)
}

func (n *recordingNotifier) levels() []Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.messages)
}

type harness struct {
	dash     *Dashboard
	source   *scriptedSource
	renderer *recordingRenderer
	notifier *recordingNotifier
}

func newHarness(t *testing.T, v Variant, sel Selection) *harness {
	t.Helper()
	resolver := period.NewResolver(time.UTC)
	resolver.WithNow(func() time.Time { return time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC) })
	h := &harness{
		source:   &scriptedSource{next: func(Filters) (Snapshot, error) { return Snapshot{}, nil }},
		renderer: &recordingRenderer{},
		notifier: &recordingNotifier{},
	}
	d, err := New(Config{
		Variant:   v,
		Selection: sel,
		Source:    h.source,
		Renderer:  h.renderer,
		Notifier:  h.notifier,
		Resolver:  resolver,
		Ticker:    newTickerFactory().New,
	})
	require.NoError(t, err)
	h.dash = d
	return h
}

func totalOf(v float64) func(Filters) (Snapshot, error) {
	return func(Filters) (Snapshot, error) { return Snapshot{Total: v}, nil }
}

func TestRefreshRegressionGuard(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindMonth})
	ctx := context.Background()

	h.source.set(totalOf(100))
	require.NoError(t, h.dash.Refresh(ctx))
	snap, ok := h.dash.Snapshot("geral")
	require.True(t, ok)
	assert.Equal(t, 100.0, snap.Total)

	h.source.set(totalOf(90))
	require.NoError(t, h.dash.Refresh(ctx))
	snap, _ = h.dash.Snapshot("geral")
	assert.Equal(t, 100.0, snap.Total)
	assert.Equal(t, []float64{100}, h.renderer.metrics)

	h.source.set(totalOf(150))
	require.NoError(t, h.dash.Refresh(ctx))
	snap, _ = h.dash.Snapshot("geral")
	assert.Equal(t, 150.0, snap.Total)
	assert.Equal(t, []float64{100, 150}, h.renderer.metrics)
}

func TestRefreshEqualPayloadsDoNotRedraw(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindMonth})
	payload := Snapshot{
		Total:   500,
		Count:   2,
		Average: 250,
		Series:  []SeriesPoint{{Date: "2025-11-03", Value: 500}},
		Ranking: []RankedEntry{{Name: "ANA", Total: 500}},
	}
	h.source.set(func(Filters) (Snapshot, error) { return payload.Clone(), nil })

	require.NoError(t, h.dash.Refresh(context.Background()))
	first := h.renderer.redraws()
	assert.Equal(t, 3, first)

	require.NoError(t, h.dash.Refresh(context.Background()))
	assert.Equal(t, first, h.renderer.redraws())
}

func TestRefreshSendsResolvedPeriod(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.ParseKind("mes"), Branches: []string{"Sinop"}, Seller: "ANA"})
	require.NoError(t, h.dash.Refresh(context.Background()))
	require.Equal(t, 1, h.source.callCount())
	f := h.source.calls[0]
	assert.Equal(t, "2025-11-01", f.Start)
	assert.Equal(t, "2025-11-30", f.End)
	assert.Equal(t, []string{"Sinop"}, f.Branches)
	assert.Equal(t, "ANA", f.Seller)
}

func TestRefreshRejectsInvertedCustomRange(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindCustom, CustomStart: "2025-11-10", CustomEnd: "2025-11-01"})
	err := h.dash.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, period.ErrInvertedRange))
	assert.Equal(t, 0, h.source.callCount())
	assert.Equal(t, []Level{LevelWarning}, h.notifier.levels())
}

func TestRefreshErrorKeepsLastSnapshot(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindMonth})
	h.source.set(totalOf(100))
	require.NoError(t, h.dash.Refresh(context.Background()))

	h.source.set(func(Filters) (Snapshot, error) { return Snapshot{}, ErrUnexpectedStatus })
	err := h.dash.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	snap, _ := h.dash.Snapshot("geral")
	assert.Equal(t, 100.0, snap.Total)
	assert.Equal(t, []Level{LevelError}, h.notifier.levels())
	assert.Len(t, h.renderer.metrics, 1)
}

func TestStaleResponseIsDropped(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindMonth})
	d := h.dash
	f := monthFilters()
	panel := &d.variant.Panels[0]

	d.mu.Lock()
	_, err := d.applyLocked(jobResult{job: job{key: panel.Key, panel: panel, filters: f}, result: Result{Snapshot: Snapshot{Total: 200}, Filters: f, Seq: 5}}, period.KindMonth)
	require.NoError(t, err)
	_, err = d.applyLocked(jobResult{job: job{key: panel.Key, panel: panel, filters: f}, result: Result{Snapshot: Snapshot{Total: 300}, Filters: f, Seq: 4}}, period.KindMonth)
	require.NoError(t, err)
	d.mu.Unlock()

	snap, _ := d.Snapshot(panel.Key)
	assert.Equal(t, 200.0, snap.Total)
}

func TestRankingPaginationResetsOnNewData(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindMonth})
	entries := make([]RankedEntry, 23)
	for i := range entries {
		entries[i] = RankedEntry{Name: string(rune('A' + i)), Total: float64(1000 - i)}
	}
	h.source.set(func(Filters) (Snapshot, error) { return Snapshot{Total: 1, Ranking: entries}, nil })
	require.NoError(t, h.dash.Refresh(context.Background()))

	got, page := h.dash.Ranking()
	assert.Len(t, got, 23)
	assert.Equal(t, Page{Index: 0, Count: 3, Start: 0, End: 10}, page)

	h.dash.rankingRot.Advance()
	more := append(slices.Clone(entries), RankedEntry{Name: "Z", Total: 1})
	h.source.set(func(Filters) (Snapshot, error) { return Snapshot{Total: 2, Ranking: more}, nil })
	require.NoError(t, h.dash.Refresh(context.Background()))
	_, page = h.dash.Ranking()
	assert.Equal(t, 0, page.Index)
}

func TestRegionalGoalsAndRanking(t *testing.T) {
	h := newHarness(t, RegionalVariant(), Selection{Kind: period.KindMonth})
	h.source.set(func(f Filters) (Snapshot, error) {
		snap := Snapshot{Total: float64(len(f.Branches)), Goals: map[string]float64{"Sinop": 300000}}
		if len(f.Branches) == 6 {
			snap.Ranking = []RankedEntry{{Name: "ANA", Total: 6}}
		}
		return snap, nil
	})
	require.NoError(t, h.dash.Refresh(context.Background()))

	assert.Equal(t, 8, h.source.callCount())
	for _, f := range h.source.calls {
		assert.Equal(t, "2025-10-27", f.Start)
		assert.Equal(t, "2025-10-31", f.End)
		assert.Equal(t, "personalizado", f.Kind)
	}
	assert.Equal(t, 4*DefaultGoal+300000, h.renderer.goals[UnitMatoGrosso])
	assert.Equal(t, 300000.0, h.renderer.goals[UnitSinop])
	assert.Equal(t, DefaultGoal, h.renderer.goals[UnitJaragua])

	ranking, _ := h.dash.Ranking()
	require.Len(t, ranking, 1)
	assert.Equal(t, "ANA", ranking[0].Name)
}

func TestPlacarChartRotationTogglesMode(t *testing.T) {
	v, err := PlacarVariant("Sinop", 500000)
	require.NoError(t, err)
	h := newHarness(t, v, Selection{Kind: period.KindMonth})
	h.source.set(func(Filters) (Snapshot, error) {
		return Snapshot{Total: 10, Series: []SeriesPoint{{"2025-11-01", 4}, {"2025-11-02", 6}}}, nil
	})
	require.NoError(t, h.dash.Refresh(context.Background()))
	assert.Equal(t, 500000.0, h.renderer.goals["placar"])

	h.dash.chartRot.Reset(2)
	h.dash.onChartPage(h.dash.chartRot.Advance())
	h.dash.onChartPage(h.dash.chartRot.Advance())
	assert.Equal(t, []SeriesMode{SeriesDaily, SeriesAccumulated, SeriesDaily}, h.renderer.modes)
}

func TestPlacarRequiresPositiveGoal(t *testing.T) {
	_, err := PlacarVariant("Sinop", 0)
	assert.True(t, errors.Is(err, ErrInvalidVariant))
}

func TestConfigureDisposesAndRedraws(t *testing.T) {
	h := newHarness(t, MainVariant(), Selection{Kind: period.KindMonth})
	h.source.set(totalOf(100))
	require.NoError(t, h.dash.Refresh(context.Background()))

	require.NoError(t, h.dash.Configure(context.Background(), Selection{Kind: period.KindMonth, Branches: []string{"Sinop"}}))
	assert.Equal(t, 1, h.renderer.disposed)
	assert.Equal(t, []float64{100, 100}, h.renderer.metrics)
}

func TestVariantByName(t *testing.T) {
	for _, name := range []string{"", "main", "regional", "regional:sinop", "bone"} {
		v, err := VariantByName(name, "", 0)
		require.NoError(t, err, name)
		require.NoError(t, v.Validate(), name)
	}
	_, err := VariantByName("regional:cuiaba", "", 0)
	assert.True(t, errors.Is(err, ErrInvalidVariant))
	_, err = VariantByName("tv", "", 0)
	assert.True(t, errors.Is(err, ErrInvalidVariant))

	v, err := VariantByName("placar", "Sorriso", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sorriso"}, v.Panels[0].Branches)
}

func rankingOf(n int) []RankedEntry {
	entries := make([]RankedEntry, n)
	for i := range entries {
		entries[i] = RankedEntry{Name: string(rune('A' + i)), Total: float64(1000 - i)}
	}
	return entries
}

func (d *Dashboard) refresherArmed() bool {
	d.refresher.mu.Lock()
	defer d.refresher.mu.Unlock()
	return d.refresher.visibility != nil
}

func runDashboard(t *testing.T, d *Dashboard) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatalf("dashboard did not stop")
		}
	}
}

func TestSetVisibleSuspendsAndResumes(t *testing.T) {
	v, err := PlacarVariant("Sinop", 500000)
	require.NoError(t, err)
	h := newHarness(t, v, Selection{Kind: period.KindMonth})
	h.source.set(func(Filters) (Snapshot, error) { return Snapshot{Total: 10, Ranking: rankingOf(23)}, nil })
	d := h.dash

	stop := runDashboard(t, d)
	defer stop()
	require.Eventually(t, func() bool {
		return d.refresherArmed() && d.rankingRot.Running() && d.chartRot.Running()
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, h.source.callCount())

	d.SetVisible(false)
	assert.False(t, d.rankingRot.Running())
	assert.False(t, d.chartRot.Running())
	assert.Equal(t, 1, h.source.callCount())

	d.SetVisible(true)
	assert.True(t, d.rankingRot.Running())
	assert.True(t, d.chartRot.Running())
	require.Eventually(t, func() bool { return h.source.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	d.SetVisible(true)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, h.source.callCount(), "repeated visible signal must not refetch")
}

func TestSetVisibleStopsPanelRotation(t *testing.T) {
	h := newHarness(t, RegionalVariant(), Selection{Kind: period.KindMonth})
	h.source.set(func(f Filters) (Snapshot, error) {
		snap := Snapshot{Total: 1}
		if len(f.Branches) == 6 {
			snap.Ranking = rankingOf(23)
		}
		return snap, nil
	})
	d := h.dash

	stop := runDashboard(t, d)
	defer stop()
	require.Eventually(t, func() bool {
		return d.refresherArmed() && d.rankingRot.Running() && d.panelRot.Running()
	}, 2*time.Second, 5*time.Millisecond)
	calls := h.source.callCount()

	d.SetVisible(false)
	assert.False(t, d.rankingRot.Running())
	assert.False(t, d.panelRot.Running())

	d.SetVisible(true)
	assert.True(t, d.rankingRot.Running())
	assert.True(t, d.panelRot.Running())
	require.Eventually(t, func() bool { return h.source.callCount() == 2*calls }, 2*time.Second, 5*time.Millisecond)
}
