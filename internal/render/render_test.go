package render

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painel-vendas/painel/internal/dashboard"
	"github.com/painel-vendas/painel/internal/period"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", Currency(1234.56))
	assert.Equal(t, "R$ 0,00", Currency(0))
	assert.Equal(t, "R$ 1.000.000,00", Currency(1_000_000))
	assert.Equal(t, "-R$ 10,50", Currency(-10.5))
	assert.Equal(t, "R$ 0,00", Currency(math.NaN()))
}

func TestCompactCurrency(t *testing.T) {
	assert.Equal(t, "R$ 1.2M", CompactCurrency(1_234_567))
	assert.Equal(t, "R$ 3.4K", CompactCurrency(3_400))
	assert.Equal(t, "R$ 950", CompactCurrency(950))
}

func TestComparisonIndicator(t *testing.T) {
	up := 12.345
	down := -4.0
	assert.Equal(t, Indicator{Visible: true, Positive: true, Text: "↑ 12.3%"}, Comparison(&up, period.KindMonth))
	assert.Equal(t, Indicator{Visible: true, Positive: false, Text: "↓ 4.0%"}, Comparison(&down, period.KindWeek))
	assert.False(t, Comparison(&up, period.KindCustom).Visible)
	assert.False(t, Comparison(nil, period.KindMonth).Visible)
}

func TestDateLabel(t *testing.T) {
	assert.Equal(t, "03/11", DateLabel("2025-11-03", period.KindMonth))
	assert.Equal(t, "nov. de 2025", DateLabel("2025-11-01", period.KindYear))
	assert.Equal(t, "bogus", DateLabel("bogus", period.KindMonth))
}

func TestTeamNameAndColors(t *testing.T) {
	assert.Equal(t, "TEAM LUCAS", TeamName("Lucas do Rio Verde"))
	assert.Equal(t, "TEAM SINOP", TeamName("Sinop"))
	assert.Equal(t, "TEAM Matupá", TeamName("Matupá"))

	assert.Equal(t, "#10b981", ScoreColor(100))
	assert.Equal(t, "#667eea", ScoreColor(75))
	assert.Equal(t, "#f59e0b", ScoreColor(50))
	assert.Equal(t, "#ef4444", ScoreColor(49.9))

	assert.Equal(t, "#dc2626", BandColor(0))
	assert.Equal(t, "#fbbf24", BandColor(79))
	assert.Equal(t, "#84cc16", BandColor(99.9))
	assert.Equal(t, "#10b981", BandColor(105))
}

func TestNeedleAngle(t *testing.T) {
	assert.InDelta(t, 135.0, NeedleAngle(0), 1e-9)
	assert.InDelta(t, 405.0, NeedleAngle(110), 1e-9)
	assert.InDelta(t, 405.0, NeedleAngle(250), 1e-9)
	assert.InDelta(t, 135.0+270.0*50/110, NeedleAngle(50), 1e-9)
	assert.InDelta(t, 135.0, NeedleAngle(-5), 1e-9)
}

func TestGaugeProducesSVG(t *testing.T) {
	html, err := Gauge(750_000, 1_000_000, GaugeOpts{Title: "Sinop"})
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "<polygon")
	assert.Contains(t, out, "Sinop")
	for _, color := range []string{"#dc2626", "#ef4444", "#f59e0b", "#fbbf24", "#84cc16", "#10b981"} {
		assert.Contains(t, out, color)
	}
}

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 200, 150}, []string{"01/11", "02/11", "03/11"}, LineOpts{Title: "Vendas", ShowDots: true})
	require.NoError(t, err)
	out := string(html)
	if !strings.HasPrefix(out, "<svg") {
		t.Fatalf("expected svg output, got %s", out)
	}
	assert.Contains(t, out, "<path")
	assert.Contains(t, out, "aria-labelledby")
	assert.Contains(t, out, "02/11")

	_, err = Line(400, 200, nil, nil, LineOpts{})
	assert.ErrorIs(t, err, ErrEmptySeries)
	_, err = Line(400, 200, []float64{1}, nil, LineOpts{})
	assert.Error(t, err)
}

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(600, []float64{500, 300}, []string{"ANA", "BIA"}, BarOpts{Title: "Ranking", Offset: 10})
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "<rect")
	assert.Contains(t, out, "11º ANA")
	assert.Contains(t, out, "R$ 500,00")
}

func TestChartLifecycle(t *testing.T) {
	target := &MemoryTarget{}
	c := NewChart("gauge-x", target)
	require.NoError(t, c.Dispose())
	assert.Equal(t, 0, target.Clears())

	require.NoError(t, c.Recreate("<svg>1</svg>"))
	require.NoError(t, c.Recreate("<svg>2</svg>"))
	assert.True(t, c.Live())
	assert.Equal(t, "<svg>2</svg>", target.String())
	assert.Equal(t, 2, target.Writes())
	assert.Equal(t, 0, target.Clears())

	require.NoError(t, c.Dispose())
	assert.False(t, c.Live())
	assert.Empty(t, target.String())
	assert.Equal(t, 1, target.Clears())
}

// presenceTarget records whether the file existed at the moment of each write.
type presenceTarget struct {
	FileTarget
	present []bool
}

func (p *presenceTarget) Write(content []byte) error {
	_, err := os.Stat(p.Path)
	p.present = append(p.present, err == nil)
	return p.FileTarget.Write(content)
}

func TestChartRecreateKeepsFileInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranking.html")
	target := &presenceTarget{FileTarget: FileTarget{Path: path}}
	c := NewChart(IDRanking, target)

	require.NoError(t, c.Recreate("<ol>1</ol>"))
	require.NoError(t, c.Recreate("<ol>2</ol>"))
	assert.Equal(t, []bool{false, true}, target.present)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<ol>2</ol>", string(raw))

	require.NoError(t, c.Dispose())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

type failingTarget struct{ MemoryTarget }

func (f *failingTarget) Write([]byte) error { return errors.New("disk full") }

func TestChartRecreateFailureKeepsDrawing(t *testing.T) {
	target := &failingTarget{}
	require.NoError(t, target.MemoryTarget.Write([]byte("<svg>old</svg>")))
	c := NewChart("gauge-x", target)
	c.live = true

	require.Error(t, c.Recreate("<svg>new</svg>"))
	assert.True(t, c.Live())
	assert.Equal(t, "<svg>old</svg>", target.String())
	assert.Equal(t, 0, target.Clears())
}

func TestFileTarget(t *testing.T) {
	dir := t.TempDir()
	targets := FileTargets(dir, ".svg", "gauge-a")
	target, ok := targets.Lookup("gauge-a")
	require.True(t, ok)

	require.NoError(t, target.Write([]byte("<svg/>")))
	raw, err := os.ReadFile(filepath.Join(dir, "gauge-a.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(raw))

	require.NoError(t, target.Clear())
	require.NoError(t, target.Clear())
	_, err = os.Stat(filepath.Join(dir, "gauge-a.svg"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetSkipsMissingTargets(t *testing.T) {
	set := NewSet(Targets{}, nil)
	panel := dashboard.Panel{Key: "geral", Label: "Geral"}
	set.RenderMetrics(panel, dashboard.Snapshot{Total: 10}, 100, period.KindMonth)
	set.RenderSeries(panel, []dashboard.SeriesPoint{{Date: "2025-11-01", Value: 1}}, period.KindMonth, dashboard.SeriesDaily)
	set.RenderRanking(nil, dashboard.Page{})
	set.RenderPodium(dashboard.Snapshot{})
	set.Dispose()
}

func TestSetRendersWidgets(t *testing.T) {
	v := dashboard.MainVariant()
	targets := Targets{}
	for _, id := range WidgetIDs(v) {
		targets[id] = &MemoryTarget{}
	}
	set := NewSet(targets, nil)
	panel := v.Panels[0]
	change := 12.34

	set.RenderMetrics(panel, dashboard.Snapshot{
		Total:      1500,
		Count:      3,
		Average:    500,
		Comparison: &dashboard.Comparison{Total: &change},
	}, 1000, period.KindMonth)
	metrics := targets[MetricsID("geral")].(*MemoryTarget).String()
	assert.Contains(t, metrics, "R$ 1.500,00")
	assert.Contains(t, metrics, "↑ 12.3%")
	assert.Contains(t, metrics, `data-value="100.0"`)
	assert.Contains(t, metrics, "150.0%")
	assert.Contains(t, targets[GaugeID("geral")].(*MemoryTarget).String(), "<svg")

	entries := make([]dashboard.RankedEntry, 12)
	for i := range entries {
		entries[i] = dashboard.RankedEntry{Name: string(rune('A' + i)), Total: float64(100 - i)}
	}
	set.RenderRanking(entries, dashboard.Page{Index: 1, Count: 2, Start: 10, End: 12})
	ranking := targets[IDRanking].(*MemoryTarget).String()
	assert.Contains(t, ranking, `start="11"`)
	assert.Contains(t, ranking, ">K<")
	assert.NotContains(t, ranking, ">A<")
	assert.Contains(t, ranking, "2/2")

	set.RenderSeries(panel, nil, period.KindMonth, dashboard.SeriesDaily)
	assert.Empty(t, targets[SeriesID("geral")].(*MemoryTarget).String())

	set.Dispose()
	assert.Empty(t, targets[MetricsID("geral")].(*MemoryTarget).String())
}

func TestSetRendersPodium(t *testing.T) {
	v := dashboard.BoneVariant()
	target := &MemoryTarget{}
	set := NewSet(Targets{IDPodium: target}, nil)
	set.RenderPodium(dashboard.Snapshot{
		SellerPodium: []dashboard.PodiumEntry{{Position: 1, Name: "ANA", Branch: "Sinop", Total: 10}},
		UnitPodium:   []dashboard.PodiumEntry{{Position: 1, Branch: "Lucas do Rio Verde", Total: 30}},
	})
	out := target.String()
	assert.Contains(t, out, "TEAM SINOP")
	assert.Contains(t, out, "TEAM LUCAS")
	assert.Contains(t, WidgetIDs(v), IDPodium)
}
