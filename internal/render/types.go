package render

import (
	"fmt"
	"math"
	"strings"
)

// LineOpts customises the sales series chart.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
}

// BarOpts customises the ranking chart.
type BarOpts struct {
	Title       string
	Description string
	Color       string
	LeaderColor string
	AxisColor   string
	RowHeight   float64
	LabelWidth  float64
	Offset      int
}

// Chart defaults.
const (
	DefaultWidth     = 720
	DefaultHeight    = 240
	DefaultPadding   = 24.0
	DefaultTicks     = 5
	DefaultRowHeight = 26.0
)

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func bounds(series []float64) (float64, float64) {
	minVal, maxVal := series[0], series[0]
	for _, v := range series[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// makeID derives an element id from a title so several charts can share a page.
func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

// axisTick labels a value axis with the compact currency form.
func axisTick(v float64) string {
	if v < 0 {
		return "-" + CompactCurrency(-v)
	}
	return CompactCurrency(v)
}
