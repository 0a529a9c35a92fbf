package render

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrEmptySeries is returned when a chart has nothing to plot.
var ErrEmptySeries = errors.New("render: series required")

// Line draws the sales time series with an area fill under the curve.
func Line(width, height int, values []float64, labels []string, opts LineOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", ErrEmptySeries
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("render: %d labels for %d values", len(labels), len(values))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	stroke := fallback(opts.StrokeColor, "#667eea")
	fill := fallback(opts.FillColor, "rgba(102,126,234,0.15)")
	axis := fallback(opts.AxisColor, "#64748b")
	grid := fallback(opts.GridColor, "#e2e8f0")

	// the left gutter holds currency ticks
	left := padding * 2.5
	plotW := float64(width) - left - padding
	plotH := float64(height) - 2*padding
	if plotW <= 0 || plotH <= 0 {
		return "", errors.New("render: viewport too small")
	}

	lo, hi := bounds(values)
	lo = min(lo, 0)
	hi = max(hi, 0)
	if almostEqual(lo, hi) {
		hi = lo + 1
	}
	scale := plotH / (hi - lo)
	bottom := padding + plotH

	xAt := func(i int) float64 {
		if len(values) == 1 {
			return left + plotW/2
		}
		return left + float64(i)*plotW/float64(len(values)-1)
	}
	yAt := func(v float64) float64 {
		return bottom - (v-lo)*scale
	}

	var path strings.Builder
	for i, v := range values {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, xAt(i), yAt(v))
	}
	d := strings.TrimSpace(path.String())

	titleID := makeID(opts.Title, "line-title")
	descID := makeID(opts.Title, "line-desc")

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Vendas")))
	fmt.Fprintf(&b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(opts.Description, "Evolução das vendas")))

	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		y := bottom - ratio*plotH
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" aria-hidden="true"></line>`, left, y, left+plotW, y, grid)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, left-6, y+4, axis, template.HTMLEscapeString(axisTick(lo+(hi-lo)*ratio)))
	}
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"></line>`, left, bottom, left+plotW, bottom, axis)

	fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`, d, xAt(len(values)-1), bottom, xAt(0), bottom, fill)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="3" stroke-linejoin="round" stroke-linecap="round"></path>`, d, stroke)

	if opts.ShowDots {
		for i, v := range values {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="4" fill="%s"><title>%s</title></circle>`, xAt(i), yAt(v), stroke, template.HTMLEscapeString(labels[i]+": "+Currency(v)))
		}
	}

	// thin out x labels on long series
	every := 1
	if len(labels) > 15 {
		every = (len(labels) + 14) / 15
	}
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, xAt(i), bottom+14, axis, template.HTMLEscapeString(label))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
