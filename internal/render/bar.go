package render

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// Bars draws a horizontal bar per ranked name, longest bar first. Offset
// shifts the printed positions when the slice is a later page of a ranking.
func Bars(width int, values []float64, names []string, opts BarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", ErrEmptySeries
	}
	if len(values) != len(names) {
		return "", fmt.Errorf("render: %d names for %d values", len(names), len(values))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	row := opts.RowHeight
	if row <= 0 {
		row = DefaultRowHeight
	}
	labelW := opts.LabelWidth
	if labelW <= 0 {
		labelW = 180
	}
	color := fallback(opts.Color, "#667eea")
	leader := fallback(opts.LeaderColor, "#f59e0b")
	axis := fallback(opts.AxisColor, "#334155")

	valueW := 110.0
	barArea := float64(width) - labelW - valueW - DefaultPadding
	if barArea <= 0 {
		return "", errors.New("render: viewport too small")
	}
	height := int(row*float64(len(values)) + DefaultPadding)

	_, hi := bounds(values)
	if hi <= 0 || almostEqual(hi, 0) {
		hi = 1
	}

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Ranking")))
	fmt.Fprintf(&b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(opts.Description, "Vendas por vendedor")))

	top := DefaultPadding / 2
	for i, v := range values {
		y := top + float64(i)*row
		w := 0.0
		if v > 0 {
			w = v / hi * barArea
		}
		fill := color
		if opts.Offset+i == 0 {
			fill = leader
		}
		label := fmt.Sprintf("%dº %s", opts.Offset+i+1, names[i])
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="12" text-anchor="end">%s</text>`, labelW-8, y+row*0.6, axis, template.HTMLEscapeString(label))
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="3" fill="%s"></rect>`, labelW, y+row*0.15, w, row*0.7, fill)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11" text-anchor="start">%s</text>`, labelW+w+6, y+row*0.6, axis, template.HTMLEscapeString(Currency(v)))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
