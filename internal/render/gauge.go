package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	svg "github.com/ajstarks/svgo"
)

// Gauge geometry: the dial spans 270 degrees starting at 135 (lower left)
// and reads up to 110% of the goal.
const (
	GaugeStartDeg = 135.0
	GaugeSweepDeg = 270.0
	GaugeCeiling  = 110.0
)

// GaugeOpts customises the gauge renderer.
type GaugeOpts struct {
	Title       string
	Description string
	Width       int
	Height      int
}

type band struct {
	from, to float64
}

var gaugeBands = []band{{0, 20}, {20, 40}, {40, 60}, {60, 80}, {80, 100}, {100, GaugeCeiling}}

// NeedleAngle maps an attainment percentage onto the dial, in degrees.
func NeedleAngle(pct float64) float64 {
	pct = math.Max(0, math.Min(pct, GaugeCeiling))
	return GaugeStartDeg + GaugeSweepDeg*pct/GaugeCeiling
}

// Gauge draws a speedometer for value against goal.
func Gauge(value, goal float64, opts GaugeOpts) (template.HTML, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 140
	}
	pct := Percent(value, goal)
	needle := NeedleAngle(pct)

	cx := float64(width) / 2
	cy := float64(height) * 0.75
	radius := math.Min(float64(width), float64(height)) * 0.35
	stroke := int(math.Max(8, radius/2.5))
	large := width > 250

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(width, height, 0, 0, width, height)
	canvas.Title(fallback(opts.Title, "Meta"))
	canvas.Desc(fallback(opts.Description, fmt.Sprintf("%.1f%% da meta", pct)))

	for _, b := range gaugeBands {
		sx, sy := polar(cx, cy, radius, angleFor(b.from))
		ex, ey := polar(cx, cy, radius, angleFor(b.to))
		style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%d", BandColor(b.from), stroke)
		canvas.Arc(sx, sy, int(radius), int(radius), 0, false, true, ex, ey, style)
	}

	inset, labelOffset, font := 12.0, 15.0, 10
	if large {
		inset, labelOffset, font = 15, 18, 12
	}
	for tick := 0; tick <= 100; tick += 20 {
		angle := angleFor(float64(tick))
		x1, y1 := polar(cx, cy, radius-inset, angle)
		x2, y2 := polar(cx, cy, radius+5, angle)
		canvas.Line(x1, y1, x2, y2, "stroke:#ffffff;stroke-width:2")
		tx, ty := polar(cx, cy, radius+labelOffset, angle)
		canvas.Text(tx, ty, fmt.Sprintf("%d%%", tick), fmt.Sprintf("font-size:%dpx;font-weight:bold;text-anchor:middle;dominant-baseline:middle;fill:#ffffff", font))
	}

	needleWidth := 8.0
	if large {
		needleWidth = 10
	}
	xs, ys := needlePolygon(cx, cy, radius-5, needleWidth, needle)
	canvas.Polygon(xs, ys, "fill:#000000;stroke:#ffffff;stroke-width:2")
	canvas.Circle(int(math.Round(cx)), int(math.Round(cy)), 10, "fill:#000000;stroke:#ffffff;stroke-width:3")
	canvas.Circle(int(math.Round(cx)), int(math.Round(cy)), 4, "fill:#ffffff")
	canvas.End()

	return template.HTML(buf.String()), nil
}

func angleFor(pct float64) float64 {
	return GaugeStartDeg + GaugeSweepDeg*pct/GaugeCeiling
}

func polar(cx, cy, r, deg float64) (int, int) {
	rad := deg * math.Pi / 180
	return int(math.Round(cx + r*math.Cos(rad))), int(math.Round(cy + r*math.Sin(rad)))
}

// needlePolygon returns a triangle pointing along deg, with its base just
// behind the hub.
func needlePolygon(cx, cy, length, width, deg float64) ([]int, []int) {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	point := func(along, across float64) (int, int) {
		x := cx + along*cos - across*sin
		y := cy + along*sin + across*cos
		return int(math.Round(x)), int(math.Round(y))
	}
	tx, ty := point(length, 0)
	ax, ay := point(-10, -width/2)
	bx, by := point(-10, width/2)
	return []int{tx, ax, bx}, []int{ty, ay, by}
}
