package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/vlab/internal/viz"
)

// Point is one vertex of a plotted series.
type Point struct{ X, Y float64 }

// CanvasToSVG converts a braille canvas frame to SVG.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2   // 2 sub-pixels per char
	height := float64(canvas.Height) * scale * 4 // 4 sub-pixels per char

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff88">
`, width, height, width, height)

	dotRadius := scale * 0.4
	canvas.EachDot(func(x, y int) {
		cx := float64(x)*scale + scale/2
		cy := float64(y)*scale + scale/2
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
	})

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TraceToSVG plots column against time, with a dashed vertical line at each mark.
func TraceToSVG(t *Trace, column string, width, height int, strokeColor string) string {
	series := t.Series(column)
	if len(series) < 2 {
		return ""
	}
	points := make([]Point, len(series))
	for i, v := range series {
		points[i] = Point{X: t.Times[i], Y: v}
	}
	return plotSVG(points, t.Marks, width, height, strokeColor)
}

func plotSVG(points []Point, marks []Mark, width, height int, strokeColor string) string {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	sx := func(x float64) float64 { return (x - minX) / rangeX * float64(width) }
	sy := func(y float64) float64 { return float64(height) - (y-minY)/rangeY*float64(height) }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for _, m := range marks {
		x := sx(m.Time)
		fmt.Fprintf(&sb, "<line class=\"%s\" x1=\"%.1f\" y1=\"0\" x2=\"%.1f\" y2=\"%d\" stroke=\"#555555\" stroke-dasharray=\"4 4\"/>\n",
			m.Kind, x, x, height)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, p := range points {
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", sx(p.X), sy(p.Y))
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", sx(p.X), sy(p.Y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
