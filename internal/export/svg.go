// Package export renders sampled curves as standalone SVG documents.
package export

import (
	"fmt"
	"math"
	"strings"
)

// Curve is one polyline with its stroke color.
type Curve struct {
	X     []float64
	Y     []float64
	Color string
}

// CurvesToSVG creates an SVG plot from one or more curves sharing an axis
// range. Non-finite samples break the path and resume at the next finite
// point.
func CurvesToSVG(curves []Curve, width, height int, title string) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range curves {
		for i := range c.X {
			if !finite(c.X[i]) || !finite(c.Y[i]) {
				continue
			}
			minX = math.Min(minX, c.X[i])
			maxX = math.Max(maxX, c.X[i])
			minY = math.Min(minY, c.Y[i])
			maxY = math.Max(maxY, c.Y[i])
		}
	}
	if minX > maxX || minY > maxY {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="16" fill="#aaaaaa" font-family="monospace" font-size="12">%s</text>
`, 8, title))
	}

	for _, c := range curves {
		color := c.Color
		if color == "" {
			color = "#00ff88"
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, color))

		pen := false
		for i := range c.X {
			if !finite(c.X[i]) || !finite(c.Y[i]) {
				pen = false
				continue
			}
			x := (c.X[i] - minX) / rangeX * float64(width)
			y := float64(height) - (c.Y[i]-minY)/rangeY*float64(height)
			if !pen {
				sb.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
				pen = true
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
