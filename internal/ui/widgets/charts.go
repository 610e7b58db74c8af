package widgets

import (
	"math"
	"strings"
)

var blocks = []rune("▁▂▃▄▅▆▇█")

// shades maps opacity to glyph density, transparent first.
var shades = []rune(" ░▒▓█")

// Spark8 samples vals evenly into width block glyphs.
func Spark8(vals []float64, width int) string {
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	step := float64(len(vals)) / float64(width)
	var b strings.Builder
	for i := 0; i < width; i++ {
		idx := int(math.Min(float64(len(vals)-1), math.Floor(float64(i)*step)))
		level := int(math.Round(clamp01(vals[idx]) * float64(len(blocks)-1)))
		b.WriteRune(blocks[level])
	}
	return b.String()
}

// Bar renders v in [0,1] as a left-filled bar. Any non-zero value shows
// at least one cell.
func Bar(v float64, width int) string {
	if width <= 0 {
		return ""
	}
	v = clamp01(v)
	fill := int(math.Round(v * float64(width)))
	if v > 0 && fill == 0 {
		fill = 1
	}
	return Gauge(fill, width)
}

// Gauge renders a precomputed fill count out of width.
func Gauge(fill, width int) string {
	if width <= 0 {
		return ""
	}
	fill = max(0, min(fill, width))
	return strings.Repeat("█", fill) + strings.Repeat("░", width-fill)
}

// Shade picks a glyph whose density follows opacity in [0,1].
func Shade(opacity float64) rune {
	i := int(math.Ceil(clamp01(opacity) * float64(len(shades)-1)))
	return shades[i]
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
