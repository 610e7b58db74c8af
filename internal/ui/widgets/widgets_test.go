package widgets

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBar(t *testing.T) {
	assert.Equal(t, "██░░", Bar(0.5, 4))
	assert.Equal(t, "█░░░", Bar(0.01, 4), "non-zero shows at least one cell")
	assert.Equal(t, "░░░░", Bar(0, 4))
	assert.Equal(t, "████", Bar(3, 4))
	assert.Equal(t, "░░░░", Bar(math.NaN(), 4))
	assert.Equal(t, "", Bar(1, 0))
}

func TestGauge(t *testing.T) {
	assert.Equal(t, "███░░", Gauge(3, 5))
	assert.Equal(t, "░░", Gauge(-1, 2))
	assert.Equal(t, "██", Gauge(9, 2))
}

func TestSpark8(t *testing.T) {
	assert.Equal(t, "", Spark8(nil, 4))
	assert.Equal(t, "▁█", Spark8([]float64{0, 1}, 2))
	got := Spark8([]float64{0, 0.5, 1}, 6)
	assert.Equal(t, 6, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "▁"))
	assert.True(t, strings.HasSuffix(got, "█"))
}

func TestShade(t *testing.T) {
	assert.Equal(t, ' ', Shade(0))
	assert.Equal(t, '░', Shade(0.1))
	assert.Equal(t, '▒', Shade(0.5))
	assert.Equal(t, '█', Shade(1))
	assert.Equal(t, '█', Shade(7))
}

func TestCanvasBoxAndText(t *testing.T) {
	c := NewCanvas(8, 3)
	c.Box(0, 0, 8, 3, Paint{FG: "#4CAF50"})
	n := c.Text(1, 1, "node-with-long-name", 6, Paint{Bold: true})
	assert.Equal(t, 6, n)

	want := strings.Join([]string{
		"╭──────╮",
		"│node-…│",
		"╰──────╯",
	}, "\n")
	assert.Equal(t, want, c.String())
}

func TestCanvasClipsOutOfRange(t *testing.T) {
	c := NewCanvas(3, 2)
	require.NotPanics(t, func() {
		c.Set(-1, 0, 'x', Paint{})
		c.Set(3, 1, 'x', Paint{})
		c.Fill(-5, -5, 20, 20, '#', Paint{})
		c.Box(2, 1, 10, 10, Paint{})
	})
	assert.Equal(t, rune(0), c.At(9, 9))
	assert.Equal(t, '╭', c.At(2, 1))
	assert.Equal(t, '#', c.At(0, 0))
}

func TestCanvasRenderKeepsText(t *testing.T) {
	c := NewCanvas(6, 1)
	c.Text(0, 0, "ab", 2, Paint{FG: "#f44336"})
	c.Text(2, 0, "cd", 2, Paint{})
	out := c.Render()
	assert.Contains(t, out, "ab")
	assert.Contains(t, out, "cd  ")
}

func TestCanvasReplacesWideRunes(t *testing.T) {
	c := NewCanvas(4, 1)
	c.Text(0, 0, "a世", 4, Paint{})
	assert.Equal(t, "a?  ", c.String())
}

func TestEmptyCanvas(t *testing.T) {
	c := NewCanvas(-1, 3)
	w, h := c.Size()
	assert.Equal(t, 0, w)
	assert.Equal(t, 3, h)
	assert.Equal(t, "\n\n", c.String())
}
