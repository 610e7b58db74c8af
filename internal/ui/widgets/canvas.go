package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Paint is the style of a single cell. It is comparable so runs of equal
// paint can be rendered with one style.
type Paint struct {
	FG, BG string
	Bold   bool
	Faint  bool
}

func (p Paint) style() lipgloss.Style {
	s := lipgloss.NewStyle().Bold(p.Bold).Faint(p.Faint)
	if p.FG != "" {
		s = s.Foreground(lipgloss.Color(p.FG))
	}
	if p.BG != "" {
		s = s.Background(lipgloss.Color(p.BG))
	}
	return s
}

type cell struct {
	r rune
	p Paint
}

// Canvas is a fixed-size grid of single-width cells. Writes outside the
// grid are dropped, so callers can draw partially visible shapes.
type Canvas struct {
	w, h  int
	cells []cell
}

func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 0), max(h, 0)
	c := &Canvas{w: w, h: h, cells: make([]cell, w*h)}
	c.Clear()
	return c
}

func (c *Canvas) Size() (int, int) { return c.w, c.h }

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
}

func (c *Canvas) Set(x, y int, r rune, p Paint) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{r: r, p: p}
}

// At returns the rune at (x, y), or 0 outside the grid.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	return c.cells[y*c.w+x].r
}

// Text writes s from (x, y), truncated with an ellipsis to at most width
// cells. Wide runes are replaced since each cell holds one column.
func (c *Canvas) Text(x, y int, s string, width int, p Paint) int {
	if width <= 0 {
		return 0
	}
	s = runewidth.Truncate(s, width, "…")
	n := 0
	for _, r := range s {
		if runewidth.RuneWidth(r) != 1 {
			r = '?'
		}
		c.Set(x+n, y, r, p)
		n++
	}
	return n
}

func (c *Canvas) Fill(x, y, w, h int, r rune, p Paint) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			c.Set(i, j, r, p)
		}
	}
}

// Box draws a rounded border around the w x h area at (x, y).
func (c *Canvas) Box(x, y, w, h int, p Paint) {
	if w < 2 || h < 2 {
		return
	}
	b := lipgloss.RoundedBorder()
	edge := func(s string) rune { return []rune(s)[0] }
	for i := x + 1; i < x+w-1; i++ {
		c.Set(i, y, edge(b.Top), p)
		c.Set(i, y+h-1, edge(b.Bottom), p)
	}
	for j := y + 1; j < y+h-1; j++ {
		c.Set(x, j, edge(b.Left), p)
		c.Set(x+w-1, j, edge(b.Right), p)
	}
	c.Set(x, y, edge(b.TopLeft), p)
	c.Set(x+w-1, y, edge(b.TopRight), p)
	c.Set(x, y+h-1, edge(b.BottomLeft), p)
	c.Set(x+w-1, y+h-1, edge(b.BottomRight), p)
}

// String is the canvas without styling, one line per row.
func (c *Canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < c.w; x++ {
			b.WriteRune(c.cells[y*c.w+x].r)
		}
	}
	return b.String()
}

// Render styles each run of equal paint once.
func (c *Canvas) Render() string {
	var b strings.Builder
	var run strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := c.cells[y*c.w : (y+1)*c.w]
		for i := 0; i < len(row); {
			p := row[i].p
			run.Reset()
			for ; i < len(row) && row[i].p == p; i++ {
				run.WriteRune(row[i].r)
			}
			if p == (Paint{}) {
				b.WriteString(run.String())
				continue
			}
			b.WriteString(p.style().Render(run.String()))
		}
	}
	return b.String()
}
