package app

import (
	"fmt"
	"time"

	"github.com/HaPhanBaoMinh/kubepulse/internal/scene"
	"github.com/HaPhanBaoMinh/kubepulse/internal/ui/styles"
	"github.com/HaPhanBaoMinh/kubepulse/internal/ui/widgets"
)

const (
	cpuBarColor = string(scene.Blue)
	memBarColor = string(scene.Green)
)

type painter struct {
	c       *widgets.Canvas
	layout  scene.Layout
	offsetX int
	now     time.Time
	active  Target
}

func (p painter) x(sx int) int { return sx - p.offsetX }

// drawScene paints exiting nodes first so live ones that took their slot
// stay on top.
func (p painter) drawScene(s *scene.Scene) {
	for _, n := range s.Drawable() {
		p.drawNode(n)
	}
}

func (p painter) drawNode(n *scene.NodeElement) {
	b := n.Bounds
	x, y := p.x(b.X), b.Y
	border := widgets.Paint{FG: string(n.BorderColor), Faint: n.Exiting()}
	if p.active == (Target{Node: n.ID}) {
		border.Bold = true
	}
	p.c.Fill(x+1, y+1, b.W-2, b.H-2, ' ', widgets.Paint{})
	p.c.Box(x, y, b.W, b.H, border)
	p.c.Text(x+2, y, " "+n.Node.Name+" ", b.W-4, widgets.Paint{Bold: true, Faint: n.Exiting()})

	p.gauge(x+1, y+1, "CPU", n.CPUBar, n.CPURatio, cpuBarColor)
	p.gauge(x+1, y+2, "MEM", n.MemBar, n.MemRatio, memBarColor)
	status := fmt.Sprintf("%s · %d pods", n.Node.Status, len(n.Node.Pods))
	p.c.Text(x+1, y+3, status, b.W-2, widgets.Paint{FG: string(n.BorderColor)})

	for _, pod := range n.Pods() {
		p.drawPod(pod)
	}
}

// gauge draws "CPU ████░░░░  42%" starting at (x, y).
func (p painter) gauge(x, y int, label string, fill int, ratio float64, color string) {
	p.c.Text(x, y, label, 3, widgets.Paint{FG: styles.Panel})
	bar := widgets.Gauge(fill, p.layout.BarWidth)
	p.c.Text(x+4, y, bar, p.layout.BarWidth, widgets.Paint{FG: color})
	p.c.Text(x+5+p.layout.BarWidth, y, fmt.Sprintf("%3.0f%%", ratio*100), 4, widgets.Paint{})
}

// drawPod renders a chip: brackets in the usage color, body shaded by
// opacity in the status color.
func (p painter) drawPod(pod *scene.PodElement) {
	o := pod.Opacity(p.now)
	if o <= 0 {
		return
	}
	b := pod.Bounds()
	x := p.x(b.X)
	bold := p.active == (Target{Node: pod.NodeID(), Pod: pod.ID})
	body := widgets.Paint{FG: string(pod.StatusColor), Bold: bold}
	edge := widgets.Paint{FG: string(pod.UsageColor), Bold: bold, Faint: o < 1}
	glyph := widgets.Shade(o)
	for j := 0; j < b.H; j++ {
		p.c.Set(x, b.Y+j, '[', edge)
		for i := 1; i < b.W-1; i++ {
			p.c.Set(x+i, b.Y+j, glyph, body)
		}
		p.c.Set(x+b.W-1, b.Y+j, ']', edge)
	}
}

// drawPanel places the panel at its scene position, shifted to stay on
// screen.
func (p painter) drawPanel(d DetailPanel) {
	if !d.Visible() {
		return
	}
	cw, ch := p.c.Size()
	w, h := d.Size()
	px, py := d.Position()
	x := clamp(p.x(px), 0, max(cw-w, 0))
	y := clamp(py, 0, max(ch-h, 0))

	p.c.Fill(x, y, w, h, ' ', widgets.Paint{})
	p.c.Box(x, y, w, h, widgets.Paint{FG: styles.Panel})
	for i, line := range d.Lines() {
		paint := widgets.Paint{}
		if i == 0 {
			paint.Bold = true
		}
		p.c.Text(x+2, y+1+i, line, w-4, paint)
	}
}
