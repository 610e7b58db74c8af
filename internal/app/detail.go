package app

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/HaPhanBaoMinh/kubepulse/internal/scene"
	"github.com/HaPhanBaoMinh/kubepulse/internal/ui/widgets"
)

// Target identifies the element a panel describes. Pod is empty for nodes.
type Target struct {
	Node, Pod string
}

func (t Target) IsPod() bool { return t.Pod != "" }

// DetailPanel is the single floating panel. Showing it for one element
// replaces whatever it showed before.
type DetailPanel struct {
	visible bool
	target  Target
	x, y    int
	lines   []string
}

func (d *DetailPanel) Show(t Target, lines []string, x, y int) {
	d.visible = true
	d.target = t
	d.lines = lines
	d.x, d.y = x, y
}

func (d *DetailPanel) Hide() {
	*d = DetailPanel{}
}

func (d DetailPanel) Visible() bool        { return d.visible }
func (d DetailPanel) Target() Target       { return d.target }
func (d DetailPanel) Position() (int, int) { return d.x, d.y }
func (d DetailPanel) Lines() []string      { return d.lines }

// Size is the panel's outer size in cells, border included.
func (d DetailPanel) Size() (int, int) {
	w := 0
	for _, l := range d.lines {
		w = max(w, len([]rune(l)))
	}
	return w + 4, len(d.lines) + 2
}

func NodeDetail(n *scene.NodeElement, trend []float64) []string {
	mem := n.Node.MemoryMetrics()
	lines := []string{
		n.Node.Name,
		"Status:  " + n.Node.Status,
		fmt.Sprintf("CPU:     %s / %s (%.0f%%)", millicores(n.Node.Metrics.Usage), millicores(n.Node.Metrics.Capacity), n.CPURatio*100),
		fmt.Sprintf("Memory:  %s / %s (%.0f%%)", bytes(mem.Usage), bytes(mem.Capacity), n.MemRatio*100),
		fmt.Sprintf("Pods:    %d", len(n.Node.Pods)),
	}
	if len(trend) > 1 {
		lines = append(lines, "Trend:   "+widgets.Spark8(trend, 16))
	}
	return lines
}

func PodDetail(p *scene.PodElement, nodeName string) []string {
	cpu, mem := p.Pod.Metrics.CPU, p.Pod.Metrics.Memory
	lines := []string{
		p.Pod.Name,
		"Namespace: " + p.Pod.Namespace,
		"Status:    " + p.Pod.Status,
		"Node:      " + nodeName,
		fmt.Sprintf("CPU:       %s (req %s, lim %s)", millicores(cpu.Usage), millicores(cpu.Requests), millicores(cpu.Limits)),
		fmt.Sprintf("Memory:    %s (req %s, lim %s)", bytes(mem.Usage), bytes(mem.Requests), bytes(mem.Limits)),
	}
	if r := cpu.RequestRatio(); r > 0 {
		lines = append(lines, fmt.Sprintf("CPU/req:   %.0f%%", r*100))
	}
	return lines
}

func millicores(v int64) string {
	return fmt.Sprintf("%dm", v)
}

func bytes(v int64) string {
	if v <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(v))
}

// describe builds the panel content for t from the current scene.
func (m Model) describe(t Target) ([]string, bool) {
	n, ok := m.scene.Node(t.Node)
	if !ok || n.Exiting() {
		return nil, false
	}
	if !t.IsPod() {
		return NodeDetail(n, m.trends.get(n.ID)), true
	}
	p, ok := n.Pod(t.Pod)
	if !ok || p.Exiting() {
		return nil, false
	}
	return PodDetail(p, n.Node.Name), true
}

// anchor is where a keyboard-focused panel sits: just right of its element.
func (m Model) anchor(t Target) (int, int) {
	n, _ := m.scene.Node(t.Node)
	b := n.Bounds
	if t.IsPod() {
		if p, ok := n.Pod(t.Pod); ok {
			b = p.Bounds()
		}
	}
	return b.X + b.W + 1, b.Y
}
