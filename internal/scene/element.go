package scene

import (
	"sort"
	"time"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

type Color string

const (
	Green Color = "#4CAF50"
	Red   Color = "#f44336"
	Amber Color = "#FFC107"
	Blue  Color = "#2196F3"
)

// usageAlert is the fraction of requested CPU above which a pod is flagged.
const usageAlert = 0.8

// Animation interpolates opacity linearly between From and To.
type Animation struct {
	From, To float64
	Start    time.Time
	Duration time.Duration
}

func (a Animation) At(now time.Time) float64 {
	if a.Duration <= 0 || !now.Before(a.Start.Add(a.Duration)) {
		return a.To
	}
	if now.Before(a.Start) {
		return a.From
	}
	f := float64(now.Sub(a.Start)) / float64(a.Duration)
	return a.From + (a.To-a.From)*f
}

func (a Animation) Done(now time.Time) bool {
	return !now.Before(a.Start.Add(a.Duration))
}

type PodElement struct {
	ID          string
	Pod         domain.Pod
	Index       int
	StatusColor Color
	UsageColor  Color

	node    *NodeElement
	dx, dy  int
	anim    Animation
	exiting bool
}

// Bounds is the pod's box in scene coordinates; it follows its node.
func (p *PodElement) Bounds() Rect {
	nb := p.node.Bounds
	l := p.node.layout
	return Rect{X: nb.X + p.dx, Y: nb.Y + p.dy, W: l.PodWidth, H: l.PodHeight}
}

func (p *PodElement) Opacity(now time.Time) float64 { return p.anim.At(now) }
func (p *PodElement) Exiting() bool                 { return p.exiting }
func (p *PodElement) NodeID() string                { return p.node.ID }

func (p *PodElement) apply(pod domain.Pod, index int, l Layout) {
	p.Pod = pod
	p.Index = index
	p.dx, p.dy = l.podOffset(index)
	p.StatusColor = podStatusColor(pod.Status)
	p.UsageColor = Green
	if pod.Metrics.CPU.RequestRatio() > usageAlert {
		p.UsageColor = Red
	}
}

type NodeElement struct {
	ID          string
	Node        domain.Node
	Index       int
	Bounds      Rect
	BorderColor Color
	CPURatio    float64
	MemRatio    float64
	CPUBar      int // filled width out of Layout.BarWidth
	MemBar      int

	layout   Layout
	pods     map[string]*PodElement
	exiting  bool
	removeAt time.Time
}

func (n *NodeElement) Exiting() bool { return n.exiting }

func (n *NodeElement) Pod(id string) (*PodElement, bool) {
	p, ok := n.pods[id]
	return p, ok
}

// Pods returns live pods by ordinal followed by exiting ones, which keep
// their last grid slot until removed.
func (n *NodeElement) Pods() []*PodElement {
	out := make([]*PodElement, 0, len(n.pods))
	for _, p := range n.pods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].exiting != out[j].exiting {
			return !out[i].exiting
		}
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (n *NodeElement) apply(node domain.Node, index int) {
	n.Node = node
	n.Index = index
	n.Bounds = n.layout.nodeRect(index, len(node.Pods))
	n.BorderColor = Red
	if node.Status == domain.NodeReady {
		n.BorderColor = Green
	}
	n.CPURatio = node.Metrics.UsageRatio()
	n.MemRatio = node.MemoryMetrics().UsageRatio()
	n.CPUBar = n.layout.barFill(n.CPURatio)
	n.MemBar = n.layout.barFill(n.MemRatio)
}

func podStatusColor(status string) Color {
	switch status {
	case domain.PodRunning:
		return Green
	case domain.PodPending:
		return Amber
	default:
		return Red
	}
}
