package scene

// Rect is an axis-aligned box in scene units.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Layout fixes the grid geometry. Nodes sit left to right by ordinal; pods
// wrap inside their node in PodColumns columns by ordinal.
type Layout struct {
	OriginX, OriginY      int
	NodePitch             int // distance between consecutive node origins
	NodeWidth, NodeHeight int // NodeHeight is a minimum; nodes grow with pods
	BarWidth              int // full-scale usage bar

	PodColumns           int
	PodPitchX, PodPitchY int
	PodPadX, PodTop      int // offset of the first pod inside its node
	PodWidth, PodHeight  int
	PodBottom            int // space kept under the last pod row
}

// CanvasLayout is the pixel layout of the web dashboard: 200x150 nodes
// every 220 units, 40x40 pods on a 45 unit grid, four per row.
func CanvasLayout() Layout {
	return Layout{
		OriginX: 20, OriginY: 20,
		NodePitch: 220, NodeWidth: 200, NodeHeight: 150,
		BarWidth:   180,
		PodColumns: 4, PodPitchX: 45, PodPitchY: 45,
		PodPadX: 10, PodTop: 70,
		PodWidth: 40, PodHeight: 40,
		PodBottom: 10,
	}
}

// TerminalLayout measures in character cells. A node is a 24 column box
// with two gauge rows and a status row above its pods; each pod is a four
// cell chip, four per line.
func TerminalLayout() Layout {
	return Layout{
		OriginX: 1, OriginY: 0,
		NodePitch: 26, NodeWidth: 24, NodeHeight: 6,
		BarWidth:   12,
		PodColumns: 4, PodPitchX: 5, PodPitchY: 1,
		PodPadX: 2, PodTop: 4,
		PodWidth: 4, PodHeight: 1,
		PodBottom: 1,
	}
}

func (l Layout) columns() int {
	if l.PodColumns <= 0 {
		return 1
	}
	return l.PodColumns
}

func (l Layout) nodeRect(index, pods int) Rect {
	h := l.NodeHeight
	if rows := (pods + l.columns() - 1) / l.columns(); rows > 0 {
		h = max(h, l.PodTop+rows*l.PodPitchY+l.PodBottom)
	}
	return Rect{X: index*l.NodePitch + l.OriginX, Y: l.OriginY, W: l.NodeWidth, H: h}
}

// podOffset is relative to the owning node's origin.
func (l Layout) podOffset(index int) (int, int) {
	return (index%l.columns())*l.PodPitchX + l.PodPadX, (index/l.columns())*l.PodPitchY + l.PodTop
}

func (l Layout) barFill(ratio float64) int {
	return int(ratio*float64(l.BarWidth) + 0.5)
}
