// Package app is the terminal dashboard: a bubbletea model that reconciles
// incoming snapshots into a scene, draws it and handles pointer and
// keyboard interaction.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
	"github.com/HaPhanBaoMinh/kubepulse/internal/mirror"
	"github.com/HaPhanBaoMinh/kubepulse/internal/scene"
	"github.com/HaPhanBaoMinh/kubepulse/internal/stream"
	"github.com/HaPhanBaoMinh/kubepulse/internal/ui/styles"
	"github.com/HaPhanBaoMinh/kubepulse/internal/ui/widgets"
)

// SnapshotMsg tells the model the mirror holds a new snapshot. The model
// reads the mirror when it handles the message, so a burst of
// notifications never renders a stale snapshot.
type SnapshotMsg struct{}

// Mirror is the snapshot store the model renders from.
type Mirror interface {
	Get() (domain.ClusterData, bool)
}

// ConnStateMsg reports a connection state change.
type ConnStateMsg struct{ State stream.State }

type frameMsg time.Time

const (
	frameInterval = 33 * time.Millisecond
	headerHeight  = 1
	footerHeight  = 1
)

type Option func(*Model)

// WithStart runs fn once the program is running. Use it to start the
// connection manager so state callbacks never block on an idle program.
func WithStart(fn func()) Option {
	return func(m *Model) { m.start = fn }
}

func WithClock(c clock.PassiveClock) Option {
	return func(m *Model) { m.clock = c }
}

func WithLogger(l *logrus.Entry) Option {
	return func(m *Model) { m.log = l }
}

func WithMirror(r Mirror) Option {
	return func(m *Model) { m.mirror = r }
}

// WithSource sets the endpoint shown in the header.
func WithSource(url string) Option {
	return func(m *Model) { m.source = url }
}

type Model struct {
	scene   *scene.Scene
	panel   DetailPanel
	focus   Target
	trends  trends
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	mirror Mirror
	start  func()
	clock  clock.PassiveClock
	log    *logrus.Entry
	source string

	conn        stream.State
	hasSnapshot bool
	updated     time.Time
	skipped     int
	ticking     bool

	offsetX       int
	width, height int
}

func New(opts ...Option) Model {
	m := Model{
		trends:  trends{},
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		clock:   clock.RealClock{},
		log:     logrus.WithField("component", "app"),
		conn:    stream.Disconnected,
		mirror:  mirror.New(nil),
	}
	for _, o := range opts {
		o(&m)
	}
	m.scene = scene.New(scene.TerminalLayout(), scene.WithLogger(m.log.WithField("component", "scene")))
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if start := m.start; start != nil {
		cmds = append(cmds, func() tea.Msg {
			start()
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.offsetX = m.clampOffset(m.offsetX)
		return m, nil

	case ConnStateMsg:
		if msg.State != m.conn {
			m.log.WithField("state", msg.State).Info("connection state changed")
		}
		m.conn = msg.State
		return m, nil

	case SnapshotMsg:
		data, ok := m.mirror.Get()
		if !ok {
			return m, nil
		}
		return m.applySnapshot(data)

	case frameMsg:
		now := m.clock.Now()
		m.scene.Advance(now)
		if m.scene.Animating(now) {
			return m, m.frame()
		}
		m.ticking = false
		return m, nil

	case spinner.TickMsg:
		if m.hasSnapshot {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) applySnapshot(c domain.ClusterData) (tea.Model, tea.Cmd) {
	now := m.clock.Now()
	diff := m.scene.Reconcile(c, now)
	m.hasSnapshot = true
	m.updated = now
	m.skipped = len(diff.Skipped)
	m.trends.record(m.scene.Nodes())
	if diff.Churn() > 0 {
		m.log.WithFields(logrus.Fields{
			"nodes_entered": len(diff.NodesEntered),
			"nodes_exited":  len(diff.NodesExited),
			"pods_entered":  len(diff.PodsEntered),
			"pods_exited":   len(diff.PodsExited),
		}).Debug("scene changed")
	}

	m.refreshPanel()
	m.offsetX = m.clampOffset(m.offsetX)
	if !m.ticking && m.scene.Animating(now) {
		return m, m.frame()
	}
	return m, nil
}

func (m *Model) frame() tea.Cmd {
	m.ticking = true
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// refreshPanel rebuilds the panel content for its target, hiding it when
// the target is gone.
func (m *Model) refreshPanel() {
	if !m.panel.Visible() {
		return
	}
	t := m.panel.Target()
	lines, ok := m.describe(t)
	if !ok {
		m.panel.Hide()
		m.focus = Target{}
		return
	}
	x, y := m.panel.Position()
	if m.focus == t {
		x, y = m.anchor(t)
	}
	m.panel.Show(t, lines, x, y)
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelLeft:
		m.offsetX = m.clampOffset(m.offsetX - 3)
	case msg.Button == tea.MouseButtonWheelDown || msg.Button == tea.MouseButtonWheelRight:
		m.offsetX = m.clampOffset(m.offsetX + 3)
	case msg.Action == tea.MouseActionMotion,
		msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.pointAt(msg.X, msg.Y)
	}
	return m
}

// pointAt shows the panel for the element under the screen cell (x, y),
// or hides it over empty space. Pointer interaction replaces keyboard
// focus.
func (m *Model) pointAt(x, y int) {
	if !m.hasSnapshot {
		return
	}
	m.focus = Target{}
	if y < headerHeight || y >= headerHeight+m.bodyHeight() {
		m.panel.Hide()
		return
	}
	sx, sy := x+m.offsetX, y-headerHeight
	n, p := m.scene.HitTest(sx, sy)
	if n == nil {
		m.panel.Hide()
		return
	}
	t := Target{Node: n.ID}
	if p != nil {
		t.Pod = p.ID
	}
	lines, ok := m.describe(t)
	if !ok {
		m.panel.Hide()
		return
	}
	m.panel.Show(t, lines, sx+2, sy+1)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Clear):
		m.focus = Target{}
		m.panel.Hide()
	case key.Matches(msg, m.keys.Left):
		m.offsetX = m.clampOffset(m.offsetX - m.scene.Layout().NodePitch)
	case key.Matches(msg, m.keys.Right):
		m.offsetX = m.clampOffset(m.offsetX + m.scene.Layout().NodePitch)
	}
	return m, nil
}

func (m *Model) moveFocus(delta int) {
	t, ok := step(focusables(m.scene), m.focus, delta)
	if !ok {
		return
	}
	lines, _ := m.describe(t)
	m.focus = t
	x, y := m.anchor(t)
	m.panel.Show(t, lines, x, y)
	if n, ok := m.scene.Node(t.Node); ok {
		m.offsetX = m.clampOffset(scrollTo(m.offsetX, n.Bounds.X, n.Bounds.W, m.width))
	}
}

func (m Model) bodyHeight() int {
	return max(m.height-headerHeight-footerHeight, 1)
}

func (m Model) clampOffset(off int) int {
	limit := m.scene.Extent().W + 1 - m.width
	return clamp(off, 0, max(limit, 0))
}

func (m Model) Panel() DetailPanel       { return m.panel }
func (m Model) Focus() Target            { return m.focus }
func (m Model) Scene() *scene.Scene      { return m.scene }
func (m Model) Offset() int              { return m.offsetX }
func (m Model) Connection() stream.State { return m.conn }

// Snapshot is the mirrored snapshot the scene renders.
func (m Model) Snapshot() domain.ClusterData {
	data, _ := m.mirror.Get()
	return data
}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	footer := styles.Footer.Render(m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), m.body(), footer)
}

func (m Model) header() string {
	var state string
	switch m.conn {
	case stream.Connected:
		state = styles.Good.Render("● connected")
	case stream.Connecting:
		state = styles.Warn.Render("● connecting")
	default:
		state = styles.Danger.Render("● disconnected")
	}
	parts := []string{styles.Title.Render("kubepulse"), state}
	if m.source != "" {
		parts = append(parts, m.source)
	}
	if snap, ok := m.mirror.Get(); ok && m.hasSnapshot {
		parts = append(parts,
			fmt.Sprintf("nodes %d  pods %d", len(snap.Nodes), snap.PodCount()),
			"updated "+m.updated.Format("15:04:05"))
	}
	if m.skipped > 0 {
		parts = append(parts, styles.Warn.Render(fmt.Sprintf("%d records skipped", m.skipped)))
	}
	return styles.Header.MaxWidth(m.width).Render(strings.Join(parts, " │ "))
}

func (m Model) body() string {
	h := m.bodyHeight()
	if !m.hasSnapshot {
		msg := "Connecting to cluster..."
		switch m.conn {
		case stream.Connected:
			msg = "Waiting for cluster state..."
		case stream.Disconnected:
			msg = "Disconnected, retrying..."
		}
		return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, m.spinner.View()+" "+msg)
	}
	if m.scene.Len() == 0 {
		return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, styles.Faint.Render("No nodes reported"))
	}

	c := widgets.NewCanvas(m.width, h)
	p := painter{c: c, layout: m.scene.Layout(), offsetX: m.offsetX, now: m.clock.Now(), active: m.panel.Target()}
	p.drawScene(m.scene)
	p.drawPanel(m.panel)
	return c.Render()
}
