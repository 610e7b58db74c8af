package app

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
	"github.com/HaPhanBaoMinh/kubepulse/internal/mirror"
	"github.com/HaPhanBaoMinh/kubepulse/internal/stream"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func pod(id, status string) domain.Pod {
	return domain.Pod{
		ID: id, Name: "pod-" + id, Namespace: "default", Status: status,
		Metrics: domain.PodMetrics{
			CPU:    domain.ResourceMetrics{Usage: 100, Requests: 200, Limits: 400},
			Memory: domain.ResourceMetrics{Usage: 64 << 20, Requests: 128 << 20},
		},
	}
}

func node(id string, pods ...domain.Pod) domain.Node {
	return domain.Node{
		ID: id, Name: "node-" + id, Status: domain.NodeReady,
		Metrics: domain.ResourceMetrics{Usage: 500, Capacity: 1000},
		Memory:  &domain.ResourceMetrics{Usage: 1 << 30, Capacity: 4 << 30},
		Pods:    pods,
	}
}

// publish stores a snapshot in the model's mirror and delivers the
// notification.
func publish(m Model, nodes ...domain.Node) (Model, tea.Cmd) {
	m.mirror.(*mirror.Mirror).Set(domain.ClusterData{Nodes: nodes})
	return update(m, SnapshotMsg{})
}

func newModel(t *testing.T, width int) (Model, *testingclock.FakePassiveClock) {
	t.Helper()
	clk := testingclock.NewFakePassiveClock(t0)
	m := New(WithClock(clk), WithSource("ws://example/ws"))
	m, _ = update(m, tea.WindowSizeMsg{Width: width, Height: 24})
	return m, clk
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func hover(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone}
}

var (
	tab      = tea.KeyMsg{Type: tea.KeyTab}
	shiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	esc      = tea.KeyMsg{Type: tea.KeyEsc}
)

// Screen coordinates with the terminal layout and a one line header:
// node "a" spans columns 1..24 from row 1; its first pod chip sits at
// columns 3..6 on row 5.
const (
	nodeX, nodeY = 3, 2
	podX, podY   = 4, 5
)

func TestShowsConnectingUntilFirstSnapshot(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = update(m, ConnStateMsg{State: stream.Connecting})
	assert.Equal(t, stream.Connecting, m.Connection())
	assert.Contains(t, m.View(), "Connecting to cluster...")

	m, _ = update(m, ConnStateMsg{State: stream.Connected})
	assert.Contains(t, m.View(), "Waiting for cluster state...")

	m, _ = publish(m, node("a", pod("1", domain.PodRunning)))
	view := m.View()
	assert.NotContains(t, view, "Waiting")
	assert.Contains(t, view, "node-a")
	assert.Contains(t, view, "CPU")
	assert.Contains(t, view, "nodes 1  pods 1")
}

func TestKeepsLastViewWhileDisconnected(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a"))
	m, _ = update(m, ConnStateMsg{State: stream.Disconnected})
	view := m.View()
	assert.Contains(t, view, "node-a")
	assert.Contains(t, view, "disconnected")
}

func TestEmptyCluster(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m)
	assert.Contains(t, m.View(), "No nodes reported")
}

func TestSpinnerStopsAfterFirstSnapshot(t *testing.T) {
	m, _ := newModel(t, 80)
	msg := m.spinner.Tick()
	_, cmd := update(m, msg)
	require.NotNil(t, cmd)

	m, _ = publish(m, node("a"))
	_, cmd = update(m, msg)
	assert.Nil(t, cmd)
}

func TestInitStartsManager(t *testing.T) {
	started := 0
	m := New(WithStart(func() { started++ }))
	cmd := m.Init()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c != nil {
			c()
		}
	}
	assert.Equal(t, 1, started)
}

func TestSnapshotsApplyInOrder(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a"), node("b"))
	m, _ = publish(m, node("b"))
	m, _ = publish(m, node("c"))

	assert.Equal(t, "c", m.Snapshot().Nodes[0].ID)
	c, ok := m.Scene().Node("c")
	require.True(t, ok)
	assert.Equal(t, 0, c.Index)
}

func TestAnimationFramesUntilSettled(t *testing.T) {
	m, clk := newModel(t, 80)
	m, cmd := publish(m, node("a", pod("1", domain.PodRunning)))
	require.NotNil(t, cmd, "entering pods schedule frames")

	// A second snapshot mid-animation does not schedule a second loop.
	_, again := publish(m, node("a", pod("1", domain.PodRunning)))
	assert.Nil(t, again)

	clk.SetTime(t0.Add(100 * time.Millisecond))
	m, cmd = update(m, frameMsg(clk.Now()))
	require.NotNil(t, cmd)

	clk.SetTime(t0.Add(time.Second))
	m, cmd = update(m, frameMsg(clk.Now()))
	assert.Nil(t, cmd)
	assert.False(t, m.ticking)

	m, cmd = publish(m, node("a"))
	require.NotNil(t, cmd, "exiting pods schedule frames")
	clk.SetTime(t0.Add(2 * time.Second))
	m, _ = update(m, frameMsg(clk.Now()))
	a, _ := m.Scene().Node("a")
	assert.Empty(t, a.Pods())
}

func TestHoverShowsSinglePanel(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a", pod("1", domain.PodRunning)))

	m, _ = update(m, hover(nodeX, nodeY))
	require.True(t, m.Panel().Visible())
	assert.Equal(t, Target{Node: "a"}, m.Panel().Target())
	assert.Equal(t, "node-a", m.Panel().Lines()[0])
	x, y := m.Panel().Position()
	assert.Equal(t, nodeX+2, x)
	assert.Equal(t, nodeY-headerHeight+1, y)

	m, _ = update(m, hover(podX, podY))
	assert.Equal(t, Target{Node: "a", Pod: "1"}, m.Panel().Target())
	assert.Equal(t, "pod-1", m.Panel().Lines()[0])
	assert.Contains(t, m.View(), "Namespace: default")

	m, _ = update(m, hover(0, nodeY))
	assert.False(t, m.Panel().Visible())
}

func TestPointerOutsideCanvasHidesPanel(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a"))
	m, _ = update(m, hover(nodeX, nodeY))
	require.True(t, m.Panel().Visible())
	m, _ = update(m, hover(nodeX, 0))
	assert.False(t, m.Panel().Visible())
}

func TestPanelFollowsUpdatesAndHidesWhenTargetLeaves(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a", pod("1", domain.PodRunning), pod("2", domain.PodRunning)))
	m, _ = update(m, hover(podX, podY))
	require.Contains(t, m.Panel().Lines(), "Status:    running")

	m, _ = publish(m, node("a", pod("1", domain.PodPending), pod("2", domain.PodRunning)))
	require.True(t, m.Panel().Visible())
	assert.Contains(t, m.Panel().Lines(), "Status:    pending")

	m, _ = publish(m, node("a", pod("2", domain.PodRunning)))
	assert.False(t, m.Panel().Visible())
}

func TestKeyboardFocusCycles(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a", pod("1", domain.PodRunning)), node("b"))

	m, _ = update(m, tab)
	assert.Equal(t, Target{Node: "a"}, m.Focus())
	assert.Equal(t, Target{Node: "a"}, m.Panel().Target())
	x, y := m.Panel().Position()
	assert.Equal(t, 1+24+1, x, "anchored right of the node")
	assert.Equal(t, 0, y)

	m, _ = update(m, tab)
	assert.Equal(t, Target{Node: "a", Pod: "1"}, m.Focus())
	m, _ = update(m, tab)
	assert.Equal(t, Target{Node: "b"}, m.Focus())
	m, _ = update(m, tab)
	assert.Equal(t, Target{Node: "a"}, m.Focus(), "wraps around")
	m, _ = update(m, shiftTab)
	assert.Equal(t, Target{Node: "b"}, m.Focus())

	m, _ = update(m, esc)
	assert.Equal(t, Target{}, m.Focus())
	assert.False(t, m.Panel().Visible())
}

func TestHoverReplacesFocus(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a", pod("1", domain.PodRunning)), node("b"))
	m, _ = update(m, tab)
	m, _ = update(m, tab)
	require.Equal(t, Target{Node: "a", Pod: "1"}, m.Focus())

	m, _ = update(m, hover(nodeX, nodeY))
	assert.Equal(t, Target{}, m.Focus())
	assert.Equal(t, Target{Node: "a"}, m.Panel().Target())
}

func TestFocusOnEmptySceneIsNoop(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = update(m, tab)
	assert.False(t, m.Panel().Visible())
}

func TestScrollAndFocusKeepNodeVisible(t *testing.T) {
	m, _ := newModel(t, 30)
	m, _ = publish(m, node("a"), node("b"), node("c"))

	right := tea.KeyMsg{Type: tea.KeyRight}
	left := tea.KeyMsg{Type: tea.KeyLeft}
	m, _ = update(m, right)
	assert.Equal(t, 26, m.Offset())
	m, _ = update(m, right)
	assert.Equal(t, 48, m.Offset(), "clamped to the scene extent")
	m, _ = update(m, left)
	assert.Equal(t, 22, m.Offset())
	m, _ = update(m, left)
	assert.Equal(t, 0, m.Offset())

	m, _ = update(m, shiftTab)
	require.Equal(t, Target{Node: "c"}, m.Focus())
	assert.Equal(t, 53+24-30, m.Offset())

	// Hit testing accounts for the scroll offset.
	m, _ = update(m, hover(53-m.Offset()+2, nodeY))
	assert.Equal(t, Target{Node: "c"}, m.Panel().Target())
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t, 80)
	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSkippedRecordsShowInHeader(t *testing.T) {
	m, _ := newModel(t, 120)
	m, _ = publish(m, node("a"), domain.Node{Name: "broken"})
	assert.Contains(t, m.View(), "1 records skipped")
}

func TestTrendsTrackLiveNodes(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a"), node("b"))
	m, _ = publish(m, node("a"))
	assert.Len(t, m.trends.get("a"), 2)
	assert.Empty(t, m.trends.get("b"))

	for i := 0; i < trendSamples+5; i++ {
		m, _ = publish(m, node("a"))
	}
	assert.Len(t, m.trends.get("a"), trendSamples)
}

func TestRendersFromMirror(t *testing.T) {
	mir := mirror.New(nil)
	m := New(WithMirror(mir), WithClock(testingclock.NewFakePassiveClock(t0)))
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})

	// A notification with nothing mirrored is ignored.
	m, _ = update(m, SnapshotMsg{})
	assert.Equal(t, 0, m.Scene().Len())
	assert.Contains(t, m.View(), "Connecting to cluster...")

	// Two snapshots land before the program catches up: both
	// notifications render the newest one.
	mir.Set(domain.ClusterData{Nodes: []domain.Node{node("a")}})
	mir.Set(domain.ClusterData{Nodes: []domain.Node{node("b")}})
	m, _ = update(m, SnapshotMsg{})
	m, _ = update(m, SnapshotMsg{})

	_, ok := m.Scene().Node("a")
	assert.False(t, ok)
	b, ok := m.Scene().Node("b")
	require.True(t, ok)
	assert.Equal(t, 0, b.Index)
	assert.Equal(t, "b", m.Snapshot().Nodes[0].ID)
	assert.Contains(t, m.View(), "nodes 1  pods 0")
}

func TestExitingNodeUnderLiveNodeIsNotDrawn(t *testing.T) {
	m, _ := newModel(t, 80)
	m, _ = publish(m, node("a"), node("b"))
	m, _ = publish(m, node("b"))

	a, ok := m.Scene().Node("a")
	require.True(t, ok)
	require.True(t, a.Exiting())
	view := m.View()
	assert.NotContains(t, view, "node-a")
	assert.Contains(t, view, "node-b")
}
