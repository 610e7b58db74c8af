// Package scene reconciles cluster snapshots against a persistent, keyed
// scene of node and pod elements. It knows nothing about how the scene is
// drawn; renderers read element geometry, colors and opacity from it.
package scene

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

// DefaultAnimation is the enter/exit fade duration.
const DefaultAnimation = 500 * time.Millisecond

// Diff lists what a Reconcile pass did, by id.
type Diff struct {
	NodesEntered, NodesUpdated, NodesExited []string
	PodsEntered, PodsUpdated, PodsExited    []string
	// Skipped holds one *RenderDataError per record left out of the pass.
	Skipped []error
}

// Churn counts enter and exit operations.
func (d Diff) Churn() int {
	return len(d.NodesEntered) + len(d.NodesExited) + len(d.PodsEntered) + len(d.PodsExited)
}

type Option func(*Scene)

func WithAnimation(d time.Duration) Option {
	return func(s *Scene) { s.duration = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Scene) { s.log = l }
}

// Scene is owned by a single goroutine; it is not safe for concurrent use.
type Scene struct {
	layout   Layout
	duration time.Duration
	log      *logrus.Entry
	nodes    map[string]*NodeElement
}

func New(layout Layout, opts ...Option) *Scene {
	s := &Scene{
		layout:   layout,
		duration: DefaultAnimation,
		log:      logrus.WithField("component", "scene"),
		nodes:    make(map[string]*NodeElement),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scene) Layout() Layout { return s.layout }

// Reconcile joins snapshot against the current scene by id: matched
// elements are updated in place, new ones enter, missing ones start to
// exit. The snapshot is only read.
func (s *Scene) Reconcile(snapshot domain.ClusterData, now time.Time) Diff {
	var diff Diff
	nodes, problems := sanitize(snapshot)
	for _, err := range problems {
		s.log.WithError(err).Warn("skipping malformed record")
	}
	diff.Skipped = problems

	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		seen[n.ID] = struct{}{}
		el, ok := s.nodes[n.ID]
		switch {
		case !ok:
			el = &NodeElement{ID: n.ID, layout: s.layout, pods: make(map[string]*PodElement)}
			s.nodes[n.ID] = el
			diff.NodesEntered = append(diff.NodesEntered, n.ID)
		default:
			el.exiting = false
			diff.NodesUpdated = append(diff.NodesUpdated, n.ID)
		}
		el.apply(n, i)
		s.joinPods(el, n.Pods, now, &diff)
	}

	for _, id := range s.sortedIDs() {
		el := s.nodes[id]
		if _, ok := seen[id]; ok || el.exiting {
			continue
		}
		el.exiting = true
		el.removeAt = now.Add(s.duration)
		diff.NodesExited = append(diff.NodesExited, id)
		for _, p := range el.Pods() {
			if !p.exiting {
				s.exitPod(p, now)
				diff.PodsExited = append(diff.PodsExited, p.ID)
			}
		}
	}
	return diff
}

func (s *Scene) joinPods(el *NodeElement, pods []domain.Pod, now time.Time, diff *Diff) {
	seen := make(map[string]struct{}, len(pods))
	for j, pod := range pods {
		seen[pod.ID] = struct{}{}
		p, ok := el.pods[pod.ID]
		switch {
		case !ok:
			p = &PodElement{
				ID:   pod.ID,
				node: el,
				anim: Animation{From: 0, To: 1, Start: now, Duration: s.duration},
			}
			el.pods[pod.ID] = p
			diff.PodsEntered = append(diff.PodsEntered, pod.ID)
		case p.exiting:
			// Came back before its exit finished: fade back in from where it is.
			p.exiting = false
			p.anim = Animation{From: p.Opacity(now), To: 1, Start: now, Duration: s.duration}
			diff.PodsUpdated = append(diff.PodsUpdated, pod.ID)
		default:
			diff.PodsUpdated = append(diff.PodsUpdated, pod.ID)
		}
		p.apply(pod, j, s.layout)
	}

	for _, p := range el.Pods() {
		if _, ok := seen[p.ID]; ok || p.exiting {
			continue
		}
		s.exitPod(p, now)
		diff.PodsExited = append(diff.PodsExited, p.ID)
	}
}

func (s *Scene) exitPod(p *PodElement, now time.Time) {
	p.exiting = true
	p.anim = Animation{From: p.Opacity(now), To: 0, Start: now, Duration: s.duration}
}

// Advance drops elements whose exit animation has finished and reports how
// many were removed.
func (s *Scene) Advance(now time.Time) int {
	removed := 0
	for id, n := range s.nodes {
		for pid, p := range n.pods {
			if p.exiting && p.anim.Done(now) {
				delete(n.pods, pid)
				removed++
			}
		}
		if n.exiting && !now.Before(n.removeAt) {
			removed += len(n.pods) + 1
			delete(s.nodes, id)
		}
	}
	return removed
}

// Animating reports whether any element is mid-transition or awaiting
// removal at now.
func (s *Scene) Animating(now time.Time) bool {
	for _, n := range s.nodes {
		if n.exiting {
			return true
		}
		for _, p := range n.pods {
			if p.exiting || !p.anim.Done(now) {
				return true
			}
		}
	}
	return false
}

// Nodes returns live nodes by ordinal, then exiting nodes.
func (s *Scene) Nodes() []*NodeElement {
	out := make([]*NodeElement, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
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

// Drawable returns the nodes to paint, bottom first: exiting nodes whose
// slot no live node has taken, then live nodes by ordinal.
func (s *Scene) Drawable() []*NodeElement {
	nodes := s.Nodes()
	var live, out []*NodeElement
	for _, n := range nodes {
		if !n.exiting {
			live = append(live, n)
		}
	}
	for _, n := range nodes {
		if n.exiting && !overlapsAny(n.Bounds, live) {
			out = append(out, n)
		}
	}
	return append(out, live...)
}

func overlapsAny(r Rect, nodes []*NodeElement) bool {
	for _, n := range nodes {
		if r.Overlaps(n.Bounds) {
			return true
		}
	}
	return false
}

func (s *Scene) Node(id string) (*NodeElement, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Len counts node elements, exiting ones included.
func (s *Scene) Len() int { return len(s.nodes) }

// Extent is the bounding box of every node element.
func (s *Scene) Extent() Rect {
	var r Rect
	for _, n := range s.nodes {
		b := n.Bounds
		r.W = max(r.W, b.X+b.W)
		r.H = max(r.H, b.Y+b.H)
	}
	return r
}

// HitTest returns the topmost element under (x, y): a pod if one contains
// the point, else its node. Exiting elements are not hit.
func (s *Scene) HitTest(x, y int) (*NodeElement, *PodElement) {
	for _, n := range s.Nodes() {
		if n.exiting || !n.Bounds.Contains(x, y) {
			continue
		}
		for _, p := range n.Pods() {
			if !p.exiting && p.Bounds().Contains(x, y) {
				return n, p
			}
		}
		return n, nil
	}
	return nil, nil
}

func (s *Scene) sortedIDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
