package app

import "github.com/HaPhanBaoMinh/kubepulse/internal/scene"

// trendSamples bounds the per-node CPU history shown in the detail panel.
const trendSamples = 60

// clamp clamps v into [min, max].
func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

type trends map[string][]float64

// record appends each live node's CPU ratio and forgets nodes that left.
func (t trends) record(nodes []*scene.NodeElement) {
	live := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Exiting() {
			continue
		}
		live[n.ID] = struct{}{}
		s := append(t[n.ID], n.CPURatio)
		if len(s) > trendSamples {
			s = s[len(s)-trendSamples:]
		}
		t[n.ID] = s
	}
	for id := range t {
		if _, ok := live[id]; !ok {
			delete(t, id)
		}
	}
}

func (t trends) get(id string) []float64 { return t[id] }

// focusables lists live elements in keyboard order: each node followed by
// its pods.
func focusables(s *scene.Scene) []Target {
	var out []Target
	for _, n := range s.Nodes() {
		if n.Exiting() {
			continue
		}
		out = append(out, Target{Node: n.ID})
		for _, p := range n.Pods() {
			if !p.Exiting() {
				out = append(out, Target{Node: n.ID, Pod: p.ID})
			}
		}
	}
	return out
}

// step moves delta places from cur, wrapping. An unknown cur starts at the
// first element going forward and the last going back.
func step(list []Target, cur Target, delta int) (Target, bool) {
	if len(list) == 0 {
		return Target{}, false
	}
	at := -1
	for i, t := range list {
		if t == cur {
			at = i
			break
		}
	}
	if at < 0 {
		if delta < 0 {
			return list[len(list)-1], true
		}
		return list[0], true
	}
	n := len(list)
	return list[((at+delta)%n+n)%n], true
}

// scrollTo returns the smallest offset change that brings [x, x+w) into a
// viewport of the given width.
func scrollTo(offset, x, w, width int) int {
	switch {
	case x < offset:
		return max(x-1, 0)
	case x+w > offset+width:
		return x + w - width
	}
	return offset
}
