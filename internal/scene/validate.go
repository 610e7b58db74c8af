package scene

import (
	"fmt"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

// RenderDataError names a record that was left out of a render pass.
type RenderDataError struct {
	Kind   string // "node" or "pod"
	ID     string
	Field  string
	Reason string
}

func (e *RenderDataError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("%s %s: %s %s", e.Kind, id, e.Field, e.Reason)
}

func checkMetrics(kind, id, field string, m domain.ResourceMetrics) error {
	for _, f := range []struct {
		name string
		v    int64
	}{
		{"usage", m.Usage}, {"requests", m.Requests}, {"limits", m.Limits}, {"capacity", m.Capacity},
	} {
		if f.v < 0 {
			return &RenderDataError{Kind: kind, ID: id, Field: field + "." + f.name, Reason: "is negative"}
		}
	}
	return nil
}

func checkNode(n domain.Node) error {
	switch {
	case n.ID == "":
		return &RenderDataError{Kind: "node", Field: "id", Reason: "is missing"}
	case n.Name == "":
		return &RenderDataError{Kind: "node", ID: n.ID, Field: "name", Reason: "is missing"}
	case n.Status == "":
		return &RenderDataError{Kind: "node", ID: n.ID, Field: "status", Reason: "is missing"}
	}
	if err := checkMetrics("node", n.ID, "metrics", n.Metrics); err != nil {
		return err
	}
	if n.Memory != nil {
		return checkMetrics("node", n.ID, "memory", *n.Memory)
	}
	return nil
}

func checkPod(p domain.Pod) error {
	switch {
	case p.ID == "":
		return &RenderDataError{Kind: "pod", Field: "id", Reason: "is missing"}
	case p.Name == "":
		return &RenderDataError{Kind: "pod", ID: p.ID, Field: "name", Reason: "is missing"}
	case p.Status == "":
		return &RenderDataError{Kind: "pod", ID: p.ID, Field: "status", Reason: "is missing"}
	}
	if err := checkMetrics("pod", p.ID, "metrics.cpu", p.Metrics.CPU); err != nil {
		return err
	}
	return checkMetrics("pod", p.ID, "metrics.memory", p.Metrics.Memory)
}

// sanitize drops malformed records and earlier duplicates of an id (the
// last occurrence wins and keeps its own ordinal). Records the decoder
// already rejected are reported first. It never mutates the snapshot.
func sanitize(snapshot domain.ClusterData) ([]domain.Node, []error) {
	var problems []error
	for _, r := range snapshot.Rejected {
		problems = append(problems, &RenderDataError{Kind: r.Kind, ID: r.ID, Field: r.Field, Reason: r.Reason})
	}
	nodes := keepLast(snapshot.Nodes, func(n domain.Node) string { return n.ID }, func(id string) {
		problems = append(problems, &RenderDataError{Kind: "node", ID: id, Field: "id", Reason: "is duplicated; last one wins"})
	})

	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if err := checkNode(n); err != nil {
			problems = append(problems, err)
			continue
		}
		pods := keepLast(n.Pods, func(p domain.Pod) string { return p.ID }, func(id string) {
			problems = append(problems, &RenderDataError{Kind: "pod", ID: id, Field: "id", Reason: "is duplicated; last one wins"})
		})
		clean := make([]domain.Pod, 0, len(pods))
		for _, p := range pods {
			if err := checkPod(p); err != nil {
				problems = append(problems, err)
				continue
			}
			clean = append(clean, p)
		}
		n.Pods = clean
		out = append(out, n)
	}
	return out, problems
}

// keepLast filters out every element whose non-empty key reappears later.
func keepLast[T any](in []T, key func(T) string, dup func(string)) []T {
	last := make(map[string]int, len(in))
	for i, v := range in {
		if k := key(v); k != "" {
			last[k] = i
		}
	}
	out := make([]T, 0, len(in))
	for i, v := range in {
		if k := key(v); k != "" && last[k] != i {
			dup(k)
			continue
		}
		out = append(out, v)
	}
	return out
}
