package mock

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/HaPhanBaoMinh/kubepulse/help"
	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

var (
	nodeNames = []string{"ip-10-0-1-5", "ip-10-0-1-12", "ip-10-0-2-3", "ip-10-0-2-7", "ip-10-0-3-2"}
	workloads = []struct{ name, ns string }{
		{"api", "default"}, {"worker", "default"}, {"cart", "shop"},
		{"redis", "shop"}, {"coredns", "kube-system"}, {"ingress", "kube-system"},
	}
	memCapacity = int64(8 << 30)
)

// Repo is a synthetic cluster whose pods come and go between snapshots.
type Repo struct {
	mu    sync.Mutex
	start time.Time
	rnd   *rand.Rand
	seq   int
	nodes []*node
}

type node struct {
	name string
	pods []*pod
}

type pod struct {
	id       int
	name, ns string
	status   string
	reqCPU   int64
	reqMem   int64
}

type Option func(*Repo)

// WithSeed makes the generated cluster reproducible.
func WithSeed(seed int64) Option {
	return func(r *Repo) { r.rnd = rand.New(rand.NewSource(seed)) }
}

// WithNodes sets how many nodes the cluster has, up to five.
func WithNodes(n int) Option {
	return func(r *Repo) {
		r.nodes = r.nodes[:max(0, min(n, len(r.nodes)))]
	}
}

func New(opts ...Option) *Repo {
	r := &Repo{
		start: time.Now(),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, name := range nodeNames {
		r.nodes = append(r.nodes, &node{name: name})
	}
	for _, o := range opts {
		o(r)
	}
	for _, n := range r.nodes {
		for i := 0; i < 3+r.rnd.Intn(4); i++ {
			n.pods = append(n.pods, r.newPod())
		}
	}
	return r
}

var _ domain.SnapshotSource = (*Repo)(nil)

// Snapshot mutates the cluster a little, then reports it.
func (r *Repo) Snapshot(ctx context.Context) (domain.ClusterData, error) {
	if err := ctx.Err(); err != nil {
		return domain.ClusterData{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.churn()

	out := domain.ClusterData{Nodes: make([]domain.Node, 0, len(r.nodes))}
	for i, n := range r.nodes {
		cpuCap := int64(2000)
		dn := domain.Node{
			ID:      "node-" + n.name,
			Name:    n.name,
			Status:  domain.NodeReady,
			Metrics: domain.ResourceMetrics{Capacity: cpuCap},
			Memory:  &domain.ResourceMetrics{Capacity: memCapacity},
			Pods:    make([]domain.Pod, 0, len(n.pods)),
		}
		for _, p := range n.pods {
			usage := int64(float64(p.reqCPU) * clamp(0.5+0.5*r.noise(i), 0.05, 1.4))
			mem := int64(float64(p.reqMem) * clamp(0.6+0.3*r.noise(i+10), 0.1, 1.2))
			dp := domain.Pod{
				ID:        fmt.Sprintf("pod-%d", p.id),
				Name:      p.name,
				Namespace: p.ns,
				Status:    p.status,
				Node:      dn.ID,
				Metrics: domain.PodMetrics{
					CPU:    domain.ResourceMetrics{Usage: usage, Requests: p.reqCPU, Limits: 2 * p.reqCPU},
					Memory: domain.ResourceMetrics{Usage: mem, Requests: p.reqMem, Limits: 2 * p.reqMem},
				},
			}
			dn.Pods = append(dn.Pods, dp)
			dn.Metrics.Usage += usage
			dn.Metrics.Requests += p.reqCPU
			dn.Metrics.Limits += 2 * p.reqCPU
			dn.Memory.Usage += mem
			dn.Memory.Requests += p.reqMem
		}
		dn.Metrics.Usage = min(dn.Metrics.Usage, cpuCap)
		if dn.Metrics.Usage > cpuCap*9/10 {
			dn.Status = domain.NodeNotReady
		}
		out.Nodes = append(out.Nodes, dn)
	}
	return out, nil
}

func (r *Repo) churn() {
	for _, n := range r.nodes {
		if len(n.pods) > 1 && r.rnd.Float64() < 0.2 {
			i := r.rnd.Intn(len(n.pods))
			n.pods = append(n.pods[:i], n.pods[i+1:]...)
		}
		if len(n.pods) < 12 && r.rnd.Float64() < 0.3 {
			n.pods = append(n.pods, r.newPod())
		}
		for _, p := range n.pods {
			switch {
			case p.status == domain.PodPending && r.rnd.Float64() < 0.6:
				p.status = domain.PodRunning
			case p.status == domain.PodRunning && r.rnd.Float64() < 0.02:
				p.status = domain.PodError
			}
		}
	}
}

func (r *Repo) newPod() *pod {
	r.seq++
	w := workloads[r.rnd.Intn(len(workloads))]
	return &pod{
		id:     r.seq,
		name:   fmt.Sprintf("%s-%05x", w.name, r.rnd.Intn(1<<20)),
		ns:     help.Coalesce(w.ns, "default"),
		status: domain.PodPending,
		reqCPU: int64(50 + 50*r.rnd.Intn(4)),
		reqMem: int64(64+64*r.rnd.Intn(4)) << 20,
	}
}

// noise wobbles in roughly [-1, 1] over time with per-seed jitter.
func (r *Repo) noise(seed int) float64 {
	t := time.Since(r.start).Seconds()
	return 0.7*math.Sin(t/7+float64(seed)) + 0.3*(r.rnd.Float64()*2-1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
