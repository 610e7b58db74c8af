package k8s

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

// Repo builds cluster snapshots from the core and metrics.k8s.io APIs.
type Repo struct {
	core    kubernetes.Interface
	metrics metricsclient.Interface
	log     *logrus.Entry
}

var _ domain.SnapshotSource = (*Repo)(nil)

func New(kubeconfigPath, contextName string) (*Repo, error) {
	cfg, err := loadRESTConfig(kubeconfigPath, contextName)
	if err != nil {
		return nil, errors.Wrap(err, "load kube config")
	}
	cfg.QPS = 30
	cfg.Burst = 60
	core, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create core client")
	}
	m, err := metricsclient.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics client")
	}
	return NewForClients(core, m), nil
}

func NewForClients(core kubernetes.Interface, m metricsclient.Interface) *Repo {
	return &Repo{core: core, metrics: m, log: logrus.WithField("component", "k8s")}
}

func loadRESTConfig(kubeconfigPath, contextName string) (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

// Snapshot lists nodes and scheduled pods and joins them with their usage.
// Usage degrades to zero when metrics-server is unavailable. Nodes are
// ordered by name and pods by namespace/name so layouts stay stable.
func (r *Repo) Snapshot(ctx context.Context) (domain.ClusterData, error) {
	nodes, err := r.core.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return domain.ClusterData{}, errors.Wrap(err, "list nodes")
	}
	pods, err := r.core.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return domain.ClusterData{}, errors.Wrap(err, "list pods")
	}

	nodeUsage := map[string]corev1.ResourceList{}
	if nms, err := r.metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{}); err != nil {
		r.log.WithError(err).Debug("node metrics unavailable")
	} else {
		for _, m := range nms.Items {
			nodeUsage[m.Name] = m.Usage
		}
	}

	podUsage := map[string]corev1.ResourceList{}
	if pms, err := r.metrics.MetricsV1beta1().PodMetricses("").List(ctx, metav1.ListOptions{}); err != nil {
		r.log.WithError(err).Debug("pod metrics unavailable")
	} else {
		for _, m := range pms.Items {
			podUsage[m.Namespace+"/"+m.Name] = sumContainers(m.Containers)
		}
	}

	byNode := map[string][]corev1.Pod{}
	for _, p := range pods.Items {
		if p.Spec.NodeName == "" {
			continue
		}
		byNode[p.Spec.NodeName] = append(byNode[p.Spec.NodeName], p)
	}

	items := nodes.Items
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	out := domain.ClusterData{Nodes: make([]domain.Node, 0, len(items))}
	for _, n := range items {
		cpuCap, memCap := capacity(n)
		u := nodeUsage[n.Name]
		node := domain.Node{
			ID:      string(n.UID),
			Name:    n.Name,
			Status:  nodeStatus(n),
			Metrics: domain.ResourceMetrics{Usage: milli(u, corev1.ResourceCPU), Capacity: cpuCap},
			Memory:  &domain.ResourceMetrics{Usage: value(u, corev1.ResourceMemory), Capacity: memCap},
			Pods:    []domain.Pod{},
		}

		onNode := byNode[n.Name]
		sort.Slice(onNode, func(i, j int) bool {
			if onNode[i].Namespace != onNode[j].Namespace {
				return onNode[i].Namespace < onNode[j].Namespace
			}
			return onNode[i].Name < onNode[j].Name
		})
		for _, p := range onNode {
			pod := podState(p, node.ID, podUsage[p.Namespace+"/"+p.Name])
			node.Pods = append(node.Pods, pod)
			node.Metrics.Requests += pod.Metrics.CPU.Requests
			node.Metrics.Limits += pod.Metrics.CPU.Limits
			node.Memory.Requests += pod.Metrics.Memory.Requests
			node.Memory.Limits += pod.Metrics.Memory.Limits
		}
		out.Nodes = append(out.Nodes, node)
	}
	return out, nil
}

func podState(p corev1.Pod, nodeID string, usage corev1.ResourceList) domain.Pod {
	req, lim := podResources(p)
	return domain.Pod{
		ID:        string(p.UID),
		Name:      p.Name,
		Namespace: p.Namespace,
		Status:    podStatus(p),
		Node:      nodeID,
		Metrics: domain.PodMetrics{
			CPU: domain.ResourceMetrics{
				Usage:    milli(usage, corev1.ResourceCPU),
				Requests: milli(req, corev1.ResourceCPU),
				Limits:   milli(lim, corev1.ResourceCPU),
			},
			Memory: domain.ResourceMetrics{
				Usage:    value(usage, corev1.ResourceMemory),
				Requests: value(req, corev1.ResourceMemory),
				Limits:   value(lim, corev1.ResourceMemory),
			},
		},
	}
}

// capacity prefers allocatable, which is what pods can actually use.
func capacity(n corev1.Node) (cpu, mem int64) {
	res := n.Status.Allocatable
	if len(res) == 0 {
		res = n.Status.Capacity
	}
	return milli(res, corev1.ResourceCPU), value(res, corev1.ResourceMemory)
}

func podResources(p corev1.Pod) (req, lim corev1.ResourceList) {
	req, lim = corev1.ResourceList{}, corev1.ResourceList{}
	for _, c := range p.Spec.Containers {
		addInto(req, c.Resources.Requests)
		addInto(lim, c.Resources.Limits)
	}
	return req, lim
}

func sumContainers(cs []metricsv1beta1.ContainerMetrics) corev1.ResourceList {
	total := corev1.ResourceList{}
	for _, c := range cs {
		addInto(total, c.Usage)
	}
	return total
}

func addInto(total, add corev1.ResourceList) {
	for res, q := range add {
		if cur, ok := total[res]; ok {
			cur.Add(q)
			total[res] = cur
		} else {
			total[res] = q.DeepCopy()
		}
	}
}

func milli(l corev1.ResourceList, name corev1.ResourceName) int64 {
	q, ok := l[name]
	if !ok {
		return 0
	}
	return q.MilliValue()
}

func value(l corev1.ResourceList, name corev1.ResourceName) int64 {
	q, ok := l[name]
	if !ok {
		return 0
	}
	return q.Value()
}

func nodeStatus(n corev1.Node) string {
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady {
			if c.Status == corev1.ConditionTrue {
				return domain.NodeReady
			}
			return domain.NodeNotReady
		}
	}
	return "Unknown"
}

func podStatus(p corev1.Pod) string {
	switch p.Status.Phase {
	case corev1.PodRunning:
		return domain.PodRunning
	case corev1.PodPending:
		return domain.PodPending
	default:
		return domain.PodError
	}
}
