package domain

import "encoding/json"

// Subprotocol is offered by clients and selected by the server during the
// websocket handshake.
const Subprotocol = "kubepulse.v1"

// Wire discriminants.
const (
	MessageState = "state"
)

const (
	NodeReady    = "Ready"
	NodeNotReady = "NotReady"

	PodRunning = "running"
	PodPending = "pending"
	PodError   = "error"
)

type ResourceMetrics struct {
	Usage    int64 `json:"usage"`
	Requests int64 `json:"requests"`
	Limits   int64 `json:"limits"`
	Capacity int64 `json:"capacity"`
}

// UsageRatio is usage/capacity in [0,1]; zero capacity reads as 0.
func (r ResourceMetrics) UsageRatio() float64 {
	return Ratio(r.Usage, r.Capacity)
}

// RequestRatio is usage/requests, not clamped above 1 so callers can
// compare against thresholds. Zero requests reads as 0.
func (r ResourceMetrics) RequestRatio() float64 {
	if r.Requests <= 0 || r.Usage <= 0 {
		return 0
	}
	return float64(r.Usage) / float64(r.Requests)
}

type PodMetrics struct {
	CPU    ResourceMetrics `json:"cpu"`
	Memory ResourceMetrics `json:"memory"`
}

type Pod struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Namespace string     `json:"namespace"`
	Status    string     `json:"status"` // running, pending, error
	Node      string     `json:"node"`   // owning node id
	Metrics   PodMetrics `json:"metrics"`
}

type Node struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  string           `json:"status"`           // Ready, NotReady
	Metrics ResourceMetrics  `json:"metrics"`          // cpu, millicores
	Memory  *ResourceMetrics `json:"memory,omitempty"` // bytes; older sources omit it
	Pods    []Pod            `json:"pods"`
}

// MemoryMetrics returns the node memory resource, zero when the source
// did not report one.
func (n Node) MemoryMetrics() ResourceMetrics {
	if n.Memory == nil {
		return ResourceMetrics{}
	}
	return *n.Memory
}

// ClusterData is a complete snapshot; each one replaces the previous.
type ClusterData struct {
	Nodes []Node `json:"nodes"`
	// Rejected lists records the decoder could not read. They are not in
	// Nodes and are never sent.
	Rejected []Rejection `json:"-"`
}

// Rejection describes a node or pod record left out of a snapshot.
type Rejection struct {
	Kind   string // "node" or "pod"
	ID     string
	Field  string
	Reason string
}

// PodCount sums pods across nodes.
func (c ClusterData) PodCount() int {
	n := 0
	for _, node := range c.Nodes {
		n += len(node.Pods)
	}
	return n
}

// Envelope frames every message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewStateEnvelope wraps a snapshot for sending.
func NewStateEnvelope(c ClusterData) (Envelope, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: MessageState, Payload: raw}, nil
}

// Ratio returns num/den clamped to [0,1]. A non-positive denominator
// yields 0 rather than an invalid value.
func Ratio(num, den int64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	v := float64(num) / float64(den)
	if v > 1 {
		return 1
	}
	return v
}
