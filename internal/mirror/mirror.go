// Package mirror holds the latest cluster snapshot received from the stream.
package mirror

import (
	"sync/atomic"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

// Mirror owns the current snapshot. Readers get an immutable value; each
// Set replaces it wholesale and fires exactly one notification.
type Mirror struct {
	cur    atomic.Pointer[domain.ClusterData]
	notify func(domain.ClusterData)
}

// New returns an empty mirror. notify may be nil.
func New(notify func(domain.ClusterData)) *Mirror {
	return &Mirror{notify: notify}
}

// Set stores snapshot and notifies once. The caller must not mutate
// snapshot afterwards.
func (m *Mirror) Set(snapshot domain.ClusterData) {
	s := snapshot
	m.cur.Store(&s)
	if m.notify != nil {
		m.notify(s)
	}
}

// Get returns the held snapshot, or false before the first Set.
func (m *Mirror) Get() (domain.ClusterData, bool) {
	p := m.cur.Load()
	if p == nil {
		return domain.ClusterData{}, false
	}
	return *p, true
}
