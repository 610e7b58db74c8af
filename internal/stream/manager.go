// Package stream keeps one logical streaming connection to the snapshot
// source alive and forwards decoded snapshots to a sink.
package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

// DefaultReconnectDelay is the fixed pause between a drop and the next dial.
const DefaultReconnectDelay = 5 * time.Second

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Conn is one established transport connection.
type Conn interface {
	// ReadFrame blocks for the next text frame.
	ReadFrame() ([]byte, error)
	// Close shuts the connection down cleanly and unblocks ReadFrame.
	// It may be called concurrently with ReadFrame.
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Sink receives snapshots in arrival order.
type Sink interface {
	Set(domain.ClusterData)
}

// TransportError is a failed dial or a dropped connection. It is always
// recovered by reconnecting.
type TransportError struct {
	Op  string // "dial" or "read"
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Cause() error  { return e.Err }

type Options struct {
	URL            string
	Dialer         Dialer
	Sink           Sink
	ReconnectDelay time.Duration
	Clock          clock.Clock
	// OnState is called from the manager goroutine on every transition.
	OnState func(State)
	Log     *logrus.Entry
}

// Manager runs the Disconnected -> Connecting -> Connected state machine.
// All connection events are handled on a single goroutine, so frames reach
// the sink strictly in arrival order.
type Manager struct {
	opts  Options
	log   *logrus.Entry
	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	log := opts.Log
	if log == nil {
		log = logrus.WithField("component", "stream")
	}
	return &Manager{opts: opts, log: log.WithField("url", opts.URL)}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Start moves Disconnected -> Connecting and begins dialing. It is a no-op
// while the manager is already running.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.setState(Connecting)
	go m.run(ctx, m.done)
}

// Stop closes a live connection, cancels any pending reconnect and waits for
// the manager goroutine to exit. Safe to call in any state, repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer m.setState(Disconnected)
	for {
		m.setState(Connecting)
		err := m.session(ctx)
		if ctx.Err() != nil {
			return
		}
		m.setState(Disconnected)
		if err != nil {
			m.log.WithError(err).Warn("stream connection lost")
		}
		if !m.wait(ctx) {
			return
		}
	}
}

// session dials, then reads until the connection fails or ctx ends.
func (m *Manager) session(ctx context.Context) error {
	m.log.Info("connecting")
	conn, err := m.opts.Dialer.Dial(ctx, m.opts.URL)
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}
	m.setState(Connected)
	m.log.Info("connected")

	closed := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(closed)
		m.close(conn)
	})
	defer func() {
		if stop() {
			m.close(conn)
		} else {
			<-closed
		}
	}()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Op: "read", Err: err}
		}
		m.handle(frame)
	}
}

func (m *Manager) handle(frame []byte) {
	snapshot, ok, err := Decode(frame)
	switch {
	case err != nil:
		m.log.WithError(err).Warn("dropping undecodable frame")
	case !ok:
		m.log.Debug("ignoring message of unknown type")
	default:
		m.opts.Sink.Set(snapshot)
	}
}

func (m *Manager) close(conn Conn) {
	if err := conn.Close(); err != nil {
		m.log.WithError(err).Debug("closing connection")
	}
}

// wait blocks for the reconnect delay. It returns false when ctx ends first,
// which also discards the pending timer.
func (m *Manager) wait(ctx context.Context) bool {
	t := m.opts.Clock.NewTimer(m.opts.ReconnectDelay)
	m.log.WithField("delay", m.opts.ReconnectDelay).Info("reconnect scheduled")
	select {
	case <-ctx.Done():
		t.Stop()
		return false
	case <-t.C():
		return true
	}
}

func (m *Manager) setState(s State) {
	if State(m.state.Swap(int32(s))) == s {
		return
	}
	m.log.WithField("state", s).Debug("state changed")
	if m.opts.OnState != nil {
		m.opts.OnState(s)
	}
}
