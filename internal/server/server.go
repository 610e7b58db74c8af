// Package server publishes cluster snapshots to websocket clients as
// "state" envelopes.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultPingInterval = 30 * time.Second

	// writeWait bounds every frame and control write.
	writeWait       = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Source       domain.SnapshotSource
	Interval     time.Duration
	PingInterval time.Duration
	Clock        clock.WithTicker
	Log          *logrus.Entry
}

type Server struct {
	source   domain.SnapshotSource
	interval time.Duration
	ping     time.Duration
	clock    clock.WithTicker
	log      *logrus.Entry
	hub      *Hub
	upgrader websocket.Upgrader
}

func New(o Options) *Server {
	s := &Server{
		source:   o.Source,
		interval: o.Interval,
		ping:     o.PingInterval,
		clock:    o.Clock,
		log:      o.Log,
		hub:      NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{domain.Subprotocol},
			// Dashboards are served from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.ping <= 0 {
		s.ping = DefaultPingInterval
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.log == nil {
		s.log = logrus.WithField("component", "server")
	}
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// Poll takes one snapshot and publishes it.
func (s *Server) Poll(ctx context.Context) error {
	data, err := s.source.Snapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "take snapshot")
	}
	env, err := domain.NewStateEnvelope(data)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	s.hub.Publish(frame)
	s.log.WithFields(logrus.Fields{
		"nodes":       len(data.Nodes),
		"pods":        data.PodCount(),
		"subscribers": s.hub.Len(),
	}).Debug("published snapshot")
	return nil
}

// Run polls immediately and then every interval until ctx is done. A
// failed poll is logged and retried on the next tick.
func (s *Server) Run(ctx context.Context) error {
	t := s.clock.NewTicker(s.interval)
	defer t.Stop()
	for {
		if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("poll failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C():
		}
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Live websocket handlers end with ctx; Shutdown does not wait for
		// hijacked connections.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.WithField("addr", ln.Addr().String()).Info("serving")

	select {
	case err := <-errc:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "not a websocket handshake", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	log := s.log.WithField("remote-addr", conn.RemoteAddr().String())
	log.Info("client connected")
	defer log.Info("client disconnected")

	frames, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// Reads only serve control frames; an error means the peer is gone.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sent := s.hub.Last()
	if sent == nil {
		if err := s.Poll(r.Context()); err != nil {
			log.WithError(err).Warn("initial snapshot unavailable")
		}
		sent = s.hub.Last()
	}
	if sent != nil {
		if err := s.write(conn, sent); err != nil {
			log.WithError(err).Debug("send initial snapshot")
			return
		}
	}

	ping := s.clock.NewTicker(s.ping)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-gone:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if bytes.Equal(frame, sent) {
				continue
			}
			if err := s.write(conn, frame); err != nil {
				log.WithError(err).Debug("send snapshot")
				return
			}
			sent = frame
		case <-ping.C():
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Debug("send ping")
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
