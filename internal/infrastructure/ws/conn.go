// Package ws adapts github.com/gorilla/websocket to the stream transport.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
	"github.com/HaPhanBaoMinh/kubepulse/internal/stream"
)

const (
	handshakeTimeout = 10 * time.Second
	// readTimeout bounds silence from the source; it pings every 30s.
	readTimeout = 90 * time.Second
	closeWait   = 5 * time.Second
	maxFrame    = 64 * 1024 * 1024
)

// Dialer opens websocket connections to the snapshot source.
type Dialer struct {
	d *websocket.Dialer
}

func NewDialer() *Dialer {
	return &Dialer{d: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{domain.Subprotocol},
	}}
}

func (d *Dialer) Dial(ctx context.Context, url string) (stream.Conn, error) {
	c, resp, err := d.d.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dialing %s: %s", url, resp.Status)
		}
		return nil, errors.Wrapf(err, "dialing %s", url)
	}
	return Wrap(c), nil
}

// Conn is a client connection that only reads.
type Conn struct {
	conn *websocket.Conn

	closeOnce sync.Once
	closeErr  error
}

// Wrap takes ownership of c.
func Wrap(c *websocket.Conn) *Conn {
	c.SetReadLimit(maxFrame)
	_ = c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPingHandler(func(data string) error {
		_ = c.SetReadDeadline(time.Now().Add(readTimeout))
		err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	return &Conn{conn: c}
}

// ReadFrame returns the next data frame.
func (c *Conn) ReadFrame() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	return msg, nil
}

// Close sends a normal-closure frame and closes the socket. Safe to call
// concurrently with ReadFrame and more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		var result *multierror.Error
		err := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"),
			time.Now().Add(closeWait),
		)
		if err != nil && err != websocket.ErrCloseSent {
			result = multierror.Append(result, errors.Wrap(err, "sending close"))
		}
		if err := c.conn.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "closing underlying conn"))
		}
		c.closeErr = result.ErrorOrNil()
	})
	return c.closeErr
}
