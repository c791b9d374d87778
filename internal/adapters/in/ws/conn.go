package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"tracking/internal/adapters/wire"
	"tracking/internal/core/ports"

	"github.com/gorilla/websocket"
)

var errNotUpgraded = errors.New("connection was never upgraded")

// Conn is the outbound half of a websocket session. It exists before the
// upgrade so the session can be authenticated first; Send waits until the
// websocket is attached or the connection is closed.
type Conn struct {
	ready     chan struct{}
	readyOnce sync.Once
	ws        *websocket.Conn
	codec     wire.Codec

	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
}

func newConn(writeTimeout time.Duration) *Conn {
	return &Conn{
		ready:        make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (c *Conn) attach(ws *websocket.Conn, codec wire.Codec) {
	c.readyOnce.Do(func() {
		c.ws = ws
		c.codec = codec
		close(c.ready)
	})
}

// Send encodes the frame with the negotiated codec and writes it.
func (c *Conn) Send(ctx context.Context, frame ports.Frame) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if c.ws == nil {
		return errNotUpgraded
	}

	msg, err := wire.FromFrame(frame)
	if err != nil {
		return err
	}
	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}

	messageType := websocket.TextMessage
	if c.codec.Binary() {
		messageType = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

// Close sends a normal closure and closes the socket. Safe to call before the
// upgrade and more than once.
func (c *Conn) Close() error {
	c.readyOnce.Do(func() { close(c.ready) })
	if c.ws == nil {
		return nil
	}

	var err error
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.writeTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}
