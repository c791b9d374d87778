// Package relayclient connects a delivery partner's device to the relay. It
// implements jobs.Emitter so a device side simulation sends its samples the
// same way a GPS would.
//
//	client, err := relayclient.Dial(ctx, relayclient.Config{
//		BaseURL: "http://localhost:8080",
//		Token:   token,
//		AgentID: "A1",
//	}, logger)
//	defer client.Close()
//
//	snapshot, err := client.Tracking(ctx, "O1")
//	err = client.EmitLocation(ctx, "O1", position)
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tracking/internal/adapters/wire"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("relay connection closed")

// Config describes how to reach the relay.
type Config struct {
	// BaseURL is the relay's HTTP address; the websocket lives at BaseURL/ws.
	BaseURL string
	Token   string
	AgentID string
	// CBOR negotiates the binary encoding.
	CBOR         bool
	WriteTimeout time.Duration
}

// Client is one authenticated connection to the relay.
type Client struct {
	config   Config
	conn     *websocket.Conn
	codec    wire.Codec
	http     *http.Client
	messages chan wire.Message
	logger   *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the websocket. A refused token surfaces as an error with the
// HTTP status.
func Dial(ctx context.Context, config Config, logger *slog.Logger) (*Client, error) {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	endpoint, err := websocketURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if config.CBOR {
		dialer.Subprotocols = []string{wire.SubprotocolCBOR}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+config.Token)

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Client{
		config:   config,
		conn:     conn,
		codec:    wire.Negotiate(conn.Subprotocol()),
		http:     &http.Client{Timeout: 10 * time.Second},
		messages: make(chan wire.Message, 64),
		logger:   logger.With("component", "relay_client"),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Messages yields every frame the relay sends. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan wire.Message {
	return c.messages
}

// Subscribe asks for the events of an order.
func (c *Client) Subscribe(ctx context.Context, orderID string) error {
	return c.send(ctx, &wire.Subscribe{OrderID: orderID})
}

// EmitLocation sends a sample as the configured agent.
func (c *Client) EmitLocation(ctx context.Context, orderID string, position kernel.Location) error {
	lat, lng := position.Lat(), position.Lng()
	return c.send(ctx, &wire.LocationUpdate{
		AgentID: c.config.AgentID,
		OrderID: orderID,
		Lat:     &lat,
		Lng:     &lng,
	})
}

// Arrive reports the order as delivered.
func (c *Client) Arrive(ctx context.Context, orderID string) error {
	return c.send(ctx, &wire.StatusUpdate{OrderID: orderID, Status: order.Delivered.String()})
}

// UpdateStatus requests any transition. agentID is only used for "assigned".
func (c *Client) UpdateStatus(ctx context.Context, orderID, status, agentID string) error {
	return c.send(ctx, &wire.StatusUpdate{OrderID: orderID, Status: status, AgentID: agentID})
}

// Tracking reads the order's snapshot over HTTP.
func (c *Client) Tracking(ctx context.Context, orderID string) (queries.GetOrderTrackingQueryResponse, error) {
	var snapshot queries.GetOrderTrackingQueryResponse

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/api/v1/orders/" + url.PathEscape(orderID) + "/tracking"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return snapshot, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return snapshot, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return snapshot, fmt.Errorf("tracking %s: %s: %s", orderID, resp.Status, body.Message)
	}

	if err = json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return snapshot, fmt.Errorf("tracking %s: %w", orderID, err)
	}
	return snapshot, nil
}

// Close ends the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(ctx context.Context, msg wire.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}

	messageType := websocket.TextMessage
	if c.codec.Binary() {
		messageType = websocket.BinaryMessage
	}

	deadline := time.Now().Add(c.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err = c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("Relay connection lost", "error", err)
			}
			return
		}

		msg, err := c.codec.DecodeFromRelay(data)
		if err != nil {
			c.logger.Warn("Unreadable frame", "error", err)
			continue
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("relay url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("relay url: unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
