// Package realtime implements the WebSocket client for the voice-AI
// backend's realtime API. Every frame in both directions is a JSON envelope
// carrying an event_id, a type, and the event's own fields. Inbound frames
// are published on the event bus under "server.<type>" and "server.*".
package realtime

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

	"github.com/gorilla/websocket"

	"github.com/relayvoice/bridge/internal/events"
	"github.com/relayvoice/bridge/internal/metrics"
)

var (
	// ErrAlreadyConnected is returned by Connect while a socket is held.
	ErrAlreadyConnected = errors.New("realtime: already connected")
	// ErrNotConnected is returned by Send when no socket is held.
	ErrNotConnected = errors.New("realtime: not connected")
	// ErrInvalidPayload is returned by Send for payloads that cannot form a
	// valid envelope.
	ErrInvalidPayload = errors.New("realtime: invalid payload")
)

// Config holds the backend connection parameters.
type Config struct {
	// Endpoint is the resource base URL (https:// or wss://).
	Endpoint string
	// APIKey authenticates the websocket handshake.
	APIKey string
	// APIVersion selects the realtime API version.
	APIVersion string
	// Deployment names the model deployment to attach to.
	Deployment string
}

// Client owns one persistent socket to the backend realtime API.
// State machine: disconnected -> connecting -> connected -> disconnected.
type Client struct {
	cfg Config
	bus *events.Bus
	log *slog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
}

// NewClient creates a disconnected client that publishes inbound events on bus.
func NewClient(cfg Config, bus *events.Bus, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, bus: bus, log: log}
}

// URL builds the websocket dial URL from the configured endpoint.
func (c *Client) URL() string {
	endpoint := strings.TrimSuffix(c.cfg.Endpoint, "/")
	endpoint = strings.Replace(endpoint, "https://", "wss://", 1)
	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)
	q := url.Values{}
	q.Set("api-version", c.cfg.APIVersion)
	q.Set("deployment", c.cfg.Deployment)
	return fmt.Sprintf("%s/openai/realtime?%s", endpoint, q.Encode())
}

// Connect dials the backend and starts the background receive loop. Fails
// with ErrAlreadyConnected while a socket is held.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	header := http.Header{}
	header.Set("api-key", c.cfg.APIKey)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.URL(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("realtime dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("realtime dial: %w", err)
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	c.log.Info("realtime connected", "deployment", c.cfg.Deployment)
	return nil
}

// Connected reports whether a socket is currently held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Done returns a channel closed when the current receive loop exits. Returns
// a closed channel if the client never connected.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.done
}

// readLoop reads frames until the socket closes, decoding each as a JSON
// envelope and dispatching it under the server namespace. An unexpected
// close ends the loop; it is logged, never propagated.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("realtime connection closed", "error", err)
			return
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			c.log.Error("realtime frame decode", "error", err)
			continue
		}

		eventType, _ := payload["type"].(string)
		eventID, _ := payload["event_id"].(string)
		if eventType == "error" {
			c.log.Error("realtime error event", "event", string(data))
		}
		metrics.BackendEvents.WithLabelValues(eventType).Inc()

		ev := events.Event{ID: eventID, Type: eventType, Payload: payload}
		c.bus.Dispatch("server."+eventType, ev)
		// Wildcard listeners get every server event; the bus does no
		// pattern matching of its own.
		c.bus.Dispatch("server.*", ev)
	}
}

// Send writes one event as a single text frame: {event_id, type, ...payload}.
// A nil payload sends an empty envelope. Fails with ErrNotConnected when no
// socket is held and with ErrInvalidPayload when the payload carries keys
// that would collide with the envelope's own. Sent events are published
// under "client.<type>" and "client.*" once the write succeeds.
func (c *Client) Send(eventType string, payload map[string]any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	envelope := map[string]any{
		"event_id": events.NewEventID(),
		"type":     eventType,
	}
	for k, v := range payload {
		if k == "event_id" || k == "type" {
			return fmt.Errorf("%w: reserved key %q", ErrInvalidPayload, k)
		}
		envelope[k] = v
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("realtime send %s: %w", eventType, err)
	}

	// Publish only what actually reached the wire.
	ev := events.Event{ID: envelope["event_id"].(string), Type: eventType, Payload: envelope}
	c.bus.Dispatch("client."+eventType, ev)
	c.bus.Dispatch("client.*", ev)
	return nil
}

// Close closes the socket and clears the handle. Safe to call when already
// disconnected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.log.Info("realtime disconnected")
	return err
}
