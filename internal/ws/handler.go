// Package ws owns the telephony media WebSocket endpoint: it upgrades the
// connection, reads the metadata first-frame, binds the socket to its
// provisioned session, and removes the session from the registry when the
// call ends.
package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relayvoice/bridge/internal/media"
	"github.com/relayvoice/bridge/internal/metrics"
	"github.com/relayvoice/bridge/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler attaches provider media streams to registered call sessions, with
// admission control on concurrent streams.
type Handler struct {
	registry *session.Registry
	sem      chan struct{}
}

// NewHandler creates the media handler over registry with a concurrency cap.
func NewHandler(registry *session.Registry, maxConcurrent int) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	return &Handler{
		registry: registry,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// ServeHTTP upgrades the connection and runs the call session to completion.
// Returns 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("media websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	defer metrics.CallsActive.Dec()

	h.runStream(r.Context(), conn)
}

func (h *Handler) runStream(ctx context.Context, conn *websocket.Conn) {
	streamID := uuid.NewString()
	log := slog.With("stream_id", streamID)

	meta, err := readMetadata(conn)
	if err != nil {
		log.Error("read media metadata", "error", err)
		return
	}

	callID := meta.CallConnectionID
	log = log.With("session_id", callID)
	log.Info("media stream connected", "encoding", meta.Encoding, "sample_rate", meta.SampleRate)

	sess, ok := h.registry.Lookup(callID)
	if !ok {
		log.Warn("no session registered for media stream")
		return
	}

	defer func() {
		if removed, ok := h.registry.Remove(callID); ok {
			removed.Cleanup()
		}
		log.Info("media stream ended")
	}()

	// The metadata record is authoritative for the stream's audio format;
	// the session was provisioned before the provider negotiated it.
	if err := sess.ApplyMediaFormat(meta.Encoding, meta.SampleRate); err != nil {
		log.Error("apply media format", "error", err)
		return
	}

	if err := sess.Start(ctx, conn); err != nil {
		log.Error("session failed", "error", err)
	}
}

// readMetadata consumes the metadata record that is always the first frame
// on a media socket.
func readMetadata(conn *websocket.Conn) (media.StreamMetadata, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return media.StreamMetadata{}, err
	}
	return media.ParseMetadata(data)
}
