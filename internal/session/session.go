// Package session implements the per-call orchestrator: it binds one
// telephony media socket to one backend realtime connection, pumps audio in
// both directions, and tears both sides down when either ends.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relayvoice/bridge/internal/audio"
	"github.com/relayvoice/bridge/internal/events"
	"github.com/relayvoice/bridge/internal/media"
	"github.com/relayvoice/bridge/internal/metrics"
	"github.com/relayvoice/bridge/internal/realtime"
)

// MediaConn is the telephony media socket as the session uses it.
// *websocket.Conn satisfies it.
type MediaConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session relays audio for one call between the telephony media socket and
// the backend realtime endpoint. It owns both socket handles for the call's
// lifetime and is never shared across calls.
type Session struct {
	id      string
	log     *slog.Logger
	bus     *events.Bus
	backend *realtime.Client
	codec   *audio.Transcoder
	rec     *audio.Recorder

	active atomic.Bool

	mu     sync.Mutex
	config map[string]any
	media  MediaConn

	writeMu sync.Mutex
}

// New creates a session for the given call-connection identifier. The
// backend connection is not opened until Start or Connect.
func New(id string, backendCfg realtime.Config, st Settings) (*Session, error) {
	encoding := audio.Encoding(st.TelephonyEncoding)
	if encoding == "" {
		encoding = audio.EncodingPCM16
	}
	codec, err := audio.NewTranscoder(encoding, st.TelephonyRate, st.BackendRate)
	if err != nil {
		return nil, err
	}

	log := slog.Default().With("session_id", id)
	bus := events.NewBus()

	s := &Session{
		id:      id,
		log:     log,
		bus:     bus,
		backend: realtime.NewClient(backendCfg, bus, log),
		codec:   codec,
		config:  defaultConfig(st),
	}
	if st.CaptureDir != "" {
		s.rec = audio.NewRecorder(st.CaptureDir, id)
	}
	s.active.Store(true)

	bus.On("server.*", s.logEvent)
	bus.On("client.*", s.logEvent)
	// The audio-delta handler runs synchronously on the receive loop so
	// outbound frames keep strict receipt order.
	bus.On("server.response.audio.delta", s.onAudioDelta)
	bus.OnAsync("server.input_audio_buffer.speech_started", s.onSpeechStarted)

	return s, nil
}

// ID returns the call-connection identifier.
func (s *Session) ID() string { return s.id }

// Active reports whether the session has not been cleaned up.
func (s *Session) Active() bool { return s.active.Load() }

// Bus exposes the session's event bus.
func (s *Session) Bus() *events.Bus { return s.bus }

// Config returns a copy of the current merged session configuration.
func (s *Session) Config() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConfig(s.config)
}

// ApplyMediaFormat replaces the transcoder with one matching the audio
// format the media stream's metadata record announces. Empty fields keep
// the configured values. Must be called before Start: the pumps read the
// transcoder without locking.
func (s *Session) ApplyMediaFormat(encoding string, sampleRate int) error {
	enc := s.codec.Encoding()
	if encoding != "" {
		parsed, err := audio.ParseEncoding(encoding)
		if err != nil {
			return fmt.Errorf("session %s: %w", s.id, err)
		}
		enc = parsed
	}
	rate := s.codec.TelephonyRate()
	if sampleRate > 0 {
		rate = sampleRate
	}

	codec, err := audio.NewTranscoder(enc, rate, s.codec.BackendRate())
	if err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	s.codec = codec
	return nil
}

// MediaFormat returns the telephony-side encoding and sample rate currently
// in effect.
func (s *Session) MediaFormat() (audio.Encoding, int) {
	return s.codec.Encoding(), s.codec.TelephonyRate()
}

// Connect opens the backend connection and pushes the merged session
// configuration. Configuration always precedes any audio in either
// direction. Fails with realtime.ErrAlreadyConnected if a backend socket is
// already held.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.backend.Connect(ctx); err != nil {
		return err
	}
	return s.UpdateSession(nil)
}

// Connected reports whether the backend endpoint holds a socket.
func (s *Session) Connected() bool { return s.backend.Connected() }

// UpdateSession merges opts into the session configuration, last write wins
// per key, and re-sends the full merged configuration if a backend
// connection is live. The local merge never fails; a push on a dropped
// connection surfaces the endpoint's send error.
func (s *Session) UpdateSession(opts map[string]any) error {
	s.mu.Lock()
	for k, v := range opts {
		s.config[k] = v
	}
	snapshot := cloneConfig(s.config)
	s.mu.Unlock()

	if !s.backend.Connected() {
		return nil
	}
	return s.backend.Send("session.update", map[string]any{"session": snapshot})
}

// Start binds the media socket, connects the backend, and runs the two relay
// pumps until both have finished: the telephony->backend pump in this
// goroutine and the backend->telephony pump inside the endpoint's receive
// loop. Neither pump preempts the other; cleanup runs unconditionally once
// both are done.
func (s *Session) Start(ctx context.Context, conn MediaConn) error {
	if conn == nil {
		return fmt.Errorf("session %s: nil media socket", s.id)
	}
	if !s.active.Load() {
		return fmt.Errorf("session %s: already cleaned up", s.id)
	}
	s.mu.Lock()
	s.media = conn
	s.mu.Unlock()

	started := time.Now()
	defer func() {
		s.Cleanup()
		metrics.SessionDuration.Observe(time.Since(started).Seconds())
	}()

	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("session %s connect: %w", s.id, err)
	}

	pumpErr := s.pumpTelephony(conn)

	// The backend receive loop has no cancellation of its own; Cleanup
	// closing the socket is what ends it. Wait for the loop to drain so
	// both pumps are done before Start returns.
	s.Cleanup()
	<-s.backend.Done()

	return pumpErr
}

// pumpTelephony reads media frames and forwards audio to the backend until
// the socket closes, the session is cleaned up, or a frame fails. A failed
// frame aborts only this pump.
func (s *Session) pumpTelephony(conn MediaConn) error {
	for s.active.Load() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Info("media stream closed", "error", err)
			return nil
		}

		var msg media.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.FrameErrors.WithLabelValues(metrics.DirTelephonyToBackend, "decode").Inc()
			return fmt.Errorf("media frame decode: %w", err)
		}

		switch msg.Kind {
		case media.KindAudioData:
			if msg.AudioData == nil || msg.AudioData.Data == "" {
				continue
			}
			if err := s.forwardInbound(msg.AudioData.Data); err != nil {
				metrics.FrameErrors.WithLabelValues(metrics.DirTelephonyToBackend, "forward").Inc()
				return fmt.Errorf("forward media frame: %w", err)
			}
		case media.KindStopAudio:
			s.log.Debug("media stream signaled stop")
		default:
			s.log.Debug("unhandled media frame", "kind", msg.Kind)
		}
	}
	return nil
}

// forwardInbound transcodes one telephony audio payload to backend PCM and
// appends it to the backend input buffer.
func (s *Session) forwardInbound(b64 string) error {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("media audio decode: %w", err)
	}

	pcm := s.codec.ToBackend(raw)
	if s.rec != nil {
		s.rec.Append("inbound", audio.DecodePCM(pcm), s.codec.BackendRate())
	}

	err = s.backend.Send("input_audio_buffer.append", map[string]any{
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
	if err != nil {
		return err
	}

	metrics.FramesForwarded.WithLabelValues(metrics.DirTelephonyToBackend).Inc()
	metrics.FrameBytes.WithLabelValues(metrics.DirTelephonyToBackend).Add(float64(len(pcm)))
	return nil
}

// onAudioDelta relays one backend audio delta to the telephony socket. A
// missing or closed media socket is not an error here.
func (s *Session) onAudioDelta(ev events.Event) error {
	b64, _ := ev.Payload["delta"].(string)
	if b64 == "" {
		return nil
	}

	s.mu.Lock()
	conn := s.media
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		metrics.FrameErrors.WithLabelValues(metrics.DirBackendToTelephony, "decode").Inc()
		return fmt.Errorf("audio delta decode: %w", err)
	}

	frame := s.codec.ToTelephony(raw)
	if s.rec != nil {
		s.rec.Append("outbound", audio.DecodePCM(raw), s.codec.BackendRate())
	}

	if err := s.writeMedia(conn, media.AudioFrame(base64.StdEncoding.EncodeToString(frame))); err != nil {
		s.log.Debug("media write failed", "error", err)
		return nil
	}

	metrics.FramesForwarded.WithLabelValues(metrics.DirBackendToTelephony).Inc()
	metrics.FrameBytes.WithLabelValues(metrics.DirBackendToTelephony).Add(float64(len(raw)))
	return nil
}

// onSpeechStarted tells the telephony side to stop playing buffered audio
// when the caller starts speaking over the assistant.
func (s *Session) onSpeechStarted(events.Event) error {
	s.mu.Lock()
	conn := s.media
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := s.writeMedia(conn, media.StopFrame()); err != nil {
		s.log.Debug("stop audio write failed", "error", err)
	}
	return nil
}

func (s *Session) writeMedia(conn MediaConn, msg media.StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) logEvent(ev events.Event) error {
	s.log.Debug("event", "event_id", ev.ID, "type", ev.Type)
	return nil
}

func (s *Session) closeBackend() {
	if err := s.backend.Close(); err != nil {
		s.log.Warn("backend close", "error", err)
	}
}

// Cleanup clears the active flag and disconnects both sides. Safe to call
// more than once: a second call observes the cleared flag and does nothing.
func (s *Session) Cleanup() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}

	s.closeBackend()

	s.mu.Lock()
	conn := s.media
	s.media = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}

	if s.rec != nil {
		if err := s.rec.Close(); err != nil {
			s.log.Warn("capture close", "error", err)
		}
	}

	s.log.Info("session cleaned up")
}
