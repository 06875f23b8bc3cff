package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayvoice/bridge/internal/acs"
	"github.com/relayvoice/bridge/internal/session"
)

type deps struct {
	connector  *acs.Connector
	registry   *session.Registry
	wsHandler  http.Handler
	newSession func(callID string) (*session.Session, error)
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/api/media", d.wsHandler)
	mux.HandleFunc("POST /api/callbacks", d.handleCallbacks)
	mux.HandleFunc("POST /api/call/outbound", d.handleOutboundCall)
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// handleCallbacks receives the provider's call-state event batches. An
// incoming call is answered and a session registered before its media socket
// ever attaches.
func (d deps) handleCallbacks(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	batch, err := acs.ParseCallbackEvents(body)
	if err != nil {
		slog.Error("parse callback events", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, ev := range batch {
		slog.Info("callback event", "type", ev.Type)
		if ev.Type != acs.EventTypeIncomingCall {
			continue
		}

		call, err := ev.IncomingCall()
		if err != nil {
			slog.Error("incoming call event", "error", err)
			continue
		}

		callID, err := d.connector.AnswerCall(r.Context(), call.IncomingCallContext)
		if err != nil {
			slog.Error("answer call", "error", err, "from", call.From.RawID)
			continue
		}

		if err := d.registerSession(callID); err != nil {
			slog.Error("register session", "error", err, "session_id", callID)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleOutboundCall places a call to the requested number and registers its
// session.
func (d deps) handleOutboundCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		http.Error(w, `{"error":"phoneNumber is required"}`, http.StatusBadRequest)
		return
	}

	callID, err := d.connector.CreateCall(r.Context(), req.PhoneNumber)
	if err != nil {
		slog.Error("create call", "error", err, "phone_number", req.PhoneNumber)
		http.Error(w, "call initiation failed", http.StatusBadGateway)
		return
	}

	if err := d.registerSession(callID); err != nil {
		slog.Error("register session", "error", err, "session_id", callID)
		http.Error(w, "session setup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":           "call initiated",
		"phoneNumber":      req.PhoneNumber,
		"callConnectionId": callID,
	})
}

func (d deps) registerSession(callID string) error {
	sess, err := d.newSession(callID)
	if err != nil {
		return err
	}
	d.registry.Add(callID, sess)
	slog.Info("session registered", "session_id", callID)
	return nil
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "healthy",
		"active_sessions": d.registry.Len(),
	})
}
