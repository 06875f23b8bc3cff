package acs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testAccessKey = "c2VjcmV0LWtleQ==" // base64("secret-key")

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name         string
		cs           string
		wantEndpoint string
		wantKey      string
		wantErr      bool
	}{
		{
			name:         "normal",
			cs:           "endpoint=https://res.communication.azure.com/;accesskey=" + testAccessKey,
			wantEndpoint: "https://res.communication.azure.com",
			wantKey:      testAccessKey,
		},
		{
			name:         "case insensitive keys",
			cs:           "Endpoint=https://res.communication.azure.com;AccessKey=" + testAccessKey,
			wantEndpoint: "https://res.communication.azure.com",
			wantKey:      testAccessKey,
		},
		{name: "missing key", cs: "endpoint=https://res.communication.azure.com", wantErr: true},
		{name: "empty", cs: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			endpoint, key, err := parseConnectionString(tc.cs)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if endpoint != tc.wantEndpoint || key != tc.wantKey {
				t.Fatalf("got %q %q", endpoint, key)
			}
		})
	}
}

func TestSignRequest(t *testing.T) {
	body := []byte(`{"a":1}`)
	req, err := http.NewRequest(http.MethodPost, "https://res.communication.azure.com/calling/callConnections?api-version=2024-04-15", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := signRequest(req, body, testAccessKey, now); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if got := req.Header.Get("x-ms-date"); got != "Sat, 01 Mar 2025 12:00:00 GMT" {
		t.Fatalf("x-ms-date %q", got)
	}
	hash := req.Header.Get("x-ms-content-sha256")
	if _, err := base64.StdEncoding.DecodeString(hash); err != nil || hash == "" {
		t.Fatalf("content hash %q", hash)
	}
	auth := req.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature=") {
		t.Fatalf("authorization %q", auth)
	}

	// Same inputs sign identically.
	req2, _ := http.NewRequest(http.MethodPost, "https://res.communication.azure.com/calling/callConnections?api-version=2024-04-15", nil)
	if err := signRequest(req2, body, testAccessKey, now); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if req2.Header.Get("Authorization") != auth {
		t.Fatal("signing is not deterministic")
	}
}

func TestSignRequestRejectsBadKey(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://res.communication.azure.com/x", nil)
	if err := signRequest(req, nil, "not-base64!!!", time.Now()); err == nil {
		t.Fatal("expected error for undecodable key")
	}
}

func TestParseCallbackEvents(t *testing.T) {
	body := []byte(`[
		{"type":"Microsoft.Communication.IncomingCall","data":{"incomingCallContext":"ctx-1","from":{"rawId":"4:+155512345"}}},
		{"type":"Microsoft.Communication.CallConnected","data":{}}
	]`)
	batch, err := ParseCallbackEvents(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("got %d events, want 2", len(batch))
	}
	if batch[0].Type != EventTypeIncomingCall {
		t.Fatalf("type %q", batch[0].Type)
	}

	call, err := batch[0].IncomingCall()
	if err != nil {
		t.Fatalf("incoming call: %v", err)
	}
	if call.IncomingCallContext != "ctx-1" || call.From.RawID != "4:+155512345" {
		t.Fatalf("unexpected data: %+v", call)
	}
}

func TestIncomingCallMissingContext(t *testing.T) {
	ev := CallbackEvent{Type: EventTypeIncomingCall, Data: json.RawMessage(`{}`)}
	if _, err := ev.IncomingCall(); err == nil {
		t.Fatal("expected error for missing context")
	}
}

func newTestConnector(t *testing.T, srvURL string) *Connector {
	t.Helper()
	c, err := NewConnector(Config{
		ConnectionString:  "endpoint=" + srvURL + ";accesskey=" + testAccessKey,
		PhoneNumber:       "+15550001111",
		MediaWebsocketURL: "wss://bridge.example.com/api/media",
		CallbackURI:       "https://bridge.example.com/api/callbacks",
	})
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	return c
}

func TestAnswerCall(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("Authorization") == "" || r.Header.Get("x-ms-date") == "" {
			t.Error("request not signed")
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"callConnectionId": "conn-123"})
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	id, err := c.AnswerCall(context.Background(), "ctx-abc")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if id != "conn-123" {
		t.Fatalf("call connection id %q", id)
	}
	if gotPath != "/calling/callConnections:answer" {
		t.Fatalf("path %q", gotPath)
	}
	if gotBody["incomingCallContext"] != "ctx-abc" {
		t.Fatalf("body %v", gotBody)
	}
	opts, _ := gotBody["mediaStreamingOptions"].(map[string]any)
	if opts["enableBidirectional"] != true || opts["transportType"] != "websocket" {
		t.Fatalf("media streaming options %v", opts)
	}
}

func TestCreateCall(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"callConnectionId": "conn-456"})
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	id, err := c.CreateCall(context.Background(), "+15552223333")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "conn-456" {
		t.Fatalf("call connection id %q", id)
	}

	targets, _ := gotBody["targets"].([]any)
	if len(targets) != 1 {
		t.Fatalf("targets %v", gotBody["targets"])
	}
	target, _ := targets[0].(map[string]any)
	phone, _ := target["phoneNumber"].(map[string]any)
	if phone["value"] != "+15552223333" {
		t.Fatalf("target %v", target)
	}
}

func TestCallRequestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	if _, err := c.AnswerCall(context.Background(), "ctx"); err == nil {
		t.Fatal("expected error on 401")
	}
}
