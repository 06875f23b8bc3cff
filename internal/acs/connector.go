// Package acs talks to the telephony provider's call-automation REST API:
// answering incoming calls and placing outbound calls, in both cases
// provisioning bidirectional media streaming toward this process's media
// WebSocket.
package acs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiVersion = "2024-04-15"

// Config holds the provider connection parameters.
type Config struct {
	// ConnectionString is "endpoint=https://...;accesskey=...".
	ConnectionString string
	// PhoneNumber is the provisioned caller-id number for outbound calls.
	PhoneNumber string
	// MediaWebsocketURL is where the provider streams call media.
	MediaWebsocketURL string
	// CallbackURI receives call-state events.
	CallbackURI string
	// CognitiveServicesEndpoint is forwarded to the provider when set.
	CognitiveServicesEndpoint string
}

// Connector is the call-control client. One instance is shared across calls.
type Connector struct {
	cfg       Config
	endpoint  string
	accessKey string
	client    *http.Client
}

// NewConnector parses the connection string and builds the REST client.
func NewConnector(cfg Config) (*Connector, error) {
	endpoint, key, err := parseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	return &Connector{
		cfg:       cfg,
		endpoint:  endpoint,
		accessKey: key,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}, nil
}

func parseConnectionString(cs string) (endpoint, key string, err error) {
	for _, part := range strings.Split(cs, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "endpoint":
			endpoint = strings.TrimSuffix(strings.TrimSpace(v), "/")
		case "accesskey":
			key = strings.TrimSpace(v)
		}
	}
	if endpoint == "" || key == "" {
		return "", "", fmt.Errorf("connection string missing endpoint or accesskey")
	}
	return endpoint, key, nil
}

// mediaStreamingOptions provisions bidirectional PCM media toward the
// process's media WebSocket.
func (c *Connector) mediaStreamingOptions() map[string]any {
	return map[string]any{
		"transportUrl":        c.cfg.MediaWebsocketURL,
		"transportType":       "websocket",
		"contentType":         "audio",
		"audioChannelType":    "mixed",
		"startMediaStreaming": true,
		"enableBidirectional": true,
		"audioFormat":         "Pcm24KMono",
	}
}

// AnswerCall accepts an incoming call using the opaque context from the
// IncomingCall event and returns the provider's call-connection identifier.
func (c *Connector) AnswerCall(ctx context.Context, incomingCallContext string) (string, error) {
	body := map[string]any{
		"incomingCallContext":   incomingCallContext,
		"callbackUri":           c.cfg.CallbackURI,
		"mediaStreamingOptions": c.mediaStreamingOptions(),
	}
	if c.cfg.CognitiveServicesEndpoint != "" {
		body["callIntelligenceOptions"] = map[string]any{
			"cognitiveServicesEndpoint": c.cfg.CognitiveServicesEndpoint,
		}
	}
	return c.callConnectionRequest(ctx, "/calling/callConnections:answer", body)
}

// CreateCall places an outbound call to target and returns the provider's
// call-connection identifier.
func (c *Connector) CreateCall(ctx context.Context, target string) (string, error) {
	body := map[string]any{
		"targets": []map[string]any{
			{"kind": "phoneNumber", "phoneNumber": map[string]any{"value": target}},
		},
		"sourceCallerIdNumber":  map[string]any{"value": c.cfg.PhoneNumber},
		"callbackUri":           c.cfg.CallbackURI,
		"mediaStreamingOptions": c.mediaStreamingOptions(),
	}
	if c.cfg.CognitiveServicesEndpoint != "" {
		body["callIntelligenceOptions"] = map[string]any{
			"cognitiveServicesEndpoint": c.cfg.CognitiveServicesEndpoint,
		}
	}
	return c.callConnectionRequest(ctx, "/calling/callConnections", body)
}

// HangUp terminates the call connection on the provider side.
func (c *Connector) HangUp(ctx context.Context, callConnectionID string) error {
	path := "/calling/callConnections/" + url.PathEscape(callConnectionID)
	req, err := c.newSignedRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hang up: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("hang up: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Connector) callConnectionRequest(ctx context.Context, path string, body map[string]any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newSignedRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call automation request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("call automation: status %d: %s", resp.StatusCode, data)
	}

	var result struct {
		CallConnectionID string `json:"callConnectionId"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.CallConnectionID == "" {
		return "", fmt.Errorf("call automation: response missing callConnectionId")
	}
	return result.CallConnectionID, nil
}

func (c *Connector) newSignedRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	u := c.endpoint + path + "?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := signRequest(req, body, c.accessKey, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return req, nil
}
