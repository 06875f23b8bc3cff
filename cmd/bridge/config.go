package main

import (
	"fmt"

	"github.com/relayvoice/bridge/internal/env"
)

type config struct {
	port string

	openaiEndpoint   string
	openaiAPIKey     string
	openaiAPIVersion string
	openaiDeployment string

	acsConnectionString       string
	acsPhoneNumber            string
	mediaWebsocketURL         string
	callbackHost              string
	cognitiveServicesEndpoint string

	promptFile      string
	voice           string
	temperature     float64
	maxOutputTokens int

	telephonyEncoding string
	telephonyRate     int
	backendRate       int

	captureDir         string
	maxConcurrentCalls int
}

// loadConfig reads the environment. Mandatory values fail hard: the process
// must not come up half-configured.
func loadConfig() (config, error) {
	cfg := config{
		port:                      env.Str("PORT", "8000"),
		openaiAPIVersion:          env.Str("OPENAI_API_VERSION", "2024-10-01-preview"),
		openaiDeployment:          env.Str("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o-realtime-preview"),
		acsPhoneNumber:            env.Str("ACS_PHONE_NUMBER", ""),
		mediaWebsocketURL:         env.Str("ACS_WEBSOCKET_URL", ""),
		callbackHost:              env.Str("CALLBACK_URI_HOST", ""),
		cognitiveServicesEndpoint: env.Str("COGNITIVE_SERVICES_ENDPOINT", ""),
		promptFile:                env.Str("PROMPT_FILE", ""),
		voice:                     env.Str("AGENT_VOICE", "alloy"),
		temperature:               env.Float("AGENT_TEMPERATURE", 0.7),
		maxOutputTokens:           env.Int("AGENT_MAX_OUTPUT_TOKENS", 1024),
		telephonyEncoding:         env.Str("TELEPHONY_ENCODING", "pcm16"),
		telephonyRate:             env.Int("TELEPHONY_SAMPLE_RATE", 24000), // matches the connector's Pcm24KMono
		backendRate:               env.Int("BACKEND_SAMPLE_RATE", 24000),
		captureDir:                env.Str("CAPTURE_DIR", ""),
		maxConcurrentCalls:        env.Int("MAX_CONCURRENT_CALLS", 100),
	}

	var err error
	if cfg.openaiEndpoint, err = env.Must("OPENAI_API_BASE"); err != nil {
		return cfg, err
	}
	if cfg.openaiAPIKey, err = env.Must("OPENAI_API_KEY"); err != nil {
		return cfg, err
	}
	if cfg.acsConnectionString, err = env.Must("ACS_CONNECTION_STRING"); err != nil {
		return cfg, err
	}
	if cfg.telephonyRate <= 0 || cfg.backendRate <= 0 {
		return cfg, fmt.Errorf("sample rates must be positive: telephony=%d backend=%d", cfg.telephonyRate, cfg.backendRate)
	}
	return cfg, nil
}
