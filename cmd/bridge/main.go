package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relayvoice/bridge/internal/acs"
	"github.com/relayvoice/bridge/internal/prompts"
	"github.com/relayvoice/bridge/internal/realtime"
	"github.com/relayvoice/bridge/internal/session"
	"github.com/relayvoice/bridge/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("configuration", "error", err)
		os.Exit(1)
	}

	instructions, err := prompts.Load(cfg.promptFile)
	if err != nil {
		slog.Error("load prompt", "error", err)
		os.Exit(1)
	}

	connector, err := acs.NewConnector(acs.Config{
		ConnectionString:          cfg.acsConnectionString,
		PhoneNumber:               cfg.acsPhoneNumber,
		MediaWebsocketURL:         cfg.mediaWebsocketURL,
		CallbackURI:               cfg.callbackHost + "/api/callbacks",
		CognitiveServicesEndpoint: cfg.cognitiveServicesEndpoint,
	})
	if err != nil {
		slog.Error("call automation client", "error", err)
		os.Exit(1)
	}

	backendCfg := realtime.Config{
		Endpoint:   cfg.openaiEndpoint,
		APIKey:     cfg.openaiAPIKey,
		APIVersion: cfg.openaiAPIVersion,
		Deployment: cfg.openaiDeployment,
	}
	settings := session.Settings{
		Instructions:      instructions,
		Voice:             cfg.voice,
		Temperature:       cfg.temperature,
		MaxOutputTokens:   cfg.maxOutputTokens,
		TelephonyEncoding: cfg.telephonyEncoding,
		TelephonyRate:     cfg.telephonyRate,
		BackendRate:       cfg.backendRate,
		CaptureDir:        cfg.captureDir,
	}

	registry := session.NewRegistry()
	handler := ws.NewHandler(registry, cfg.maxConcurrentCalls)

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		connector: connector,
		registry:  registry,
		wsHandler: handler,
		newSession: func(callID string) (*session.Session, error) {
			return session.New(callID, backendCfg, settings)
		},
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("bridge starting", "addr", addr, "deployment", cfg.openaiDeployment, "max_concurrent", cfg.maxConcurrentCalls)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("bridge stopped")
}
