// Package main provides loomd, an HTTP server that runs agent turns and
// streams their protocol events over Server-Sent Events (SSE).
//
// Configuration is via environment variables:
//
//	LOOMD_PORT         - Server port (default: 8000)
//	LOOMD_LOG_LEVEL    - Log level: debug, info, warn, error (default: info)
//	LOOM_SOURCE        - Event source: scripted, anthropic, or openai (default: scripted)
//	LOOM_MODEL         - Model override (optional, uses source default)
//	LOOM_SYSTEM_PROMPT - System prompt prepended to every run (optional)
//	LOOM_MAX_TOKENS    - Completion token budget (default: 4096)
//	LOOM_TIMEOUT       - Per-run timeout (default: 2m)
//	ANTHROPIC_API_KEY  - Anthropic API key
//	OPENAI_API_KEY     - OpenAI API key
//
// Usage:
//
//	LOOM_SOURCE=anthropic go run ./cmd/loomd
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentloom/loom/source"
	"github.com/agentloom/loom/source/anthropic"
	"github.com/agentloom/loom/source/openai"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	src, err := createSource(cfg)
	if err != nil {
		slog.Error("failed to create event source", "error", err)
		os.Exit(1)
	}

	handler := NewAgentHandler(src, cfg)

	mux := http.NewServeMux()
	mux.Handle("/api/agent", corsMiddleware(handler))
	mux.HandleFunc("/health", healthHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("loomd starting",
		"port", cfg.Port,
		"source", cfg.Source,
		"endpoint", "POST http://localhost:"+cfg.Port+"/api/agent",
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func createSource(cfg *Config) (source.Source, error) {
	switch cfg.Source {
	case "scripted":
		return &source.Scripted{}, nil
	case "anthropic":
		opts := []anthropic.ClientOption{anthropic.WithMaxTokens(cfg.MaxTokens)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.System != "" {
			opts = append(opts, anthropic.WithSystemPrompt(cfg.System))
		}
		return anthropic.New(cfg.AnthropicKey, opts...), nil
	case "openai":
		opts := []openai.ClientOption{openai.WithMaxTokens(cfg.MaxTokens)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.System != "" {
			opts = append(opts, openai.WithSystemPrompt(cfg.System))
		}
		return openai.New(cfg.OpenAIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown source: %s", cfg.Source)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
