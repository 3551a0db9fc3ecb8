package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sr-now/internal/api"
	"sr-now/internal/capture"
	"sr-now/internal/config"
	"sr-now/internal/logger"
	"sr-now/internal/processor"
	"sr-now/internal/registry"
	"sr-now/internal/store"
	"sr-now/internal/summarize"
	"sr-now/internal/transcribe"
	"sr-now/pkg/executor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "channels.yaml", "path to the channels config file")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "SR Now")
	log.Info(ctx, "========================================")
	log.Info(ctx, "Channels: %d", len(cfg.Channels))
	log.Info(ctx, "Summarizer: %s (%s)", cfg.Summarizer.Backend, cfg.Summarizer.Model)

	// Select the store: redis when configured, memory otherwise
	st := buildStore(ctx, cfg, log)

	// Recover the last known summary per channel so restarts serve
	// something immediately instead of waiting out a full cycle
	reg := registry.New()
	recoverSummaries(ctx, cfg, st, reg, log)

	// Initialize gateways
	transcriber := transcribe.New(cfg.OpenAIAPIKey, cfg.Whisper.Model, cfg.Whisper.Language, http.DefaultClient)
	summarizer := buildSummarizer(cfg)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One processor goroutine per channel
	exec := executor.New()
	var wg sync.WaitGroup
	for _, ch := range cfg.Channels {
		gw := processor.Gateways{
			Capture:     capture.New(exec, log),
			Transcriber: transcriber,
			Summarizer:  summarizer,
		}
		if capture.IsDirSource(ch.Source) {
			log.Info(ctx, "[%s] using directory source: %s", ch.Name, ch.Source)
			gw.Capture = capture.NewDir(log)
		}

		proc := processor.New(ch, &cfg, gw, st, reg, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			proc.Run(ctx)
		}()
		log.Info(ctx, "[%s] started (every %s, recording %s)", ch.Name, ch.Interval(), ch.Length())
	}

	// HTTP API
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.New(&cfg, reg, st, log).Handler(),
	}
	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info(ctx, "========================================")
	log.Info(ctx, "SR Now is ready!")
	log.Info(ctx, "API listening on :%d", cfg.Port)
	log.Info(ctx, "Press Ctrl+C to stop")
	log.Info(ctx, "========================================")

	// Wait for shutdown signal or server error
	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "HTTP server error: %v", err)
	}

	// Graceful shutdown
	log.Info(ctx, "Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "HTTP shutdown: %v", err)
	}
	wg.Wait()

	log.Info(ctx, "SR Now stopped")
}

// buildStore prefers redis and falls back to memory if the connection
// cannot be established, so a broken REDIS_URL degrades instead of
// blocking startup.
func buildStore(ctx context.Context, cfg config.Config, log logger.Logger) store.Store {
	if cfg.RedisURL == "" {
		log.Info(ctx, "Store: in-memory (history lost on restart)")
		return store.NewMemory(cfg.Retention())
	}

	st, err := store.NewRedis(ctx, cfg.RedisURL, cfg.Retention())
	if err != nil {
		log.Warn(ctx, "Store: redis unavailable, falling back to memory: %v", err)
		return store.NewMemory(cfg.Retention())
	}
	log.Info(ctx, "Store: redis")
	return st
}

func buildSummarizer(cfg config.Config) summarize.Gateway {
	if cfg.Summarizer.Backend == "gemini" {
		return summarize.NewGemini(cfg.GeminiAPIKey, cfg.Summarizer.Model)
	}
	return summarize.NewOpenAI(cfg.OpenAIAPIKey, cfg.Summarizer.Model, http.DefaultClient)
}

func recoverSummaries(ctx context.Context, cfg config.Config, st store.Store, reg *registry.Registry, log logger.Logger) {
	for _, ch := range cfg.Channels {
		rec, ok, err := st.LatestSummary(ctx, ch.Name)
		if err != nil {
			log.Warn(ctx, "[%s] summary recovery failed: %v", ch.Name, err)
			continue
		}
		if !ok {
			continue
		}
		reg.Set(registry.ChannelState{
			Channel:        ch.Name,
			Summary:        rec.Summary,
			SummaryUpdated: rec.Updated,
			LastUpdated:    rec.Updated,
			Status:         registry.StatusIdle,
		})
		log.Info(ctx, "[%s] recovered summary from %s", ch.Name, rec.Updated.Format(time.RFC3339))
	}
}
