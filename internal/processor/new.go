package processor

import (
	"time"

	"sr-now/internal/capture"
	"sr-now/internal/config"
	"sr-now/internal/logger"
	"sr-now/internal/registry"
	"sr-now/internal/store"
	"sr-now/internal/summarize"
	"sr-now/internal/transcribe"
)

// Gateways bundles the three external collaborators of a channel cycle.
type Gateways struct {
	Capture     capture.Gateway
	Transcriber transcribe.Gateway
	Summarizer  summarize.Gateway
}

type implProcessor struct {
	channel  config.ChannelConfig
	gateways Gateways
	store    store.Store
	registry *registry.Registry
	logger   logger.Logger

	retention         time.Duration
	transcribeTimeout time.Duration
	summarizeTimeout  time.Duration

	now func() time.Time
}

// New creates a Processor for one channel. Each channel gets its own
// Processor; they share the store and registry but nothing else.
func New(channel config.ChannelConfig, cfg *config.Config, gw Gateways, st store.Store, reg *registry.Registry, log logger.Logger) Processor {
	return &implProcessor{
		channel:           channel,
		gateways:          gw,
		store:             st,
		registry:          reg,
		logger:            log.WithChannel(channel.Name),
		retention:         cfg.Retention(),
		transcribeTimeout: time.Duration(cfg.Whisper.TimeoutSecs) * time.Second,
		summarizeTimeout:  time.Duration(cfg.Summarizer.TimeoutSecs) * time.Second,
		now:               func() time.Time { return time.Now().UTC() },
	}
}
