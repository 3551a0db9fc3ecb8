package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"sr-now/internal/config"
	"sr-now/internal/logger"
	"sr-now/internal/registry"
	"sr-now/internal/store"
)

// Server is the read-only HTTP surface over the registry and the store.
type Server struct {
	channels []config.ChannelConfig
	lookback time.Duration
	registry *registry.Registry
	store    store.Store
	logger   logger.Logger
}

func New(cfg *config.Config, reg *registry.Registry, st store.Store, log logger.Logger) *Server {
	channels := make([]config.ChannelConfig, len(cfg.Channels))
	copy(channels, cfg.Channels)
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })

	return &Server{
		channels: channels,
		lookback: cfg.Lookback(),
		registry: reg,
		store:    st,
		logger:   log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleOverview)
	mux.HandleFunc("GET /transcriptions", s.handleTranscriptions)
	mux.HandleFunc("GET /transcriptions/{channel}", s.handleChannelTranscriptions)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

type channelOverview struct {
	Channel          string `json:"channel"`
	Summary          string `json:"summary"`
	SummaryUpdated   string `json:"summary_updated"`
	SummaryFrequency int    `json:"summaryUpdateFrequency"`
}

type transcriptionEntry struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

type channelTranscriptions struct {
	Channel        string               `json:"channel"`
	Transcriptions []transcriptionEntry `json:"transcriptions"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	// One snapshot for the whole response, so no channel is shown
	// mid-update relative to another.
	states := make(map[string]registry.ChannelState)
	for _, state := range s.registry.Snapshot() {
		states[state.Channel] = state
	}

	out := make([]channelOverview, 0, len(s.channels))
	for _, ch := range s.channels {
		entry := channelOverview{
			Channel:          ch.Name,
			SummaryFrequency: ch.RecordingInterval,
		}
		if state, ok := states[ch.Name]; ok {
			entry.Summary = state.Summary
			if !state.SummaryUpdated.IsZero() {
				entry.SummaryUpdated = state.SummaryUpdated.UTC().Format(time.RFC3339)
			}
		}
		out = append(out, entry)
	}
	s.writeJSON(r, w, http.StatusOK, out)
}

func (s *Server) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	out := make([]channelTranscriptions, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, s.channelWindow(r, ch.Name))
	}
	s.writeJSON(r, w, http.StatusOK, out)
}

func (s *Server) handleChannelTranscriptions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("channel")
	if !s.knownChannel(name) {
		s.writeJSON(r, w, http.StatusNotFound, map[string]string{"error": "unknown channel: " + name})
		return
	}
	s.writeJSON(r, w, http.StatusOK, s.channelWindow(r, name))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r, w, http.StatusOK, map[string]string{"status": "ok"})
}

// channelWindow reads the lookback window for one channel, newest first.
// A store failure degrades to an empty list rather than an error response.
func (s *Server) channelWindow(r *http.Request, name string) channelTranscriptions {
	out := channelTranscriptions{Channel: name, Transcriptions: []transcriptionEntry{}}

	segs, err := s.store.Window(r.Context(), name, s.lookback)
	if err != nil {
		s.logger.Warn(r.Context(), "api: window read failed for %s: %v", name, err)
		return out
	}
	for i := len(segs) - 1; i >= 0; i-- {
		out.Transcriptions = append(out.Transcriptions, transcriptionEntry{
			Text: segs[i].Text,
			Time: segs[i].Time.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (s *Server) knownChannel(name string) bool {
	for _, ch := range s.channels {
		if ch.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(r *http.Request, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "api: encode response: %v", err)
	}
}
