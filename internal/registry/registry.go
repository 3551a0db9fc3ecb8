package registry

import (
	"sort"
	"sync"
	"time"
)

// Status is the processing stage a channel is currently in. Error states
// carry their reason, e.g. "error:capture".
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusTranscribing Status = "transcribing"
	StatusSummarizing  Status = "summarizing"
)

// ErrorStatus builds the error status for a failed stage.
func ErrorStatus(reason string) Status {
	return Status("error:" + reason)
}

// ChannelState is a channel's latest published state. It is replaced as a
// whole record; readers never observe a summary newer than its timestamp
// or a status inconsistent with the last completed stage.
type ChannelState struct {
	Channel        string
	Summary        string
	SummaryUpdated time.Time
	LastUpdated    time.Time
	Status         Status
}

// Registry is the process-wide map from channel to latest ChannelState.
// Each channel's state is written only by that channel's processor; the
// API facade reads snapshots.
type Registry struct {
	mu     sync.RWMutex
	states map[string]ChannelState
}

func New() *Registry {
	return &Registry{
		states: make(map[string]ChannelState),
	}
}

// Set replaces the channel's whole record atomically.
func (r *Registry) Set(state ChannelState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.Channel] = state
}

// Get returns the channel's state, with ok=false for unknown channels.
func (r *Registry) Get(channel string) (ChannelState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[channel]
	return state, ok
}

// Snapshot returns a consistent copy of every channel's state, ordered by
// channel name. Mutations after the call do not affect the result.
func (r *Registry) Snapshot() []ChannelState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChannelState, 0, len(r.states))
	for _, state := range r.states {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
