package summarize

import (
	"context"
	"errors"

	"sr-now/internal/store"
)

// ErrSummarization marks text-generation failures. The processor keeps
// the previous summary untouched when it sees one.
var ErrSummarization = errors.New("summarization failure")

// Request carries everything a backend needs to produce one summary.
type Request struct {
	// Channel name, used in the prompt.
	Channel string
	// Text is the latest transcription to summarize.
	Text string
	// Context is the channel's context window, oldest first. It may
	// include the segment that produced Text.
	Context []store.Segment
	// Prompt is the channel's free-text description.
	Prompt string
	// Temperature for generation.
	Temperature float64
}

// Gateway produces a short narrative summary for one cycle. One finished
// result or an error; retries belong to the caller's next cycle.
type Gateway interface {
	Summarize(ctx context.Context, req Request) (string, error)
}
