package transcribe

import (
	"context"
	"errors"
)

// ErrTranscription marks speech-to-text failures.
var ErrTranscription = errors.New("transcription failure")

// Gateway converts one captured audio sample to text. A single finished
// unit of work or an error; no streaming, no internal retries. An empty
// result is valid: it means nothing was said.
type Gateway interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
