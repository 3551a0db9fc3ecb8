package capture

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sr-now/internal/logger"
	"sr-now/pkg/executor"
)

type implFFmpeg struct {
	executor executor.Executor
	logger   logger.Logger
}

// New creates the ffmpeg-backed Gateway used for live stream sources.
func New(exec executor.Executor, log logger.Logger) Gateway {
	return &implFFmpeg{
		executor: exec,
		logger:   log,
	}
}

// Record samples length seconds of the stream as mono 16kHz WAV on
// stdout. Mono/16k is what Whisper wants; the reconnect flags ride out
// brief stream drops.
func (f *implFFmpeg) Record(ctx context.Context, source string, length time.Duration) ([]byte, error) {
	secs := int(length.Seconds())

	args := []string{
		"-y",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", source,
		"-t", strconv.Itoa(secs),
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		"pipe:1",
	}

	f.logger.Debug(ctx, "recording %ds from %s", secs, source)

	audio, err := f.executor.Execute(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no audio", ErrCapture)
	}

	return audio, nil
}
