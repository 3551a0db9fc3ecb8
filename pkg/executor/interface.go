package executor

import "context"

// Executor defines the interface for executing external commands.
// Stdout is returned raw so callers can receive binary payloads such as
// WAV audio piped out of ffmpeg.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}
