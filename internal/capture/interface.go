package capture

import (
	"context"
	"errors"
	"time"
)

// ErrCapture marks failures to obtain audio from a channel's source.
var ErrCapture = errors.New("capture failure")

// Gateway records one sample of a channel's stream. Exactly one of
// {audio bytes, error} is produced; there is no partial output and no
// internal retry. The caller bounds execution time through ctx.
type Gateway interface {
	Record(ctx context.Context, source string, length time.Duration) ([]byte, error)
}
