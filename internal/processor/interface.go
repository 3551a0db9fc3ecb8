package processor

import "context"

// Processor drives one channel's endless capture cycle. Run returns only
// when ctx is cancelled.
type Processor interface {
	Run(ctx context.Context)
}
