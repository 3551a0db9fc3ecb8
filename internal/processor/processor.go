package processor

import (
	"context"
	"strings"
	"time"

	"sr-now/internal/registry"
	"sr-now/internal/store"
	"sr-now/internal/summarize"
)

// captureGrace is added on top of recording_length when bounding the
// capture call: the recorder needs time to connect before it can sample.
const captureGrace = 10 * time.Second

// Run loops through capture cycles until ctx is cancelled. A failing
// cycle never stops the loop; the next cycle is the retry.
func (p *implProcessor) Run(ctx context.Context) {
	p.logger.Info(ctx, "processor started (length %s, interval %s)", p.channel.Length(), p.channel.Interval())

	for {
		start := p.now()
		p.cycle(ctx)

		if !p.sleepRemainder(ctx, start) {
			p.logger.Info(ctx, "processor stopped")
			return
		}
	}
}

// cycle runs one pass of the state machine: record, transcribe, persist,
// summarize, publish. Any stage failure skips the rest of the cycle.
func (p *implProcessor) cycle(ctx context.Context) {
	name := p.channel.Name

	p.setStatus(registry.StatusRecording)
	capCtx, cancel := context.WithTimeout(ctx, p.channel.Length()+captureGrace)
	audio, err := p.gateways.Capture.Record(capCtx, p.channel.Source, p.channel.Length())
	cancel()
	if err != nil {
		p.fail(ctx, "capture", err)
		return
	}

	p.setStatus(registry.StatusTranscribing)
	trCtx, cancel := context.WithTimeout(ctx, p.transcribeTimeout)
	text, err := p.gateways.Transcriber.Transcribe(trCtx, audio)
	cancel()
	if err != nil {
		p.fail(ctx, "transcription", err)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		// Nothing said. Appending silence would only dilute the context
		// window, so the cycle ends here with the summary untouched.
		p.logger.Debug(ctx, "empty transcription, skipping summary")
		p.setStatus(registry.StatusIdle)
		return
	}

	seg := store.Segment{Channel: name, Text: text, Time: p.now()}

	persisted := true
	if err := p.store.Append(ctx, seg); err != nil {
		// Non-fatal: one persistence hiccup must not stall summarization.
		persisted = false
		p.logger.Warn(ctx, "persisting segment failed, continuing with in-memory segment: %v", err)
	}
	if err := p.store.Prune(ctx, name, p.retention); err != nil {
		p.logger.Warn(ctx, "pruning history failed: %v", err)
	}

	p.setStatus(registry.StatusSummarizing)

	// Fresh read so the prompt sees prior history, not just this segment.
	window, err := p.store.Window(ctx, name, p.channel.Window())
	if err != nil {
		p.logger.Warn(ctx, "reading context window failed: %v", err)
		window = nil
	}
	if !persisted || len(window) == 0 {
		window = appendMissing(window, seg)
	}

	sumCtx, cancel := context.WithTimeout(ctx, p.summarizeTimeout)
	summary, err := p.gateways.Summarizer.Summarize(sumCtx, summarize.Request{
		Channel:     name,
		Text:        text,
		Context:     window,
		Prompt:      p.channel.Prompt,
		Temperature: p.channel.Temperature,
	})
	cancel()
	if err != nil {
		// The previous summary stays as-is; only status changes.
		p.fail(ctx, "summarization", err)
		return
	}

	now := p.now()
	state := registry.ChannelState{
		Channel:        name,
		Summary:        summary,
		SummaryUpdated: now,
		LastUpdated:    now,
		Status:         registry.StatusIdle,
	}
	p.registry.Set(state)

	if err := p.store.SaveSummary(ctx, store.SummaryRecord{Channel: name, Summary: summary, Updated: now}); err != nil {
		p.logger.Warn(ctx, "persisting summary failed: %v", err)
	}

	p.logger.Info(ctx, "summary updated: %s", summary)
}

// appendMissing adds seg to the window unless an equal segment is
// already there.
func appendMissing(window []store.Segment, seg store.Segment) []store.Segment {
	for _, s := range window {
		if s.Time.Equal(seg.Time) && s.Text == seg.Text {
			return window
		}
	}
	return append(window, seg)
}

// setStatus updates the channel's status while preserving the published
// summary pair (text + timestamp). The whole record is replaced, so
// readers never see a half-written state.
func (p *implProcessor) setStatus(status registry.Status) {
	state, _ := p.registry.Get(p.channel.Name)
	state.Channel = p.channel.Name
	state.Status = status
	state.LastUpdated = p.now()
	p.registry.Set(state)
}

// fail records a stage failure and abandons the rest of the cycle. A
// cancellation during shutdown is not a channel fault and leaves the
// status alone.
func (p *implProcessor) fail(ctx context.Context, stage string, err error) {
	if ctx.Err() != nil {
		return
	}
	p.logger.Error(ctx, "%s failed: %v", stage, err)
	p.setStatus(registry.ErrorStatus(stage))
}

// sleepRemainder waits out the rest of the recording interval, measured
// from cycle start so gateway latency does not stretch the cadence.
// Returns false when ctx is cancelled.
func (p *implProcessor) sleepRemainder(ctx context.Context, start time.Time) bool {
	wait := p.channel.Interval() - p.now().Sub(start)
	if wait <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
