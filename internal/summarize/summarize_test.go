package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sr-now/internal/store"
)

func segAt(hour, min int, text string) store.Segment {
	return store.Segment{
		Channel: "P1",
		Text:    text,
		Time:    time.Date(2026, 3, 1, hour, min, 0, 0, time.UTC),
	}
}

func TestBuildMessages(t *testing.T) {
	req := Request{
		Channel: "P1",
		Text:    "Vi får nu höra mer om utvecklingen",
		Context: []store.Segment{
			segAt(11, 30, "Tidigare diskussion om politik"),
			segAt(11, 45, "Väderleksrapport för helgen"),
		},
		Prompt:      "Nyheter och samhällsprogram",
		Temperature: 0.3,
	}

	msgs := buildMessages(req)
	if len(msgs) != 3 {
		t.Fatalf("buildMessages() returned %d messages, want 3", len(msgs))
	}

	if msgs[0].Role != "system" {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "kanal P1") {
		t.Errorf("system prompt missing channel name: %s", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "Nyheter och samhällsprogram") {
		t.Errorf("system prompt missing channel description: %s", msgs[0].Content)
	}

	if !strings.Contains(msgs[1].Content, "[11:30] Tidigare diskussion om politik...") {
		t.Errorf("context message malformed: %s", msgs[1].Content)
	}

	last := msgs[2].Content
	if !strings.Contains(last, "max 94 tecken") {
		t.Errorf("summary instruction missing length cap: %s", last)
	}
	if !strings.Contains(last, req.Text) {
		t.Errorf("summary instruction missing transcript: %s", last)
	}
}

func TestBuildMessagesNoContext(t *testing.T) {
	msgs := buildMessages(Request{Channel: "P1", Text: "hej"})
	if len(msgs) != 2 {
		t.Fatalf("buildMessages() returned %d messages, want 2 without context", len(msgs))
	}
}

func TestContextBlockCapsEntries(t *testing.T) {
	var segs []store.Segment
	for i := range 8 {
		segs = append(segs, segAt(10, i, "entry"))
	}

	block := contextBlock(segs)
	if got := strings.Count(block, "\n") + 1; got != maxContextEntries {
		t.Errorf("contextBlock() has %d lines, want %d", got, maxContextEntries)
	}
	// The newest entries are kept, the oldest dropped.
	if !strings.Contains(block, "[10:07]") || strings.Contains(block, "[10:00]") {
		t.Errorf("contextBlock() kept the wrong tail: %s", block)
	}
}

func TestContextBlockTruncatesEntries(t *testing.T) {
	long := strings.Repeat("å", 300)
	block := contextBlock([]store.Segment{segAt(10, 0, long)})

	runes := []rune(block)
	if len(runes) > maxEntryChars+20 {
		t.Errorf("contextBlock() entry not truncated: %d runes", len(runes))
	}
	if !strings.HasSuffix(block, "...") {
		t.Errorf("contextBlock() missing ellipsis: %q", block)
	}
}

func TestOpenAISummarize(t *testing.T) {
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  Kort uppdatering om utvecklingen.  "}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := newOpenAIWithURL("sk-test", "gpt-4o-mini", srv.Client(), srv.URL)

	summary, err := g.Summarize(context.Background(), Request{
		Channel:     "P1",
		Text:        "Vi får nu höra mer om utvecklingen",
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if summary != "Kort uppdatering om utvecklingen." {
		t.Errorf("summary = %q", summary)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.Temperature != 0.3 {
		t.Errorf("temperature = %v", gotReq.Temperature)
	}
	if gotReq.MaxTokens != maxTokens {
		t.Errorf("max_tokens = %d", gotReq.MaxTokens)
	}
}

func TestOpenAISummarizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newOpenAIWithURL("sk-test", "gpt-4o-mini", srv.Client(), srv.URL)

	_, err := g.Summarize(context.Background(), Request{Channel: "P1", Text: "text"})
	if !errors.Is(err, ErrSummarization) {
		t.Errorf("Summarize() error = %v, want ErrSummarization", err)
	}
}

func TestOpenAISummarizeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	g := newOpenAIWithURL("sk-test", "gpt-4o-mini", srv.Client(), srv.URL)

	_, err := g.Summarize(context.Background(), Request{Channel: "P1", Text: "text"})
	if !errors.Is(err, ErrSummarization) {
		t.Errorf("Summarize() error = %v, want ErrSummarization", err)
	}
}
