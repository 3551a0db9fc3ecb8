package summarize

import (
	"fmt"
	"strings"

	"sr-now/internal/store"
)

const (
	// maxContextEntries caps how much history goes into the prompt.
	maxContextEntries = 5
	// maxEntryChars truncates each context entry.
	maxEntryChars = 200
	// maxSummaryChars is the length instruction given to the model.
	maxSummaryChars = 94
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// systemPrompt describes the assistant's job for one channel. The
// channel's own description, when present, is appended so the model
// knows what kind of programming it is listening to.
func systemPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Du är en hjälpsam assistent som sammanfattar vad som sägs i Sveriges Radios kanal %s kortfattat och tydligt. "+
		"Du får kontext från tidigare transkriptioner för att ge bättre sammanhang. "+
		"Undvik att summera låttexter, försök att summera vad programledare säger, "+
		"gäster som kommer in i studion eller vad som händer i studion.", req.Channel)
	if req.Prompt != "" {
		b.WriteString("\n\nOm kanalen: ")
		b.WriteString(req.Prompt)
	}
	return b.String()
}

// contextBlock formats the tail of the context window, one line per
// segment, each truncated so a long window cannot blow up the prompt.
func contextBlock(segments []store.Segment) string {
	if len(segments) > maxContextEntries {
		segments = segments[len(segments)-maxContextEntries:]
	}

	var parts []string
	for _, seg := range segments {
		text := seg.Text
		if runes := []rune(text); len(runes) > maxEntryChars {
			text = string(runes[:maxEntryChars])
		}
		parts = append(parts, fmt.Sprintf("[%s] %s...", seg.Time.UTC().Format("15:04"), text))
	}
	return strings.Join(parts, "\n")
}

// buildMessages assembles the chat messages for one summary request.
func buildMessages(req Request) []message {
	msgs := []message{
		{Role: "system", Content: systemPrompt(req)},
	}

	if context := contextBlock(req.Context); context != "" {
		msgs = append(msgs, message{
			Role:    "user",
			Content: fmt.Sprintf("Här är vad som sagts tidigare i kanalen för kontext:\n\n%s\n\n---", context),
		})
	}

	msgs = append(msgs, message{
		Role: "user",
		Content: fmt.Sprintf("Summera följande transkribering från Sveriges Radios kanal %s till en kort sammanfattning "+
			"på max %d tecken som beskriver vad som händer just nu i direktsändning: \n\n%s",
			req.Channel, maxSummaryChars, req.Text),
	})

	return msgs
}
