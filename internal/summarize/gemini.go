package summarize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type implGemini struct {
	apiKey string
	model  string
}

// NewGemini creates a Gateway backed by the Gemini API, selected with
// `summarizer.backend: gemini`.
func NewGemini(apiKey, model string) Gateway {
	return &implGemini{
		apiKey: apiKey,
		model:  model,
	}
}

func (g *implGemini) Summarize(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("%w: create client: %v", ErrSummarization, err)
	}

	// Gemini takes one prompt; flatten the chat messages in order.
	var parts []string
	for _, msg := range buildMessages(req) {
		parts = append(parts, msg.Content)
	}
	prompt := strings.Join(parts, "\n\n")

	temperature := float32(req.Temperature)
	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", ErrSummarization, err)
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text string
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		if text != "" {
			return strings.TrimSpace(text), nil
		}
	}

	return "", fmt.Errorf("%w: empty response from Gemini", ErrSummarization)
}
