package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// maxTokens bounds the generation; summaries are two sentences at most.
const maxTokens = 100

type implOpenAI struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

// NewOpenAI creates the default Gateway backed by the OpenAI chat
// completions API.
func NewOpenAI(apiKey, model string, client *http.Client) Gateway {
	return &implOpenAI{
		apiKey:  apiKey,
		model:   model,
		client:  client,
		baseURL: defaultBaseURL,
	}
}

// newOpenAIWithURL creates a Gateway with a custom endpoint for testing.
func newOpenAIWithURL(apiKey, model string, client *http.Client, url string) Gateway {
	return &implOpenAI{
		apiKey:  apiKey,
		model:   model,
		client:  client,
		baseURL: url,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *implOpenAI) Summarize(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    buildMessages(req),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrSummarization, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrSummarization, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: calling chat API: %v", ErrSummarization, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrSummarization, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: chat API status %d: %s", ErrSummarization, resp.StatusCode, respBody)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrSummarization, err)
	}

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response from chat API", ErrSummarization)
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
