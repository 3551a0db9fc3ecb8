package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const defaultBaseURL = "https://api.openai.com/v1/audio/transcriptions"

type implOpenAI struct {
	apiKey   string
	model    string
	language string
	client   *http.Client
	baseURL  string
}

// New creates a Gateway backed by the OpenAI audio transcriptions API.
func New(apiKey, model, language string, client *http.Client) Gateway {
	return &implOpenAI{
		apiKey:   apiKey,
		model:    model,
		language: language,
		client:   client,
		baseURL:  defaultBaseURL,
	}
}

// newWithURL creates a Gateway with a custom endpoint for testing.
func newWithURL(apiKey, model, language string, client *http.Client, url string) Gateway {
	return &implOpenAI{
		apiKey:   apiKey,
		model:    model,
		language: language,
		client:   client,
		baseURL:  url,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (o *implOpenAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", o.model); err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrTranscription, err)
	}
	if o.language != "" {
		if err := mw.WriteField("language", o.language); err != nil {
			return "", fmt.Errorf("%w: building request: %v", ErrTranscription, err)
		}
	}

	fw, err := mw.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrTranscription, err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrTranscription, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrTranscription, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrTranscription, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling transcription API: %v", ErrTranscription, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: transcription API status %d: %s", ErrTranscription, resp.StatusCode, b)
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrTranscription, err)
	}

	return tr.Text, nil
}
