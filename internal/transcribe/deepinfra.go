package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	deepInfraBaseURL      = "https://api.deepinfra.com/v1/inference/"
	deepInfraDefaultModel = "openai/whisper-large-v3-turbo"
)

// DeepInfraClient calls DeepInfra's native inference API for Whisper models.
// Implements the Provider interface.
type DeepInfraClient struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// deepInfraResponse is the JSON response from the DeepInfra inference API.
type deepInfraResponse struct {
	Text     string             `json:"text"`
	Language string             `json:"language"`
	Duration float64            `json:"duration"`
	Words    []deepInfraWord    `json:"words"`
	Segments []deepInfraSegment `json:"segments"`
}

// deepInfraWord uses "text" for the word field, not "word" like OpenAI.
type deepInfraWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type deepInfraSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewDeepInfraClient creates a new DeepInfra inference client.
func NewDeepInfraClient(baseURL, apiKey, model string, timeout time.Duration) *DeepInfraClient {
	if baseURL == "" {
		baseURL = deepInfraBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if model == "" {
		model = deepInfraDefaultModel
	}
	return &DeepInfraClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (di *DeepInfraClient) Name() string { return ProviderDeepInfra }

// Model returns the configured model identifier.
func (di *DeepInfraClient) Model() string { return di.model }

// Transcribe posts the audio as form field "audio" to {base}{model}.
func (di *DeepInfraClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	body, err := upload{
		provider:  ProviderDeepInfra,
		url:       di.baseURL + di.model,
		header:    bearer(di.apiKey),
		fileField: "audio",
		fields: []formField{
			{"language", opts.Language},
			{"initial_prompt", opts.Prompt},
		},
	}.do(ctx, di.client, audioPath)
	if err != nil {
		return nil, err
	}

	var result deepInfraResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := &Response{
		Text:     result.Text,
		Language: result.Language,
		Duration: result.Duration,
	}
	for _, s := range result.Segments {
		out.Segments = append(out.Segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	for _, dw := range result.Words {
		out.Words = append(out.Words, Word{Word: dw.Text, Start: dw.Start, End: dw.End})
	}
	return out, nil
}
