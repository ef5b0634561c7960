package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	openAIDefaultURL   = "https://api.openai.com/v1/audio/transcriptions"
	openAIDefaultModel = "whisper-1"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint.
type WhisperClient struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// whisperResponse is the verbose_json response format.
type whisperResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
	Words    []whisperWord    `json:"words"`
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewWhisperClient creates a new Whisper HTTP client. Empty url and model
// select the OpenAI endpoint and whisper-1.
func NewWhisperClient(url, apiKey, model string, timeout time.Duration) *WhisperClient {
	if url == "" {
		url = openAIDefaultURL
	}
	if model == "" {
		model = openAIDefaultModel
	}
	return &WhisperClient{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (wc *WhisperClient) Name() string { return ProviderOpenAI }

// Model returns the configured model identifier.
func (wc *WhisperClient) Model() string { return wc.model }

// Transcribe uploads the audio and requests verbose_json with segment and
// word timestamps.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	var temperature string
	if opts.Temperature > 0 {
		temperature = strconv.FormatFloat(opts.Temperature, 'f', 2, 64)
	}
	body, err := upload{
		provider:  ProviderOpenAI,
		url:       wc.url,
		header:    bearer(wc.apiKey),
		fileField: "file",
		fields: []formField{
			{"model", wc.model},
			{"response_format", "verbose_json"},
			{"timestamp_granularities[]", "segment"},
			{"timestamp_granularities[]", "word"},
			{"language", opts.Language},
			{"prompt", opts.Prompt},
			{"temperature", temperature},
		},
	}.do(ctx, wc.client, audioPath)
	if err != nil {
		return nil, err
	}

	var result whisperResponse
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
	for _, ww := range result.Words {
		out.Words = append(out.Words, Word{Word: ww.Word, Start: ww.Start, End: ww.End})
	}
	return out, nil
}
