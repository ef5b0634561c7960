package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	elevenLabsSTTEndpoint  = "https://api.elevenlabs.io/v1/speech-to-text"
	elevenLabsDefaultModel = "scribe_v1"
)

// ElevenLabsClient calls the ElevenLabs Speech-to-Text API.
// Implements the Provider interface.
type ElevenLabsClient struct {
	url     string
	apiKey  string
	model   string // "scribe_v1" or "scribe_v2"
	timeout time.Duration
	client  *http.Client
}

// elevenlabsResponse is the JSON response from the ElevenLabs STT API.
type elevenlabsResponse struct {
	LanguageCode string           `json:"language_code"`
	Text         string           `json:"text"`
	Words        []elevenlabsWord `json:"words"`
}

// elevenlabsWord is a word or spacing entry from ElevenLabs.
// Times are in seconds.
type elevenlabsWord struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"` // "word", "spacing" or "audio_event"
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewElevenLabsClient creates a new ElevenLabs STT client.
func NewElevenLabsClient(url, apiKey, model string, timeout time.Duration) *ElevenLabsClient {
	if url == "" {
		url = elevenLabsSTTEndpoint
	}
	if model == "" {
		model = elevenLabsDefaultModel
	}
	return &ElevenLabsClient{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (el *ElevenLabsClient) Name() string { return ProviderElevenLabs }

// Model returns the configured model identifier.
func (el *ElevenLabsClient) Model() string { return el.model }

// Transcribe uploads the audio with word-level timestamps. ElevenLabs returns
// no phrases; callers group the words.
func (el *ElevenLabsClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	body, err := upload{
		provider:  ProviderElevenLabs,
		url:       el.url,
		header:    http.Header{"Xi-Api-Key": {el.apiKey}},
		fileField: "file",
		fields: []formField{
			{"model_id", el.model},
			{"language_code", opts.Language},
			{"timestamps_granularity", "word"},
			{"tag_audio_events", "false"},
			{"diarize", "false"},
		},
	}.do(ctx, el.client, audioPath)
	if err != nil {
		return nil, err
	}

	var result elevenlabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// Spacing and audio event entries carry no speech.
	var words []Word
	for _, ew := range result.Words {
		if ew.Type == "word" {
			words = append(words, Word{Word: ew.Text, Start: ew.Start, End: ew.End})
		}
	}
	return &Response{
		Text:     result.Text,
		Language: result.LanguageCode,
		Words:    words,
	}, nil
}
