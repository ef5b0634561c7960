package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "openai", "elevenlabs", "deepinfra"
	Model() string // model identifier for logs
}

// TranscribeOpts are per-request options. Zero values are omitted from requests.
type TranscribeOpts struct {
	Language    string
	Prompt      string // domain vocabulary / initial prompt
	Temperature float64
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64   // audio duration in seconds
	Segments []Segment // nil if the provider has no segment timing
	Words    []Word    // nil if the provider has no word timing
}

// Segment is a provider-level phrase with timestamps in seconds.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Word is a timestamped word from any STT provider.
type Word struct {
	Word  string
	Start float64 // seconds
	End   float64 // seconds
}

// ErrMalformedResponse means a provider answered 200 with a body that could
// not be decoded.
var ErrMalformedResponse = errors.New("malformed provider response")

// StatusError is a non-200 response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// IsAuthError reports whether err is a provider rejecting the credential.
func IsAuthError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
	}
	return false
}

// maxErrorBody bounds the provider response text kept in a StatusError.
const maxErrorBody = 512

func newStatusError(provider string, code int, body []byte) *StatusError {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return &StatusError{Provider: provider, StatusCode: code, Body: s}
}

// Provider names accepted by NewProvider.
const (
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"
	ProviderDeepInfra  = "deepinfra"
)

// ProviderOptions configures NewProvider.
type ProviderOptions struct {
	Name    string
	APIKey  string
	Model   string // empty selects the provider default
	BaseURL string // empty selects the provider default
	Timeout time.Duration
}

// NewProvider builds a speech provider. The API key is passed in explicitly
// and never read from the environment here.
func NewProvider(opts ProviderOptions) (Provider, error) {
	switch strings.ToLower(opts.Name) {
	case "", ProviderOpenAI:
		return NewWhisperClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout), nil
	case ProviderElevenLabs:
		return NewElevenLabsClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout), nil
	case ProviderDeepInfra:
		return NewDeepInfraClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout), nil
	}
	return nil, fmt.Errorf("unknown speech provider %q", opts.Name)
}
