package extract

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/vidscribe/internal/metrics"
	"github.com/snarg/vidscribe/internal/transcribe"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

// AudioSource opens the best audio-only stream of a video.
type AudioSource interface {
	OpenAudio(ctx context.Context, id youtube.VideoID) (*youtube.AudioStream, error)
}

// Transcoder converts a downloaded stream into a file the speech model accepts.
type Transcoder interface {
	Transcode(ctx context.Context, src io.Reader, outPath string) error
}

// SpeechConfig holds the per-process speech settings. The credential is not
// part of it; it arrives with each request.
type SpeechConfig struct {
	Provider   string // openai, elevenlabs, deepinfra
	Model      string
	BaseURL    string
	Language   string
	Timeout    time.Duration // bounds the speech model call only; 0 disables
	FFmpegPath string
	TempDir    string // parent of per-request scratch dirs; empty uses os.TempDir
}

type speechHooks struct {
	lookupFFmpeg func(path string) (Transcoder, error)
	newProvider  func(transcribe.ProviderOptions) (transcribe.Provider, error)
}

var defaultSpeechHooks = speechHooks{
	lookupFFmpeg: func(path string) (Transcoder, error) {
		ff, err := transcribe.LookupFFmpeg(path)
		if err != nil {
			return nil, err
		}
		return ff, nil
	},
	newProvider: transcribe.NewProvider,
}

// SpeechModel acquires a transcript by downloading the audio track and
// sending it to a speech-to-text provider.
type SpeechModel struct {
	audio      AudioSource
	cfg        SpeechConfig
	credential string
	hooks      speechHooks
	ffmpeg     Transcoder
	log        zerolog.Logger
}

func newSpeechModel(audio AudioSource, cfg SpeechConfig, credential string, hooks speechHooks, log zerolog.Logger) *SpeechModel {
	return &SpeechModel{
		audio:      audio,
		cfg:        cfg,
		credential: credential,
		hooks:      hooks,
		log:        log,
	}
}

func (s *SpeechModel) Method() Method { return MethodWhisper }

func (s *SpeechModel) providerName() string {
	if s.cfg.Provider == "" {
		return transcribe.ProviderOpenAI
	}
	return strings.ToLower(s.cfg.Provider)
}

// Preflight verifies the credential and the ffmpeg toolchain. It does no
// network or file work.
func (s *SpeechModel) Preflight() error {
	if strings.TrimSpace(s.credential) == "" {
		return newError(MissingCredential, nil, "speech provider %s requires an API key", s.providerName())
	}
	ff, err := s.hooks.lookupFFmpeg(s.cfg.FFmpegPath)
	if err != nil {
		return newError(MissingDependency, err, "ffmpeg is required for speech transcription; install it or set FFMPEG_PATH")
	}
	s.ffmpeg = ff
	return nil
}

// Acquire downloads and transcodes the audio into a scratch directory, calls
// the speech model and maps its output to raw segments. The scratch directory
// is removed before Acquire returns, whatever the outcome.
func (s *SpeechModel) Acquire(ctx context.Context, id youtube.VideoID) (Acquisition, error) {
	if s.ffmpeg == nil {
		if err := s.Preflight(); err != nil {
			return Acquisition{}, err
		}
	}

	provider, err := s.hooks.newProvider(transcribe.ProviderOptions{
		Name:    s.providerName(),
		APIKey:  s.credential,
		Model:   s.cfg.Model,
		BaseURL: s.cfg.BaseURL,
	})
	if err != nil {
		return Acquisition{}, newError(InvalidConfiguration, err, "speech provider %q is not supported", s.cfg.Provider)
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "vidscribe-*")
	if err != nil {
		return Acquisition{}, newError(InternalError, err, "creating scratch directory")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("failed to remove scratch directory")
		}
	}()

	audioPath, err := s.materialize(ctx, id, dir)
	if err != nil {
		return Acquisition{}, err
	}

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := provider.Transcribe(callCtx, audioPath, transcribe.TranscribeOpts{Language: s.cfg.Language})
	elapsed := time.Since(start)
	metrics.SpeechRequestDuration.WithLabelValues(provider.Name()).Observe(elapsed.Seconds())
	if err != nil {
		switch {
		case transcribe.IsAuthError(err):
			return Acquisition{}, newError(AuthenticationFailed, err, "%s rejected the API key", provider.Name())
		case errors.Is(err, transcribe.ErrMalformedResponse):
			return Acquisition{}, newError(NoTranscriptAvailable, err, "%s returned an unreadable transcript", provider.Name())
		case ctx.Err() != nil:
			return Acquisition{}, newError(AcquisitionFailed, err, "speech transcription cancelled")
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return Acquisition{}, newError(AcquisitionFailed, err, "speech model did not answer within %s", s.cfg.Timeout)
		}
		return Acquisition{}, newError(AcquisitionFailed, err, "speech model request failed")
	}

	raw := rawFromResponse(resp)
	s.log.Info().
		Str("video_id", id.String()).
		Str("provider", provider.Name()).
		Str("model", provider.Model()).
		Int("segments", len(raw)).
		Dur("elapsed", elapsed).
		Msg("speech transcription complete")

	if len(raw) == 0 {
		return Acquisition{}, newError(NoTranscriptAvailable, nil, "speech model returned no text for %s", id)
	}
	return Acquisition{Raw: raw, Source: transcript.SourceSpeechModel}, nil
}

// materialize downloads the audio track of id and transcodes it into dir.
func (s *SpeechModel) materialize(ctx context.Context, id youtube.VideoID, dir string) (string, error) {
	stream, err := s.audio.OpenAudio(ctx, id)
	if err != nil {
		if e := classify(err); e.Kind != InternalError {
			return "", e
		}
		return "", newError(AcquisitionFailed, err, "audio stream unavailable")
	}
	defer stream.Close()

	out := filepath.Join(dir, "audio.mp3")
	if err := s.ffmpeg.Transcode(ctx, stream, out); err != nil {
		if ctx.Err() != nil {
			return "", newError(AcquisitionFailed, err, "audio download cancelled")
		}
		return "", newError(AcquisitionFailed, err, "downloading or transcoding audio failed")
	}
	return out, nil
}

// rawFromResponse prefers provider phrases, then phrases grouped from word
// timing, then the whole text as one segment at zero.
func rawFromResponse(resp *transcribe.Response) []transcript.RawSegment {
	segs := resp.Segments
	if len(segs) == 0 {
		segs = transcribe.GroupWords(resp.Words, resp.Text)
	}
	if len(segs) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return nil
		}
		return []transcript.RawSegment{{Start: 0, Text: resp.Text}}
	}
	raw := make([]transcript.RawSegment, 0, len(segs))
	for _, seg := range segs {
		raw = append(raw, transcript.RawSegment{
			Start: time.Duration(seg.Start * float64(time.Second)),
			Text:  seg.Text,
		})
	}
	return raw
}
