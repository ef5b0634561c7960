package extract

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

// Acquisition is the raw output of a strategy before normalization.
type Acquisition struct {
	Raw         []transcript.RawSegment
	Source      transcript.SourceMethod
	CaptionKind transcript.CaptionKind
}

// Strategy acquires raw transcript segments for one video.
type Strategy interface {
	Method() Method
	// Preflight checks local preconditions without touching the network.
	Preflight() error
	Acquire(ctx context.Context, id youtube.VideoID) (Acquisition, error)
}

// Selector resolves the requested Method into a Strategy and runs it.
type Selector struct {
	captions CaptionSource
	audio    AudioSource
	speech   SpeechConfig
	hooks    speechHooks
	log      zerolog.Logger
}

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	Captions CaptionSource
	Audio    AudioSource
	Speech   SpeechConfig
	Log      zerolog.Logger
}

// NewSelector creates a Selector.
func NewSelector(opts SelectorOptions) *Selector {
	return &Selector{
		captions: opts.Captions,
		audio:    opts.Audio,
		speech:   opts.Speech,
		hooks:    defaultSpeechHooks,
		log:      opts.Log,
	}
}

// Strategy returns the strategy for m. credential is only consulted by the
// speech strategy.
func (s *Selector) Strategy(m Method, credential string) (Strategy, error) {
	switch m {
	case MethodTranscript:
		return NewNativeCaption(s.captions, s.log), nil
	case MethodWhisper:
		return newSpeechModel(s.audio, s.speech, credential, s.hooks, s.log), nil
	}
	return nil, newError(InvalidConfiguration, nil, "unknown method %q", m)
}

// Acquire resolves m, preflights it and returns the normalized transcript.
func (s *Selector) Acquire(ctx context.Context, id youtube.VideoID, m Method, credential string) (transcript.Transcript, error) {
	st, err := s.Strategy(m, credential)
	if err != nil {
		return transcript.Transcript{}, err
	}
	if err := st.Preflight(); err != nil {
		return transcript.Transcript{}, classify(err)
	}
	return run(youtube.WithVideoMemo(ctx), id, st, nil)
}

// run executes primary and, only when it yields NoTranscriptAvailable,
// fallback. Both must already be preflighted.
func run(ctx context.Context, id youtube.VideoID, primary, fallback Strategy) (transcript.Transcript, error) {
	t, err := acquireNormalized(ctx, id, primary)
	if err == nil || fallback == nil || KindOf(err) != NoTranscriptAvailable {
		return t, err
	}
	return acquireNormalized(ctx, id, fallback)
}

func acquireNormalized(ctx context.Context, id youtube.VideoID, st Strategy) (transcript.Transcript, error) {
	acq, err := st.Acquire(ctx, id)
	if err != nil {
		return transcript.Transcript{}, classify(err)
	}
	t, err := transcript.Normalize(acq.Source, acq.CaptionKind, acq.Raw)
	if err != nil {
		return transcript.Transcript{}, classify(err)
	}
	return t, nil
}
