package extract

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/snarg/vidscribe/internal/metrics"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

// CaptionSource fetches a published caption track. youtube.ErrNoCaptions
// means the track kind is absent.
type CaptionSource interface {
	FetchCaptions(ctx context.Context, id youtube.VideoID, kind transcript.CaptionKind) ([]transcript.RawSegment, error)
}

// NativeCaption acquires the platform's captions: manual first, then auto.
type NativeCaption struct {
	src CaptionSource
	log zerolog.Logger
}

// NewNativeCaption creates the caption strategy.
func NewNativeCaption(src CaptionSource, log zerolog.Logger) *NativeCaption {
	return &NativeCaption{src: src, log: log}
}

func (n *NativeCaption) Method() Method { return MethodTranscript }

// Preflight has nothing to check; captions need no local resources.
func (n *NativeCaption) Preflight() error { return nil }

// Acquire tries manual captions, then auto captions. The second lookup only
// starts after the first has definitively reported absence, or returned a
// track with no usable text.
func (n *NativeCaption) Acquire(ctx context.Context, id youtube.VideoID) (Acquisition, error) {
	for _, kind := range []transcript.CaptionKind{transcript.CaptionManual, transcript.CaptionAuto} {
		raw, err := n.src.FetchCaptions(ctx, id, kind)
		switch {
		case err == nil && hasText(kind, raw):
			metrics.CaptionFetchesTotal.WithLabelValues(string(kind), "found").Inc()
			n.log.Debug().Str("video_id", id.String()).Str("kind", string(kind)).Int("segments", len(raw)).Msg("captions found")
			return Acquisition{Raw: raw, Source: transcript.SourceNativeCaption, CaptionKind: kind}, nil
		case err == nil:
			// Published but blank once cleaned; treat like a missing track.
			metrics.CaptionFetchesTotal.WithLabelValues(string(kind), "empty").Inc()
			n.log.Debug().Str("video_id", id.String()).Str("kind", string(kind)).Msg("captions empty after normalization")
			continue
		case errors.Is(err, youtube.ErrNoCaptions):
			metrics.CaptionFetchesTotal.WithLabelValues(string(kind), "absent").Inc()
			continue
		}
		metrics.CaptionFetchesTotal.WithLabelValues(string(kind), "error").Inc()
		if e := classify(err); e.Kind != InternalError {
			return Acquisition{}, e
		}
		return Acquisition{}, newError(AcquisitionFailed, err, "fetching %s captions failed", kind)
	}
	return Acquisition{}, newError(NoTranscriptAvailable, nil, "video %s has no usable manual or auto captions", id)
}

// hasText reports whether raw survives normalization with at least one segment.
func hasText(kind transcript.CaptionKind, raw []transcript.RawSegment) bool {
	_, err := transcript.Normalize(transcript.SourceNativeCaption, kind, raw)
	return !errors.Is(err, transcript.ErrEmpty)
}
