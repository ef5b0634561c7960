package extract

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/snarg/vidscribe/internal/metrics"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

// MetadataSource resolves descriptive attributes of a video.
type MetadataSource interface {
	Resolve(ctx context.Context, id youtube.VideoID) (transcript.Metadata, error)
}

// Request is one extraction. All fields are per-request; nothing is read
// from the environment during Extract.
type Request struct {
	Reference  string // watch/share/embed URL or bare video id
	Method     string
	Format     string
	Credential string // speech provider API key; only needed for whisper

	// FallbackToSpeech retries with the speech model when captions are
	// absent. The speech preconditions are checked up front when set.
	FallbackToSpeech bool
}

// Options configures an Extractor.
type Options struct {
	Selector *Selector
	Metadata MetadataSource
	Log      zerolog.Logger
}

// Extractor runs the full pipeline for a request and reports a Result.
type Extractor struct {
	selector *Selector
	metadata MetadataSource
	log      zerolog.Logger
	inFlight atomic.Int64
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	return &Extractor{
		selector: opts.Selector,
		metadata: opts.Metadata,
		log:      opts.Log,
	}
}

// InFlight returns the number of extractions currently running.
func (x *Extractor) InFlight() int { return int(x.inFlight.Load()) }

// Extract validates the request, acquires the transcript and metadata
// concurrently, and renders the content. Every failure is reported as
// exactly one Kind.
func (x *Extractor) Extract(ctx context.Context, req Request) Result {
	x.inFlight.Add(1)
	defer x.inFlight.Add(-1)

	start := time.Now()
	res := x.extract(ctx, req)

	outcome := "ok"
	if f, failed := res.Failure(); failed {
		outcome = string(f.Kind)
	}
	method := "invalid"
	if m, err := ParseMethod(req.Method); err == nil {
		method = string(m)
	}
	metrics.ExtractionsTotal.WithLabelValues(method, outcome).Inc()
	metrics.ExtractionDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return res
}

func (x *Extractor) extract(ctx context.Context, req Request) Result {
	log := x.log.With().Str("reference", req.Reference).Str("method", req.Method).Logger()

	format, err := parseFormat(req.Format)
	if err != nil {
		return x.fail(log, err)
	}
	method, err := ParseMethod(req.Method)
	if err != nil {
		return x.fail(log, err)
	}
	id, err := youtube.ParseVideoID(req.Reference)
	if err != nil {
		return x.fail(log, err)
	}
	log = log.With().Str("video_id", id.String()).Logger()

	primary, err := x.selector.Strategy(method, req.Credential)
	if err != nil {
		return x.fail(log, err)
	}
	var fallback Strategy
	if req.FallbackToSpeech && method == MethodTranscript {
		if fallback, err = x.selector.Strategy(MethodWhisper, req.Credential); err != nil {
			return x.fail(log, err)
		}
	}
	for _, st := range []Strategy{primary, fallback} {
		if st == nil {
			continue
		}
		if err := st.Preflight(); err != nil {
			return x.fail(log, err)
		}
	}

	var (
		meta transcript.Metadata
		t    transcript.Transcript
	)
	// Metadata and caption lookups share one player response.
	g, gctx := errgroup.WithContext(youtube.WithVideoMemo(ctx))
	g.Go(func() error {
		m, err := x.metadata.Resolve(gctx, id)
		if err != nil {
			if e := classify(err); e.Kind != InternalError {
				return e
			}
			return newError(AcquisitionFailed, err, "metadata lookup failed")
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		var err error
		t, err = run(gctx, id, primary, fallback)
		return err
	})
	if err := g.Wait(); err != nil {
		return x.fail(log, err)
	}

	content, err := transcript.Render(t, meta, format)
	if err != nil {
		return x.fail(log, err)
	}

	log.Info().
		Str("source", string(t.Source)).
		Str("caption_kind", string(t.CaptionKind)).
		Int("segments", len(t.Segments)).
		Msg("extraction complete")

	return Succeeded(Success{
		Metadata:    meta,
		Content:     content,
		Format:      format,
		Source:      t.Source,
		CaptionKind: t.CaptionKind,
	})
}

func (x *Extractor) fail(log zerolog.Logger, err error) Result {
	e := classify(err)
	switch e.Kind {
	case NoTranscriptAvailable:
		log.Info().Str("kind", string(e.Kind)).Msg(e.Msg)
	case InternalError:
		log.Error().Err(err).Str("kind", string(e.Kind)).Msg("extraction failed")
	default:
		log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("extraction failed")
	}
	return Failed(e)
}
