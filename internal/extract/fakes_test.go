package extract

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/vidscribe/internal/transcribe"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

const testVideo = youtube.VideoID("dQw4w9WgXcQ")

type captionResult struct {
	raw []transcript.RawSegment
	err error
}

type fakeCaptions struct {
	mu      sync.Mutex
	results map[transcript.CaptionKind]captionResult
	calls   []transcript.CaptionKind
}

func (f *fakeCaptions) FetchCaptions(ctx context.Context, id youtube.VideoID, kind transcript.CaptionKind) ([]transcript.RawSegment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	f.mu.Unlock()
	r, ok := f.results[kind]
	if !ok {
		return nil, youtube.ErrNoCaptions
	}
	return r.raw, r.err
}

func (f *fakeCaptions) Calls() []transcript.CaptionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcript.CaptionKind(nil), f.calls...)
}

type fakeAudio struct {
	err    error
	opened int
}

func (f *fakeAudio) OpenAudio(ctx context.Context, id youtube.VideoID) (*youtube.AudioStream, error) {
	f.opened++
	if f.err != nil {
		return nil, f.err
	}
	return &youtube.AudioStream{ReadCloser: io.NopCloser(strings.NewReader("webm bytes")), Ext: "webm", Size: 10}, nil
}

type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) Transcode(ctx context.Context, src io.Reader, outPath string) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, b, 0o600)
}

type fakeProvider struct {
	fn        func(ctx context.Context, audioPath string) (*transcribe.Response, error)
	gotPath   string
	fileSeen  bool
	gotAPIKey string
}

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string, opts transcribe.TranscribeOpts) (*transcribe.Response, error) {
	f.gotPath = audioPath
	_, err := os.Stat(audioPath)
	f.fileSeen = err == nil
	return f.fn(ctx, audioPath)
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

type fakeMetadata struct {
	meta  transcript.Metadata
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeMetadata) Resolve(ctx context.Context, id youtube.VideoID) (transcript.Metadata, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return transcript.Metadata{}, f.err
	}
	m := f.meta
	m.VideoID = id.String()
	return m, nil
}

func (f *fakeMetadata) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testEnv bundles fakes behind a Selector wired with test hooks.
type testEnv struct {
	captions   *fakeCaptions
	audio      *fakeAudio
	transcoder *fakeTranscoder
	provider   *fakeProvider
	ffmpegErr  error
	tempDir    string
	timeout    time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		captions:   &fakeCaptions{results: map[transcript.CaptionKind]captionResult{}},
		audio:      &fakeAudio{},
		transcoder: &fakeTranscoder{},
		provider: &fakeProvider{fn: func(ctx context.Context, _ string) (*transcribe.Response, error) {
			return &transcribe.Response{Text: "hello"}, nil
		}},
		tempDir: t.TempDir(),
	}
}

func (e *testEnv) selector() *Selector {
	s := NewSelector(SelectorOptions{
		Captions: e.captions,
		Audio:    e.audio,
		Speech:   SpeechConfig{Provider: "openai", Timeout: e.timeout, TempDir: e.tempDir},
		Log:      zerolog.Nop(),
	})
	s.hooks = speechHooks{
		lookupFFmpeg: func(string) (Transcoder, error) {
			if e.ffmpegErr != nil {
				return nil, e.ffmpegErr
			}
			return e.transcoder, nil
		},
		newProvider: func(opts transcribe.ProviderOptions) (transcribe.Provider, error) {
			e.provider.gotAPIKey = opts.APIKey
			return e.provider, nil
		},
	}
	return s
}

// assertEmptyDir fails if dir contains anything.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("temp dir not cleaned up: %v", names)
	}
}

func wantKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Errorf("kind = %s, want %s (err: %v)", got, want, err)
	}
}

var errTransport = errors.New("connection reset by peer")
