package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/snarg/vidscribe/internal/transcribe"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"transcript", MethodTranscript, false},
		{"whisper", MethodWhisper, false},
		{" Whisper ", MethodWhisper, false},
		{"", "", true},
		{"ocr", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if tt.wantErr {
			wantKind(t, err, InvalidConfiguration)
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSelector_UnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.selector().Acquire(context.Background(), testVideo, Method("ocr"), "")
	wantKind(t, err, InvalidConfiguration)
}

func TestNativeCaption_PrefersManual(t *testing.T) {
	env := newTestEnv(t)
	env.captions.results[transcript.CaptionManual] = captionResult{raw: []transcript.RawSegment{
		{Start: 5 * time.Second, Text: "there"},
		{Start: 0, Text: "Hello &amp; <b>welcome</b>"},
	}}
	env.captions.results[transcript.CaptionAuto] = captionResult{raw: []transcript.RawSegment{{Text: "auto"}}}

	got, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := transcript.Transcript{
		Segments: []transcript.Segment{
			{Start: 0, Text: "Hello & welcome"},
			{Start: 5 * time.Second, Text: "there"},
		},
		Source:      transcript.SourceNativeCaption,
		CaptionKind: transcript.CaptionManual,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transcript (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]transcript.CaptionKind{transcript.CaptionManual}, env.captions.Calls()); diff != "" {
		t.Errorf("auto captions should not be fetched when manual exist (-want +got):\n%s", diff)
	}
}

func TestNativeCaption_FallsBackToAuto(t *testing.T) {
	env := newTestEnv(t)
	env.captions.results[transcript.CaptionAuto] = captionResult{raw: []transcript.RawSegment{{Start: time.Second, Text: "auto words"}}}

	got, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got.CaptionKind != transcript.CaptionAuto {
		t.Errorf("caption kind = %s, want auto", got.CaptionKind)
	}
	want := []transcript.CaptionKind{transcript.CaptionManual, transcript.CaptionAuto}
	if diff := cmp.Diff(want, env.captions.Calls()); diff != "" {
		t.Errorf("fetch order (-want +got):\n%s", diff)
	}
}

func TestNativeCaption_NoneAvailable(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	wantKind(t, err, NoTranscriptAvailable)
}

func TestNativeCaption_TransportFailureStops(t *testing.T) {
	env := newTestEnv(t)
	env.captions.results[transcript.CaptionManual] = captionResult{err: fmt.Errorf("caption payload: %w", errTransport)}
	env.captions.results[transcript.CaptionAuto] = captionResult{raw: []transcript.RawSegment{{Text: "never"}}}

	_, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	wantKind(t, err, AcquisitionFailed)
	if calls := env.captions.Calls(); len(calls) != 1 {
		t.Errorf("expected one fetch, got %v", calls)
	}
}

func TestNativeCaption_UnavailableVideo(t *testing.T) {
	env := newTestEnv(t)
	env.captions.results[transcript.CaptionManual] = captionResult{err: fmt.Errorf("%w: private", youtube.ErrUnavailable)}
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	wantKind(t, err, AcquisitionFailed)
}

func TestNativeCaption_OnlyMarkup(t *testing.T) {
	env := newTestEnv(t)
	env.captions.results[transcript.CaptionManual] = captionResult{raw: []transcript.RawSegment{{Text: "<i> </i>"}, {Text: "  "}}}
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	wantKind(t, err, NoTranscriptAvailable)
	want := []transcript.CaptionKind{transcript.CaptionManual, transcript.CaptionAuto}
	if diff := cmp.Diff(want, env.captions.Calls()); diff != "" {
		t.Errorf("fetch order (-want +got):\n%s", diff)
	}
}

func TestNativeCaption_BlankManualFallsBackToAuto(t *testing.T) {
	env := newTestEnv(t)
	env.captions.results[transcript.CaptionManual] = captionResult{raw: []transcript.RawSegment{{Text: "<i> </i>"}}}
	env.captions.results[transcript.CaptionAuto] = captionResult{raw: []transcript.RawSegment{{Start: 2 * time.Second, Text: "spoken words"}}}

	got, err := env.selector().Acquire(context.Background(), testVideo, MethodTranscript, "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := transcript.Transcript{
		Segments:    []transcript.Segment{{Start: 2 * time.Second, Text: "spoken words"}},
		Source:      transcript.SourceNativeCaption,
		CaptionKind: transcript.CaptionAuto,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transcript (-want +got):\n%s", diff)
	}
}

func TestSpeechModel_MissingCredential(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "")
	wantKind(t, err, MissingCredential)
	if env.audio.opened != 0 {
		t.Error("audio must not be opened without a credential")
	}
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_MissingFFmpeg(t *testing.T) {
	env := newTestEnv(t)
	env.ffmpegErr = fmt.Errorf("%w: ffmpeg", transcribe.ErrFFmpegNotFound)
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, MissingDependency)
	if env.audio.opened != 0 {
		t.Error("audio must not be opened without ffmpeg")
	}
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_Success(t *testing.T) {
	env := newTestEnv(t)
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		return &transcribe.Response{
			Text: "Hello world there",
			Segments: []transcribe.Segment{
				{Start: 0, End: 4.9, Text: " Hello world"},
				{Start: 5.25, End: 7, Text: " there"},
			},
		}, nil
	}

	got, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := transcript.Transcript{
		Segments: []transcript.Segment{
			{Start: 0, Text: "Hello world"},
			{Start: 5250 * time.Millisecond, Text: "there"},
		},
		Source: transcript.SourceSpeechModel,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transcript (-want +got):\n%s", diff)
	}
	if !env.provider.fileSeen {
		t.Error("provider was called before the audio file existed")
	}
	if env.provider.gotAPIKey != "sk-test" {
		t.Errorf("provider built with key %q", env.provider.gotAPIKey)
	}
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_WordsOnly(t *testing.T) {
	env := newTestEnv(t)
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		return &transcribe.Response{
			Text: "Hi. Bye.",
			Words: []transcribe.Word{
				{Word: "Hi.", Start: 0.5, End: 0.9},
				{Word: "Bye.", Start: 4, End: 4.5},
			},
		}, nil
	}
	got, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := []transcript.Segment{
		{Start: 500 * time.Millisecond, Text: "Hi."},
		{Start: 4 * time.Second, Text: "Bye."},
	}
	if diff := cmp.Diff(want, got.Segments); diff != "" {
		t.Errorf("segments (-want +got):\n%s", diff)
	}
}

func TestSpeechModel_TextOnly(t *testing.T) {
	env := newTestEnv(t)
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		return &transcribe.Response{Text: " just text "}, nil
	}
	got, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := []transcript.Segment{{Start: 0, Text: "just text"}}
	if diff := cmp.Diff(want, got.Segments); diff != "" {
		t.Errorf("segments (-want +got):\n%s", diff)
	}
}

func TestSpeechModel_EmptyText(t *testing.T) {
	env := newTestEnv(t)
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		return &transcribe.Response{Text: "   "}, nil
	}
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, NoTranscriptAvailable)
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_AuthenticationFailed(t *testing.T) {
	env := newTestEnv(t)
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		return nil, &transcribe.StatusError{Provider: "openai", StatusCode: http.StatusUnauthorized, Body: "bad key"}
	}
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-wrong")
	wantKind(t, err, AuthenticationFailed)
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_ProviderError(t *testing.T) {
	env := newTestEnv(t)
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		return nil, &transcribe.StatusError{Provider: "openai", StatusCode: http.StatusBadGateway}
	}
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, AcquisitionFailed)
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_Timeout(t *testing.T) {
	env := newTestEnv(t)
	env.timeout = 20 * time.Millisecond
	env.provider.fn = func(ctx context.Context, _ string) (*transcribe.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, AcquisitionFailed)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_CallerCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.provider.fn = func(pctx context.Context, _ string) (*transcribe.Response, error) {
		cancel()
		<-pctx.Done()
		return nil, pctx.Err()
	}
	_, err := env.selector().Acquire(ctx, testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, AcquisitionFailed)
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_AudioUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.audio.err = fmt.Errorf("%w: dQw4w9WgXcQ", youtube.ErrNoAudioStream)
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, AcquisitionFailed)
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_TranscodeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.err = errors.New("ffmpeg transcode: exit status 1")
	_, err := env.selector().Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, AcquisitionFailed)
	assertEmptyDir(t, env.tempDir)
}

func TestSpeechModel_MalformedProviderBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	env := newTestEnv(t)
	s := env.selector()
	s.hooks.newProvider = func(opts transcribe.ProviderOptions) (transcribe.Provider, error) {
		opts.BaseURL = srv.URL
		return transcribe.NewProvider(opts)
	}

	_, err := s.Acquire(context.Background(), testVideo, MethodWhisper, "sk-test")
	wantKind(t, err, NoTranscriptAvailable)
	if !errors.Is(err, transcribe.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse in chain, got %v", err)
	}
	assertEmptyDir(t, env.tempDir)
}
