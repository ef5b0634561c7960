package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	yt "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/snarg/vidscribe/internal/transcript"
	ytdata "google.golang.org/api/youtube/v3"
)

func TestParseVideoID(t *testing.T) {
	valid := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"dQw4w9WgXcQ":                                          "dQw4w9WgXcQ",
		"  https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42 ": "dQw4w9WgXcQ",
	}
	for in, want := range valid {
		got, err := ParseVideoID(in)
		if err != nil {
			t.Errorf("ParseVideoID(%q): %v", in, err)
			continue
		}
		if string(got) != want {
			t.Errorf("ParseVideoID(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "   ", "short", "not a video id!!"} {
		if _, err := ParseVideoID(in); !errors.Is(err, ErrInvalidVideoID) {
			t.Errorf("ParseVideoID(%q) err = %v, want ErrInvalidVideoID", in, err)
		}
	}
}

func TestPickTrack(t *testing.T) {
	tracks := []yt.CaptionTrack{
		{LanguageCode: "de", BaseURL: "de-manual"},
		{LanguageCode: "en", Kind: "asr", BaseURL: "en-auto"},
		{LanguageCode: "en-GB", BaseURL: "en-gb-manual"},
	}

	tr, ok := pickTrack(tracks, transcript.CaptionManual, []string{"en"})
	if !ok || tr.BaseURL != "en-gb-manual" {
		t.Errorf("manual en = %+v, %v; want en-gb-manual", tr, ok)
	}

	tr, ok = pickTrack(tracks, transcript.CaptionAuto, []string{"en"})
	if !ok || tr.BaseURL != "en-auto" {
		t.Errorf("auto en = %+v, %v; want en-auto", tr, ok)
	}

	tr, ok = pickTrack(tracks, transcript.CaptionManual, []string{"fr", "de"})
	if !ok || tr.BaseURL != "de-manual" {
		t.Errorf("manual fr,de = %+v, %v; want de-manual", tr, ok)
	}

	if _, ok := pickTrack(tracks, transcript.CaptionAuto, []string{"de"}); ok {
		t.Error("auto de should be absent")
	}

	if _, ok := pickTrack(nil, transcript.CaptionManual, []string{"*"}); ok {
		t.Error("no tracks should be absent")
	}
}

func TestParseJSON3(t *testing.T) {
	body := []byte(`{
		"wireMagic": "pb3",
		"events": [
			{"tStartMs": 0, "dDurationMs": 5000, "id": 1, "wpWinPosId": 1},
			{"tStartMs": 1200, "dDurationMs": 2000, "segs": [{"utf8": "hello"}, {"utf8": " world", "tOffsetMs": 400}]},
			{"tStartMs": 800, "segs": [{"utf8": "first"}]},
			{"tStartMs": 3000, "segs": [{"utf8": "\n"}]}
		]
	}`)

	got, err := parseJSON3(body)
	if err != nil {
		t.Fatalf("parseJSON3: %v", err)
	}
	want := []transcript.RawSegment{
		{Start: 1200 * time.Millisecond, Text: "hello world"},
		{Start: 800 * time.Millisecond, Text: "first"},
		{Start: 3 * time.Second, Text: "\n"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON3_Malformed(t *testing.T) {
	for _, body := range []string{"", "<transcript/>", `{"wireMagic":"pb3"}`} {
		if _, err := parseJSON3([]byte(body)); err == nil {
			t.Errorf("parseJSON3(%q) expected error", body)
		}
	}
}

func TestJSON3URL(t *testing.T) {
	got := json3URL("https://www.youtube.com/api/timedtext?v=abc&lang=en&fmt=srv3")
	want := "https://www.youtube.com/api/timedtext?fmt=json3&lang=en&v=abc"
	if got != want {
		t.Errorf("json3URL = %q, want %q", got, want)
	}
}

func TestFetchCaptionPayload_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Log: zerolog.Nop()})
	body, err := c.fetchCaptionPayload(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetchCaptionPayload: %v", err)
	}
	if string(body) != `{"events":[]}` {
		t.Errorf("body = %q", body)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchCaptionPayload_PermanentStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Log: zerolog.Nop()})
	if _, err := c.fetchCaptionPayload(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 403")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 403)", calls.Load())
	}
}

func TestPickAudioFormat(t *testing.T) {
	formats := yt.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000},
	}
	f, ok := pickAudioFormat(formats)
	if !ok || f.ItagNo != 251 {
		t.Errorf("pickAudioFormat = %+v, %v; want itag 251", f, ok)
	}
	if mimeToExt(f.MimeType) != ".webm" {
		t.Errorf("ext = %q, want .webm", mimeToExt(f.MimeType))
	}

	if _, ok := pickAudioFormat(formats[:1]); ok {
		t.Error("video-only list should yield no audio format")
	}
}

func TestFromDataVideo(t *testing.T) {
	v := &ytdata.Video{
		Id: "dQw4w9WgXcQ",
		Snippet: &ytdata.VideoSnippet{
			Title:        "Title",
			Description:  "Desc",
			ChannelTitle: "Channel",
			ChannelId:    "UC123",
			PublishedAt:  "2009-10-25T06:57:33Z",
			Tags:         []string{"a", "b"},
			Thumbnails: &ytdata.ThumbnailDetails{
				Default: &ytdata.Thumbnail{Url: "default.jpg"},
				High:    &ytdata.Thumbnail{Url: "high.jpg"},
			},
		},
		Statistics:     &ytdata.VideoStatistics{ViewCount: 1000, LikeCount: 10},
		ContentDetails: &ytdata.VideoContentDetails{Duration: "PT3M33S"},
	}

	got := fromDataVideo(v, zerolog.Nop())
	want := transcript.Metadata{
		VideoID:      "dQw4w9WgXcQ",
		Title:        "Title",
		Description:  "Desc",
		ChannelName:  "Channel",
		ChannelID:    "UC123",
		ChannelURL:   "https://www.youtube.com/channel/UC123",
		PublishedAt:  time.Date(2009, 10, 25, 6, 57, 33, 0, time.UTC),
		Duration:     3*time.Minute + 33*time.Second,
		ViewCount:    1000,
		Rating:       &transcript.Rating{Likes: 10},
		Keywords:     []string{"a", "b"},
		ThumbnailURL: "high.jpg",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestFromPlayer(t *testing.T) {
	v := &yt.Video{
		ID:        "dQw4w9WgXcQ",
		Title:     "Title",
		Author:    "Channel",
		ChannelID: "UC123",
		Views:     42,
		Thumbnails: yt.Thumbnails{
			{URL: "small.jpg", Width: 120},
			{URL: "large.jpg", Width: 1280},
		},
	}
	got := fromPlayer(v)
	if got.ThumbnailURL != "large.jpg" {
		t.Errorf("ThumbnailURL = %q, want large.jpg", got.ThumbnailURL)
	}
	if got.ViewCount != 42 || got.ChannelName != "Channel" {
		t.Errorf("unexpected metadata: %+v", got)
	}
	if got.Keywords == nil || got.Rating != nil {
		t.Errorf("Keywords = %v, Rating = %v; want empty slice and nil", got.Keywords, got.Rating)
	}
}
