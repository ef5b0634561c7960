package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidVideoID means the input does not identify exactly one video.
	ErrInvalidVideoID = errors.New("invalid video reference")
	// ErrNoCaptions means the platform publishes no caption track of the requested kind.
	ErrNoCaptions = errors.New("no caption track of requested kind")
	// ErrUnavailable covers private, login-walled, region-blocked and removed videos.
	ErrUnavailable = errors.New("video unavailable")
	// ErrNoAudioStream means the video exposes no downloadable audio format.
	ErrNoAudioStream = errors.New("no downloadable audio stream")
)

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID is a parsed 11-character YouTube video identifier.
type VideoID string

func (id VideoID) String() string { return string(id) }

// URL returns the canonical watch URL.
func (id VideoID) URL() string { return "https://www.youtube.com/watch?v=" + string(id) }

// ParseVideoID accepts a watch/share/embed/shorts URL or a bare id.
func ParseVideoID(raw string) (VideoID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidVideoID)
	}
	id, err := yt.ExtractVideoID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidVideoID, raw, err)
	}
	if !videoIDRE.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideoID, raw)
	}
	return VideoID(id), nil
}

// ClientOptions configures the platform client.
type ClientOptions struct {
	Languages []string      // caption language preference, most preferred first
	Timeout   time.Duration // per HTTP request, not for stream bodies
	Log       zerolog.Logger
}

// Client wraps the YouTube player API for caption and audio retrieval.
// Transient HTTP failures on caption payloads are retried here so callers only
// ever see a final outcome.
type Client struct {
	yt        *yt.Client
	player    func(ctx context.Context, id string) (*yt.Video, error)
	http      *http.Client
	timeout   time.Duration
	languages []string
	log       zerolog.Logger
}

// NewClient creates a platform client.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	c := &Client{
		// Stream downloads can legitimately take longer than one request timeout;
		// they are bounded by the caller's context instead.
		yt:        &yt.Client{HTTPClient: &http.Client{}},
		http:      &http.Client{Timeout: timeout},
		timeout:   timeout,
		languages: langs,
		log:       opts.Log,
	}
	c.player = c.yt.GetVideoContext
	return c
}

type videoMemoKey struct{}

// videoMemo shares player responses between the lookups of one extraction.
type videoMemo struct {
	group  singleflight.Group
	mu     sync.Mutex
	videos map[VideoID]*yt.Video
}

// WithVideoMemo returns a context under which Client.Video fetches each
// player response at most once. Scope it to a single extraction; nothing is
// shared between contexts.
func WithVideoMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, videoMemoKey{}, &videoMemo{videos: map[VideoID]*yt.Video{}})
}

// Video fetches the player response for id, reusing the one already fetched
// under the same WithVideoMemo context. Failed lookups are not remembered.
func (c *Client) Video(ctx context.Context, id VideoID) (*yt.Video, error) {
	memo, _ := ctx.Value(videoMemoKey{}).(*videoMemo)
	if memo == nil {
		return c.fetchVideo(ctx, id)
	}

	memo.mu.Lock()
	v, ok := memo.videos[id]
	memo.mu.Unlock()
	if ok {
		return v, nil
	}

	res, err, _ := memo.group.Do(string(id), func() (any, error) {
		memo.mu.Lock()
		v, ok := memo.videos[id]
		memo.mu.Unlock()
		if ok {
			return v, nil
		}
		v, err := c.fetchVideo(ctx, id)
		if err != nil {
			return nil, err
		}
		memo.mu.Lock()
		memo.videos[id] = v
		memo.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*yt.Video), nil
}

// fetchVideo performs one player lookup, bounded by the client timeout.
func (c *Client) fetchVideo(ctx context.Context, id VideoID) (*yt.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, err := c.player(ctx, string(id))
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// classify maps library errors onto this package's sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, yt.ErrInvalidCharactersInVideoID),
		errors.Is(err, yt.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %v", ErrInvalidVideoID, err)
	case errors.Is(err, yt.ErrVideoPrivate),
		errors.Is(err, yt.ErrLoginRequired),
		errors.Is(err, yt.ErrNotPlayableInEmbed):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var statusErr *yt.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, statusErr.Status, statusErr.Reason)
	}
	return fmt.Errorf("youtube player: %w", err)
}
