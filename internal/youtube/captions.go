package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	yt "github.com/kkdai/youtube/v2"
	"github.com/snarg/vidscribe/internal/transcript"
)

// maxCaptionBytes bounds a single json3 payload.
const maxCaptionBytes = 8 << 20

// FetchCaptions returns the raw segments of the preferred caption track of the
// given kind. ErrNoCaptions is returned when no such track is published.
// Offsets are converted from the provider's milliseconds; order and duplicates
// are left as delivered.
func (c *Client) FetchCaptions(ctx context.Context, id VideoID, kind transcript.CaptionKind) ([]transcript.RawSegment, error) {
	video, err := c.Video(ctx, id)
	if err != nil {
		return nil, err
	}

	track, ok := pickTrack(video.CaptionTracks, kind, c.languages)
	if !ok {
		return nil, fmt.Errorf("%w: %s captions for %s", ErrNoCaptions, kind, id)
	}
	if needsPoToken(track.BaseURL) {
		return nil, fmt.Errorf("caption track %s requires a browser proof-of-origin token", track.LanguageCode)
	}

	c.log.Debug().
		Str("video_id", string(id)).
		Str("kind", string(kind)).
		Str("lang", track.LanguageCode).
		Msg("fetching caption track")

	body, err := c.fetchCaptionPayload(ctx, json3URL(track.BaseURL))
	if err != nil {
		return nil, err
	}
	return parseJSON3(body)
}

// pickTrack selects a caption track of the given kind, honouring language
// preference order. "asr" tracks are the platform's auto-generated captions.
func pickTrack(tracks []yt.CaptionTrack, kind transcript.CaptionKind, langs []string) (yt.CaptionTrack, bool) {
	var candidates []yt.CaptionTrack
	for _, t := range tracks {
		isAuto := t.Kind == "asr"
		if isAuto == (kind == transcript.CaptionAuto) {
			candidates = append(candidates, t)
		}
	}
	for _, lang := range langs {
		for _, t := range candidates {
			if matchesLanguage(t.LanguageCode, lang) {
				return t, true
			}
		}
	}
	return yt.CaptionTrack{}, false
}

// matchesLanguage treats "en" as matching "en", "en-US", "en-GB" etc.
// A preference of "*" matches any track.
func matchesLanguage(code, pref string) bool {
	if pref == "*" {
		return true
	}
	code, pref = strings.ToLower(code), strings.ToLower(pref)
	return code == pref || strings.HasPrefix(code, pref+"-")
}

// needsPoToken reports whether a caption URL can only be fetched from a browser.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

func json3URL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "&fmt=json3"
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()
	return u.String()
}

// fetchCaptionPayload GETs a caption URL, retrying rate limits and 5xx.
func (c *Client) fetchCaptionPayload(ctx context.Context, captionURL string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if isRetryableStatus(resp.StatusCode) {
			c.log.Debug().Int("status", resp.StatusCode).Msg("caption fetch retryable status")
			return nil, fmt.Errorf("caption fetch: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("caption fetch: status %d", resp.StatusCode))
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// json3 is YouTube's timed-text JSON format.
type json3 struct {
	Events []struct {
		TStartMs int64 `json:"tStartMs"`
		Segs     []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// parseJSON3 turns timed-text events into raw segments. Events without text
// runs (window/style events) are skipped. Runs are concatenated as delivered,
// since auto captions carry their own leading spaces.
func parseJSON3(body []byte) ([]transcript.RawSegment, error) {
	var doc json3
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode json3 captions: %w", err)
	}
	if doc.Events == nil {
		return nil, errors.New("decode json3 captions: no events field")
	}

	segs := make([]transcript.RawSegment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		segs = append(segs, transcript.RawSegment{
			Start: time.Duration(ev.TStartMs) * time.Millisecond,
			Text:  sb.String(),
		})
	}
	return segs, nil
}
