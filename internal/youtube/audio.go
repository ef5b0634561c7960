package youtube

import (
	"context"
	"fmt"
	"io"
	"strings"

	yt "github.com/kkdai/youtube/v2"
)

// AudioStream is an open audio download. Ext is a file extension hint
// derived from the container mime type.
type AudioStream struct {
	io.ReadCloser
	Ext  string
	Size int64
}

// OpenAudio resolves the best audio-only format of a video and opens it.
// The caller owns closing the stream.
func (c *Client) OpenAudio(ctx context.Context, id VideoID) (*AudioStream, error) {
	video, err := c.Video(ctx, id)
	if err != nil {
		return nil, err
	}

	format, ok := pickAudioFormat(video.Formats)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAudioStream, id)
	}

	rc, size, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("open audio stream itag=%d: %w", format.ItagNo, err)
	}

	c.log.Debug().
		Str("video_id", string(id)).
		Int("itag", format.ItagNo).
		Str("mime", format.MimeType).
		Int64("size", size).
		Msg("audio stream opened")

	return &AudioStream{ReadCloser: rc, Ext: mimeToExt(format.MimeType), Size: size}, nil
}

// pickAudioFormat prefers audio-only formats and, among them, the highest bitrate.
func pickAudioFormat(formats yt.FormatList) (*yt.Format, bool) {
	var best *yt.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best, best != nil
}

func mimeToExt(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mime, "audio/mp4"):
		return ".m4a"
	case strings.HasPrefix(mime, "audio/mpeg"):
		return ".mp3"
	}
	return ".audio"
}
