package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrFFmpegNotFound means no ffmpeg executable could be located.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// FFmpeg converts downloaded audio into a format speech providers accept.
type FFmpeg struct {
	path string
}

// LookupFFmpeg resolves the ffmpeg executable. An empty path searches PATH.
func LookupFFmpeg(path string) (*FFmpeg, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFFmpegNotFound, path, err)
	}
	return &FFmpeg{path: resolved}, nil
}

// Path returns the resolved executable path.
func (f *FFmpeg) Path() string { return f.path }

// Transcode reads audio from src and writes 16kHz mono MP3 to outPath.
// The process is killed when ctx is cancelled.
func (f *FFmpeg) Transcode(ctx context.Context, src io.Reader, outPath string) error {
	cmd := exec.CommandContext(ctx, f.path,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libmp3lame",
		"-b:a", "64k",
		"-y", outPath,
	)
	cmd.Stdin = src
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxErrorBody {
			msg = msg[len(msg)-maxErrorBody:]
		}
		return fmt.Errorf("ffmpeg transcode: %w: %s", err, msg)
	}
	return nil
}
