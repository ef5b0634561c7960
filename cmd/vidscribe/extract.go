package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snarg/vidscribe/internal/config"
	"github.com/snarg/vidscribe/internal/extract"
	"github.com/snarg/vidscribe/internal/transcript"
)

type extractOptions struct {
	method          string
	format          string
	timeout         time.Duration
	provider        string
	jsonOut         bool
	output          string
	thumbnail       string
	fallbackWhisper bool
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract URL",
		Short: "Extract the transcript and metadata of a video",
		Example: `  # Published captions as plain text
  vidscribe extract "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

  # Timestamped markdown saved to a file
  vidscribe extract dQw4w9WgXcQ --format markdown -o transcript.md

  # Speech model transcription (needs OPENAI_API_KEY and ffmpeg)
  vidscribe extract dQw4w9WgXcQ --method whisper --timeout 5m

  # Captions, falling back to the speech model when none exist
  vidscribe extract dQw4w9WgXcQ --fallback-whisper --json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.method, "method", "", "Acquisition method: transcript or whisper (env: DEFAULT_METHOD)")
	f.StringVar(&opts.format, "format", "", "Output format: text or markdown (env: DEFAULT_FORMAT)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Speech model call timeout (env: SPEECH_TIMEOUT)")
	f.StringVar(&opts.provider, "provider", "", "Speech provider: openai, elevenlabs, deepinfra (env: SPEECH_PROVIDER)")
	f.BoolVar(&opts.jsonOut, "json", false, "Print the full result as JSON")
	f.StringVarP(&opts.output, "output", "o", "", "Write the transcript to a file instead of stdout")
	f.StringVar(&opts.thumbnail, "thumbnail", "", "Also save the video thumbnail to this path")
	f.BoolVar(&opts.fallbackWhisper, "fallback-whisper", false, "Use the speech model when the video has no captions")
	return cmd
}

func runExtract(cmd *cobra.Command, root *rootOptions, opts *extractOptions, reference string) error {
	if opts.timeout < 0 {
		return usageError("--timeout must not be negative")
	}
	cfg, err := loadConfig(root, config.Overrides{
		SpeechProvider: opts.provider,
		SpeechTimeout:  opts.timeout,
	})
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, true)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	x, client, err := buildExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}

	req := extract.Request{
		Reference:        reference,
		Method:           firstNonEmpty(opts.method, cfg.DefaultMethod),
		Format:           firstNonEmpty(opts.format, cfg.DefaultFormat),
		Credential:       cfg.SpeechAPIKey(),
		FallbackToSpeech: opts.fallbackWhisper,
	}
	res := x.Extract(ctx, req)

	stdout := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}

	s, ok := res.Success()
	if !ok {
		f, _ := res.Failure()
		return &extract.Error{Kind: f.Kind, Msg: f.Message}
	}

	if !opts.jsonOut {
		writeSummary(stdout, s)
	}
	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(s.Content), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info().Str("path", opts.output).Msg("transcript written")
	} else if !opts.jsonOut {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, strings.TrimRight(s.Content, "\n"))
	}

	if opts.thumbnail != "" {
		if err := saveThumbnail(ctx, client, s.Metadata.ThumbnailURL, opts.thumbnail); err != nil {
			return err
		}
		log.Info().Str("path", opts.thumbnail).Msg("thumbnail saved")
	}
	return nil
}

type thumbnailDownloader interface {
	DownloadThumbnail(ctx context.Context, url string, dst io.Writer) (int64, error)
}

// saveThumbnail downloads into a temp file next to path and renames it into
// place only once the download is complete; a failure leaves path untouched.
func saveThumbnail(ctx context.Context, dl thumbnailDownloader, url, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vidscribe-thumb-*")
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := dl.DownloadThumbnail(ctx, url, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}

// writeSummary prints the metadata block that precedes the transcript.
func writeSummary(w io.Writer, s extract.Success) {
	m := s.Metadata
	rating := ""
	if m.Rating != nil {
		rating = fmt.Sprintf("%d likes", m.Rating.Likes)
	}
	published := ""
	if !m.PublishedAt.IsZero() {
		published = m.PublishedAt.Format("2006-01-02")
	}

	fields := []struct{ key, value string }{
		{"video_id", m.VideoID},
		{"title", m.Title},
		{"thumbnail_url", m.ThumbnailURL},
		{"length", fmt.Sprintf("%d", int64(m.Duration.Seconds()))},
		{"views", fmt.Sprintf("%d", m.ViewCount)},
		{"author", m.ChannelName},
		{"channel_id", m.ChannelID},
		{"channel_url", m.ChannelURL},
		{"publish_date", published},
		{"rating", rating},
		{"keywords", strings.Join(m.Keywords, ", ")},
		{"age_restricted", fmt.Sprintf("%t", m.AgeRestricted)},
		{"transcript_source", sourceLabel(s)},
	}
	for _, f := range fields {
		fmt.Fprintf(w, "%s: %s\n", f.key, f.value)
	}
	if d := strings.TrimSpace(m.Description); d != "" {
		fmt.Fprintf(w, "description:\n%s\n", d)
	}
}

func sourceLabel(s extract.Success) string {
	if s.Source == transcript.SourceSpeechModel {
		return "whisper"
	}
	if s.CaptionKind == transcript.CaptionAuto {
		return "auto-generated"
	}
	return "manual"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
