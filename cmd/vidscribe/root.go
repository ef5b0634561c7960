package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/snarg/vidscribe/internal/config"
	"github.com/snarg/vidscribe/internal/extract"
	"github.com/snarg/vidscribe/internal/transcribe"
	"github.com/snarg/vidscribe/internal/youtube"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "vidscribe",
		Short:         "Extract transcripts and metadata from YouTube videos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Path to .env file (default: ./.env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError(err.Error())
	})

	cmd.AddCommand(
		newExtractCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "vidscribe", version)
		},
	}
}

// usageError reports bad command-line input with the configuration kind so
// it maps to exit code 2.
func usageError(msg string) error {
	return &extract.Error{Kind: extract.InvalidConfiguration, Msg: msg}
}

// exactArgs is cobra.ExactArgs with a classified error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err.Error())
		}
		return nil
	}
}

// exitCode maps an error onto the process exit status: 2 for configuration
// and reference problems, 1 for everything else.
func exitCode(err error) int {
	switch extract.KindOf(err) {
	case extract.InvalidConfiguration, extract.InvalidVideoReference:
		return 2
	}
	return 1
}

func loadConfig(opts *rootOptions, overrides config.Overrides) (*config.Config, error) {
	overrides.EnvFile = opts.envFile
	overrides.LogLevel = opts.logLevel
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, &extract.Error{Kind: extract.InvalidConfiguration, Msg: "loading configuration", Err: err}
	}
	return cfg, nil
}

// newLogger builds the process logger. The CLI logs human-readable lines to
// stderr so stdout stays clean for content; the server logs JSON to stdout.
func newLogger(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stdout
	if console {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// buildExtractor wires the platform client, metadata resolver and
// acquisition strategies into an Extractor.
func buildExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extract.Extractor, *youtube.Client, error) {
	ytLog := log.With().Str("component", "youtube").Logger()
	client := youtube.NewClient(youtube.ClientOptions{
		Languages: cfg.CaptionLanguages,
		Timeout:   cfg.PlatformTimeout,
		Log:       ytLog,
	})
	resolver, err := youtube.NewMetadataResolver(ctx, client, cfg.YouTubeAPIKey, ytLog)
	if err != nil {
		return nil, nil, &extract.Error{Kind: extract.InvalidConfiguration, Msg: "configuring YouTube Data API", Err: err}
	}

	exLog := log.With().Str("component", "extract").Logger()
	selector := extract.NewSelector(extract.SelectorOptions{
		Captions: client,
		Audio:    client,
		Speech: extract.SpeechConfig{
			Provider:   cfg.SpeechProvider,
			Model:      cfg.SpeechModel,
			BaseURL:    cfg.SpeechBaseURL(),
			Language:   cfg.SpeechLanguage,
			Timeout:    cfg.SpeechTimeout,
			FFmpegPath: cfg.FFmpegPath,
			TempDir:    cfg.TempDir,
		},
		Log: exLog,
	})
	x := extract.New(extract.Options{
		Selector: selector,
		Metadata: resolver,
		Log:      exLog,
	})
	return x, client, nil
}

// ffmpegCheck reports whether the speech toolchain is usable.
func ffmpegCheck(path string) func(context.Context) error {
	return func(context.Context) error {
		_, err := transcribe.LookupFFmpeg(path)
		return err
	}
}
