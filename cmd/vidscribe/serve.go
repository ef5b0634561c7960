package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/snarg/vidscribe/internal/api"
	"github.com/snarg/vidscribe/internal/config"
	"github.com/snarg/vidscribe/internal/metrics"
)

// drainTimeout bounds the wait for cancelled requests to return.
const drainTimeout = 30 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction pipeline over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "HTTP listen address (env: HTTP_ADDR)")
	return cmd
}

func runServe(parent context.Context, root *rootOptions, addr string) error {
	startTime := time.Now()

	cfg, err := loadConfig(root, config.Overrides{HTTPAddr: addr})
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, false)
	log.Info().Str("version", version).Msg("vidscribe starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	x, _, err := buildExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}
	prometheus.MustRegister(metrics.NewCollector(x))

	if cfg.SpeechAPIKey() == "" {
		log.Warn().Str("provider", cfg.SpeechProvider).Msg("no speech API key configured; whisper requests need the " + api.CredentialHeader + " header")
	}

	checks := []api.HealthCheck{
		{Name: "ffmpeg", Check: ffmpegCheck(cfg.FFmpegPath)},
		{Name: "speech_credential", Check: configured(cfg.SpeechAPIKey())},
		{Name: "youtube_data_api", Check: configured(cfg.YouTubeAPIKey)},
	}

	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(api.ServerOptions{
		Config:    cfg,
		Extractor: x,
		Checks:    checks,
		Version:   version,
		StartTime: startTime,
		Log:       httpLog,
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout, then cancel what is still running
	// and give it time to remove its scratch files.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelDrain()
	if err := srv.Wait(drainCtx); err != nil {
		log.Error().Err(err).Int("in_flight", x.InFlight()).Msg("extractions still running at exit")
	}

	log.Info().Msg("vidscribe stopped")
	return serveErr
}

func configured(value string) func(context.Context) error {
	return func(context.Context) error {
		if value == "" {
			return api.ErrNotConfigured
		}
		return nil
	}
}
