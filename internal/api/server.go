package api

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/vidscribe/internal/config"
	"github.com/snarg/vidscribe/internal/metrics"
)

type Server struct {
	http   *http.Server
	log    zerolog.Logger
	cancel context.CancelFunc // ends every request context
	active atomic.Int64       // handlers currently running
}

// ServerOptions carries everything NewServer wires into the router.
type ServerOptions struct {
	Config    *config.Config
	Extractor Extractor
	Checks    []HealthCheck
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{log: opts.Log, cancel: cancel}
	router := NewRouter(opts)
	tracked := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.active.Add(1)
		defer s.active.Add(-1)
		router.ServeHTTP(w, r)
	})
	s.http = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      tracked,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// NewRouter builds the HTTP handler tree.
func NewRouter(opts ServerOptions) http.Handler {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Logger(opts.Log))
	r.Use(Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)

	// Health and metrics, no auth
	health := NewHealthHandler(opts.Version, opts.StartTime, opts.Checks...)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		r.Use(MaxBodySize(1 << 20))

		h := NewExtractHandler(opts.Extractor, ExtractDefaults{
			Method:     cfg.DefaultMethod,
			Format:     cfg.DefaultFormat,
			Credential: cfg.SpeechAPIKey(),
		})
		r.Post("/api/v1/extract", h.Post)
		r.Get("/api/v1/extract", h.Get)
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	return serveResult(s.http.ListenAndServe())
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info().Str("addr", l.Addr().String()).Msg("http server starting")
	return serveResult(s.http.Serve(l))
}

func serveResult(err error) error {
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for running ones until ctx
// ends. It then cancels the context of every request still running, so
// their cleanup can run; use Wait to block until they have returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.log.Warn().Err(err).Int64("active", s.active.Load()).Msg("cancelling in-flight requests")
	}
	s.cancel()
	return err
}

// Wait blocks until no handler is running or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	t := time.NewTicker(25 * time.Millisecond)
	defer t.Stop()
	for s.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
