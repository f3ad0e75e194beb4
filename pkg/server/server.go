// Package server exposes the denoising pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
)

const (
	DefaultMaxUploadBytes = 64 << 20
	DefaultRequestTimeout = time.Minute

	shutdownTimeout = 10 * time.Second
)

type Options struct {
	Pipeline       denoise.Config
	MaxUploadBytes int64
	RequestTimeout time.Duration

	// SampleRate to resample uploads to; zero keeps the native rate.
	SampleRate audio.SampleRate

	// TempDir is the parent of the per-request scratch directories;
	// empty means os.TempDir().
	TempDir string

	// AllowedExtensions defaults to codec.Extensions().
	AllowedExtensions []string
}

func DefaultOptions() Options {
	return Options{
		Pipeline:       denoise.DefaultConfig(),
		MaxUploadBytes: DefaultMaxUploadBytes,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Server owns the estimator, which is shared by all requests.
type Server struct {
	Estimator estimator.Estimator
	Options   Options
}

func New(est estimator.Estimator, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.AllowedExtensions == nil {
		opts.AllowedExtensions = codec.Extensions()
	}
	return &Server{
		Estimator: est,
		Options:   opts,
	}
}

func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/process", http.TimeoutHandler(
		withLogger(ctx, http.HandlerFunc(s.handleProcess)),
		s.Options.RequestTimeout,
		`{"error":"request timeout"}`,
	))
	mux.Handle("/health", withLogger(ctx, http.HandlerFunc(s.handleHealth)))
	return withCORS(mux)
}

// Serve accepts connections on the listener until the context is done,
// then shuts the HTTP server down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) (_err error) {
	logger.Debugf(ctx, "Serve(%s)", listener.Addr())
	defer func() { logger.Debugf(ctx, "/Serve(%s): %v", listener.Addr(), _err) }()

	httpServer := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	shutdownDone := make(chan struct{})
	observability.Go(ctx, func(ctx context.Context) {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "unable to shutdown the HTTP server gracefully: %v", err)
		}
	})

	err := httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return fmt.Errorf("unable to serve: %w", err)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen '%s': %w", addr, err)
	}
	logger.Infof(ctx, "listening at %s", listener.Addr())
	return s.Serve(ctx, listener)
}
