package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	phttp "github.com/parleybot/parley/internal/adapter/http"
	pnats "github.com/parleybot/parley/internal/adapter/nats"
	potel "github.com/parleybot/parley/internal/adapter/otel"
	"github.com/parleybot/parley/internal/adapter/ristretto"
	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/logger"
	"github.com/parleybot/parley/internal/port/events"
	"github.com/parleybot/parley/internal/scorer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Server.ServiceName == "" {
		cfg.Server.ServiceName = "parley-scorer"
	}

	log, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	ctx := context.Background()

	// Model load and self-test are fatal. Serving traffic with a model
	// that cannot reproduce a known score would silently zero out every
	// hypothesis ranking downstream.
	model, err := scorer.LoadModel(cfg.Scorer.ModelPath)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	slog.Info("model loaded", "path", cfg.Scorer.ModelPath, "features", model.Dim())

	shutdownOtel, err := potel.Init(ctx, cfg.Server.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(sctx)
	}()

	var reporter events.Reporter = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := pnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nc.Close() }()
		reporter = nc
	}

	opts := []scorer.Option{scorer.WithReporter(reporter)}
	if cfg.Scorer.CacheSizeMB > 0 {
		scoreCache, err := ristretto.New(cfg.Scorer.CacheSizeMB, cfg.Scorer.CacheTTL)
		if err != nil {
			return fmt.Errorf("score cache: %w", err)
		}
		defer scoreCache.Close()
		opts = append(opts, scorer.WithCache(scoreCache))
	}

	sc, err := scorer.New(model, scorer.StandardExtractor{}, opts...)
	if err != nil {
		return fmt.Errorf("scorer: %w", err)
	}
	if err := sc.SelfTest(ctx); err != nil {
		return fmt.Errorf("self-test: %w", err)
	}
	slog.Info("self-test passed")

	handlers := &phttp.ScorerHandlers{
		Scorer:      sc,
		ServiceName: cfg.Server.ServiceName,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(phttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(potel.HTTPMiddleware(cfg.Server.ServiceName))

	r.Group(handlers.Routes)

	return serve(cfg.Server.Port, r)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then drains.
func serve(port string, handler http.Handler) error {
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
