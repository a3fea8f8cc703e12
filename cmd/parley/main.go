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
	"github.com/parleybot/parley/internal/adapter/stagehttp"
	"github.com/parleybot/parley/internal/adapter/ws"
	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/logger"
	"github.com/parleybot/parley/internal/orchestrator"
	"github.com/parleybot/parley/internal/pipeline"
	"github.com/parleybot/parley/internal/port/events"
	"github.com/parleybot/parley/internal/resilience"
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
		cfg.Server.ServiceName = "parley-agent"
	}

	log, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"pipeline_file", cfg.Pipeline.File,
		"max_parallel", cfg.Pipeline.MaxParallel,
	)

	ctx := context.Background()

	// Pipeline topology. A broken topology is fatal: the service must
	// not come up routing turns through a config it cannot trust.
	reg := pipeline.NewFormatterRegistry(nil)
	topo, err := pipeline.LoadFromFile(cfg.Pipeline.File, reg)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	slog.Info("pipeline loaded",
		"annotators", len(topo.Annotators),
		"skills", len(topo.Skills),
		"scorer", topo.Scorer != nil,
	)

	// Telemetry. Both the OTLP exporter and the NATS bus are optional;
	// the orchestrator degrades to no-op reporters without them.
	shutdownOtel, err := potel.Init(ctx, cfg.Server.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(sctx)
	}()

	metrics, err := potel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	var reporter events.Reporter = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := pnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nc.Close() }()
		reporter = nc
	}

	// Stage transport with per-stage circuit breakers.
	breakers := resilience.NewGroup(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	caller := stagehttp.New(breakers, cfg.Pipeline.StageTimeout)

	hub := ws.NewHub()

	orch := orchestrator.New(topo, caller,
		orchestrator.WithReporter(reporter),
		orchestrator.WithBroadcaster(hub),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithMaxParallel(cfg.Pipeline.MaxParallel),
	)

	handlers := &phttp.AgentHandlers{
		Orchestrator: orch,
		Topology:     topo,
		ServiceName:  cfg.Server.ServiceName,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(phttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(potel.HTTPMiddleware(cfg.Server.ServiceName))

	r.Get("/ws", hub.HandleWS)
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
