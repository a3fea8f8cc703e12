// Command echoskill is a reference skill service. It templates a reply
// from the last human utterance so pipeline topologies can be exercised
// end to end without a real model behind the skill contract.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
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
	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/logger"
	"github.com/parleybot/parley/internal/port/events"
	"github.com/parleybot/parley/internal/resilience"
	"github.com/parleybot/parley/internal/skillrt"
)

var templates = []string{
	"You said: %s",
	"I heard you say %q.",
	"Let's talk more about %q.",
}

// echo replies with a seeded template around the last human utterance.
// The seed makes replies reproducible for a given turn.
func echo(_ context.Context, dctx dialog.Context, seed int64) (dialog.SkillResult, error) {
	last, ok := dctx.LastUtterance()
	if !ok || last.Text == "" {
		return dialog.SkillResult{}, errors.New("empty dialog context")
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic replies, not crypto
	tmpl := templates[rng.Intn(len(templates))]

	return dialog.SkillResult{
		Text:       fmt.Sprintf(tmpl, last.Text),
		Confidence: 0.5,
		Attrs:      map[string]any{"can_continue": "no"},
	}, nil
}

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
		cfg.Server.ServiceName = "echoskill"
	}

	log, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	ctx := context.Background()

	// Skills with an upstream dependency block until it answers its
	// health endpoint. Startup order across services is not guaranteed,
	// so this polls rather than failing fast.
	if cfg.Skill.UpstreamURL != "" {
		probe := resilience.HTTPProbe(http.DefaultClient, cfg.Skill.UpstreamURL)
		if err := resilience.WaitReady(ctx, "upstream", probe, cfg.Skill.ReadyInterval); err != nil {
			return fmt.Errorf("upstream readiness: %w", err)
		}
	}

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

	rt := skillrt.New(cfg.Server.ServiceName, echo, cfg.Skill.Seed, reporter)
	handlers := &phttp.SkillHandlers{Runtime: rt}

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
