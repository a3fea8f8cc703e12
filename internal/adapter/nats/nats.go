// Package nats implements the events reporter port using NATS JetStream.
// Turn lifecycle events and captured errors are published fire-and-forget
// so a slow or absent telemetry bus can never stall a turn.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const streamName = "PARLEY"

// Reporter implements events.Reporter over NATS JetStream.
type Reporter struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the telemetry
// stream exists.
func Connect(ctx context.Context, url string) (*Reporter, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"turns.>", "stages.>", "errors.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Reporter{nc: nc, js: js}, nil
}

// Publish sends a structured event to the given subject. Failures are
// logged, never returned: telemetry is not allowed to fail a turn.
func (r *Reporter) Publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("telemetry marshal failed", "subject", subject, "error", err)
		return
	}
	if _, err := r.js.Publish(ctx, subject, data); err != nil {
		slog.Warn("telemetry publish failed", "subject", subject, "error", err)
	}
}

// CaptureError records a non-fatal failure on the errors subject.
func (r *Reporter) CaptureError(ctx context.Context, scope string, err error) {
	r.Publish(ctx, "errors."+scope, map[string]any{
		"scope": scope,
		"error": err.Error(),
		"at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Close shuts down the NATS connection.
func (r *Reporter) Close() error {
	r.nc.Close()
	return nil
}
