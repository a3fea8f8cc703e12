package resilience

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Probe checks one upstream dependency. A nil return means ready.
type Probe func(ctx context.Context) error

// WaitReady blocks until probe succeeds, retrying on a fixed interval
// with no attempt limit. The gate is bounded by ctx: cancelling the
// service lifetime context is the only way out short of readiness, so a
// service never starts serving against an unconfirmed dependency.
func WaitReady(ctx context.Context, name string, probe Probe, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := probe(ctx)
		if err == nil {
			slog.Info("upstream ready", "upstream", name, "attempts", attempt)
			return nil
		}
		slog.Warn("upstream not ready", "upstream", name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// HTTPProbe returns a Probe that GETs url and expects a 2xx status.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = &http.Client{Timeout: 4 * time.Second}
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
		}
		return nil
	}
}
