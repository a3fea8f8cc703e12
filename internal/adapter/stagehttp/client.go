// Package stagehttp implements the stage caller port over HTTP+JSON, the
// transport every stage service speaks in the reference deployment.
package stagehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parleybot/parley/internal/adapter/otel"
	"github.com/parleybot/parley/internal/pipeline"
	"github.com/parleybot/parley/internal/resilience"
)

// Client calls stage services over HTTP. Every call carries its own
// timeout and passes through the stage's circuit breaker; a failure here
// is a TransportError the orchestrator converts to a per-call fallback.
type Client struct {
	http           *http.Client
	breakers       *resilience.Group
	defaultTimeout time.Duration
}

// New creates a Client. breakers may be shared across callers so that a
// stage's circuit state is process-wide.
func New(breakers *resilience.Group, defaultTimeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Transport: otel.Transport(http.DefaultTransport),
		},
		breakers:       breakers,
		defaultTimeout: defaultTimeout,
	}
}

// Call POSTs the JSON payload to the stage's transport target and returns
// the raw response body.
func (c *Client) Call(ctx context.Context, spec *pipeline.StageSpec, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("stage %s: encode request: %w", spec.Name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, spec.CallTimeout(c.defaultTimeout))
	defer cancel()

	var raw json.RawMessage
	err = c.breakers.For(spec.Name).Execute(func() error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, spec.URL(), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		raw, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", spec.Name, err)
	}
	return raw, nil
}
