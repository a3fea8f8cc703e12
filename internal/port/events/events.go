// Package events defines the port interface for the observability
// collaborator: turn lifecycle events and non-fatal error capture.
package events

import "context"

// Reporter receives pipeline telemetry. Implementations must be safe for
// concurrent use and must never fail a turn: reporting is fire-and-forget.
type Reporter interface {
	// Publish emits a structured event on the given subject.
	Publish(ctx context.Context, subject string, payload any)
	// CaptureError records a non-fatal failure scoped to one unit of work.
	CaptureError(ctx context.Context, scope string, err error)
}

// Nop is a Reporter that discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, string, any)        {}
func (Nop) CaptureError(context.Context, string, error) {}
