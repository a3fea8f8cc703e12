// Package skillrt implements the uniform runtime contract every
// skill-kind service honors: batched requests, an optional random seed
// for deterministic replay, and strict per-item fault isolation — one
// failing item becomes the neutral tuple, siblings are unaffected.
package skillrt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/port/events"
)

// Handler produces one result for one dialog context. seed is the
// per-request random seed (or the service default) so a replayed request
// reproduces its output.
type Handler func(ctx context.Context, dctx dialog.Context, seed int64) (dialog.SkillResult, error)

// Runtime wraps a skill's per-item handler with the batch contract.
type Runtime struct {
	name     string
	handler  Handler
	seed     int64
	reporter events.Reporter
}

// New creates a Runtime for the named skill. defaultSeed applies when a
// request carries no random_seed.
func New(name string, handler Handler, defaultSeed int64, reporter events.Reporter) *Runtime {
	if reporter == nil {
		reporter = events.Nop{}
	}
	return &Runtime{name: name, handler: handler, seed: defaultSeed, reporter: reporter}
}

// Name returns the skill name.
func (r *Runtime) Name() string { return r.name }

// DefaultSeed returns the seed used when a request does not provide one.
func (r *Runtime) DefaultSeed() int64 { return r.seed }

// Batch produces exactly one result per input context, in order. A panic
// or error while producing item i yields the neutral tuple at position i
// and never aborts the remaining items.
func (r *Runtime) Batch(ctx context.Context, contexts []dialog.Context, seed *int64) []dialog.SkillResult {
	s := r.seed
	if seed != nil {
		s = *seed
	}

	out := make([]dialog.SkillResult, len(contexts))
	for i := range contexts {
		out[i] = r.runOne(ctx, contexts[i], s, i)
	}
	return out
}

func (r *Runtime) runOne(ctx context.Context, dctx dialog.Context, seed int64, idx int) (res dialog.SkillResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.reporter.CaptureError(ctx, r.name, fmt.Errorf("item %d panicked: %v", idx, rec))
			slog.Error("skill item panicked", "skill", r.name, "item", idx, "panic", rec)
			res = dialog.NeutralResult()
		}
	}()

	result, err := r.handler(ctx, dctx, seed)
	if err != nil {
		r.reporter.CaptureError(ctx, r.name, fmt.Errorf("item %d: %w", idx, err))
		slog.Warn("skill item failed", "skill", r.name, "item", idx, "error", err)
		return dialog.NeutralResult()
	}
	return result
}
