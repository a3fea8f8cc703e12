// Package orchestrator drives one dialog turn through the configured
// pipeline stages: annotators, skill selectors, skills, the scorer,
// response selectors and postprocessors. Every stage call is isolated —
// a broken dependency degrades its own contribution and nothing else —
// and every turn ends with exactly one reply.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parleybot/parley/internal/adapter/otel"
	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/logger"
	"github.com/parleybot/parley/internal/pipeline"
	"github.com/parleybot/parley/internal/port/broadcast"
	"github.com/parleybot/parley/internal/port/events"
	"github.com/parleybot/parley/internal/port/stage"
)

// State is one phase of the per-turn state machine.
type State string

const (
	StateCollectingAnnotations State = "collecting_annotations"
	StateSelectingSkills       State = "selecting_skills"
	StateDispatchingSkills     State = "dispatching_skills"
	StateScoring               State = "scoring"
	StateSelectingResponse     State = "selecting_response"
	StatePostprocessing        State = "postprocessing"
	StateDone                  State = "done"
)

// Orchestrator executes turns against a fixed, validated pipeline
// topology. The topology and all collaborators are set at construction
// and never change, so concurrent turns share the Orchestrator freely.
type Orchestrator struct {
	topo        *pipeline.Config
	caller      stage.Caller
	reporter    events.Reporter
	hub         broadcast.Broadcaster
	metrics     *otel.Metrics
	maxParallel int
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithReporter attaches the observability collaborator.
func WithReporter(r events.Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithBroadcaster attaches the debug event hub.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(o *Orchestrator) { o.hub = b }
}

// WithMetrics attaches pipeline metric instruments.
func WithMetrics(m *otel.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMaxParallel bounds fan-out concurrency per stage.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// New creates an Orchestrator over a validated topology.
func New(topo *pipeline.Config, caller stage.Caller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		topo:        topo,
		caller:      caller,
		reporter:    events.Nop{},
		hub:         broadcast.Nop{},
		maxParallel: 8,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond runs one turn to completion and returns the chosen reply. It
// never fails: when every skill falls back, the reply is the neutral
// empty hypothesis after postprocessing.
func (o *Orchestrator) Respond(ctx context.Context, dctx dialog.Context) (dialog.ScoredHypothesis, string) {
	turnID := uuid.NewString()
	ctx = logger.WithTurnID(ctx, turnID)
	ctx, span := otel.StartTurnSpan(ctx, turnID)
	defer span.End()

	start := time.Now()
	if o.metrics != nil {
		o.metrics.TurnsStarted.Add(ctx, 1)
	}
	o.reporter.Publish(ctx, "turns.started", map[string]any{
		"turn_id": turnID, "utterances": len(dctx.Utterances),
	})

	o.setState(ctx, turnID, StateCollectingAnnotations)
	o.collectAnnotations(ctx, &dctx)

	o.setState(ctx, turnID, StateSelectingSkills)
	chosen := o.selectSkills(ctx, dctx)

	o.setState(ctx, turnID, StateDispatchingSkills)
	hyps := o.dispatchSkills(ctx, dctx, chosen)

	o.setState(ctx, turnID, StateScoring)
	scored := o.scoreHypotheses(ctx, dctx, hyps)

	o.setState(ctx, turnID, StateSelectingResponse)
	winner := o.selectResponse(ctx, dctx, scored)

	o.setState(ctx, turnID, StatePostprocessing)
	winner = o.postprocess(ctx, dctx, winner)

	o.setState(ctx, turnID, StateDone)
	if o.metrics != nil {
		o.metrics.TurnsCompleted.Add(ctx, 1)
		o.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	}
	o.reporter.Publish(ctx, "turns.completed", map[string]any{
		"turn_id":    turnID,
		"skill":      winner.SkillName,
		"confidence": winner.FinalConfidence,
	})
	slog.Info("turn completed",
		"turn_id", turnID,
		"skill", winner.SkillName,
		"confidence", winner.FinalConfidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return winner, turnID
}

func (o *Orchestrator) setState(ctx context.Context, turnID string, s State) {
	slog.Debug("turn state", "turn_id", turnID, "state", s)
	o.hub.Broadcast(ctx, "turn_state", map[string]string{
		"turn_id": turnID,
		"state":   string(s),
	})
}

// stageResult is one fan-out slot. A nil output means the call fell back;
// slots keep the configured stage order so downstream tie-breaking stays
// deterministic.
type stageResult struct {
	spec *pipeline.StageSpec
	out  *pipeline.StageOutput
}

// fanOut issues one concurrent call per stage service and waits for all
// of them to complete or fall back. A failed call only empties its own
// slot; siblings and the turn itself are unaffected.
func (o *Orchestrator) fanOut(ctx context.Context, specs []pipeline.StageSpec, payload any) []stageResult {
	results := make([]stageResult, len(specs))

	var g errgroup.Group
	g.SetLimit(o.maxParallel)
	for i := range specs {
		spec := &specs[i]
		results[i].spec = spec
		g.Go(func() error {
			results[i].out = o.callStage(ctx, spec, payload)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// callStage performs one stage call and normalizes the response. Any
// failure is reported and converted to nil, the per-call fallback marker.
func (o *Orchestrator) callStage(ctx context.Context, spec *pipeline.StageSpec, payload any) *pipeline.StageOutput {
	ctx, span := otel.StartStageSpan(ctx, string(spec.Kind()), spec.Name)
	defer span.End()
	start := time.Now()

	raw, err := o.caller.Call(ctx, spec, payload)
	var out *pipeline.StageOutput
	if err == nil {
		out, err = spec.Normalize(raw)
	}

	if o.metrics != nil {
		o.metrics.StageDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		o.stageFallback(ctx, spec, err)
		return nil
	}
	return out
}

func (o *Orchestrator) stageFallback(ctx context.Context, spec *pipeline.StageSpec, err error) {
	if o.metrics != nil {
		o.metrics.StageFallbacks.Add(ctx, 1)
	}
	o.reporter.CaptureError(ctx, "stage."+spec.Name, err)
	slog.Warn("stage call fell back",
		"turn_id", logger.TurnID(ctx),
		"stage", spec.Name,
		"kind", spec.Kind(),
		"error", err,
	)
}

// collectAnnotations runs the annotator stage: each successful annotator
// appends its payload to the context under its own stage name. A failed
// annotator contributes nothing.
func (o *Orchestrator) collectAnnotations(ctx context.Context, dctx *dialog.Context) {
	payload := turnPayload(*dctx, nil)
	for _, res := range o.fanOut(ctx, o.topo.Annotators, payload) {
		if res.out != nil {
			dctx.Annotate(res.spec.Name, res.out.Annotation)
		}
	}
}

// selectSkills narrows the skill set for this turn. Each successful
// selector contributes the skills it names; a failed selector's fallback
// is "no narrowing", so it contributes every configured skill. With no
// selectors configured, all skills are dispatched.
func (o *Orchestrator) selectSkills(ctx context.Context, dctx dialog.Context) []pipeline.StageSpec {
	if len(o.topo.SkillSelectors) == 0 {
		return o.topo.Skills
	}

	wanted := make(map[string]bool)
	for _, res := range o.fanOut(ctx, o.topo.SkillSelectors, turnPayload(dctx, nil)) {
		if res.out == nil {
			return o.topo.Skills
		}
		for _, name := range res.out.Skills {
			wanted[name] = true
		}
	}

	var chosen []pipeline.StageSpec
	for _, spec := range o.topo.Skills {
		if wanted[spec.Name] {
			chosen = append(chosen, spec)
		}
	}
	return chosen
}

// dispatchSkills fans out to the chosen skills and collects their
// hypotheses in configured skill order. A failed skill call yields no
// hypotheses; an empty skill set is a no-op.
func (o *Orchestrator) dispatchSkills(ctx context.Context, dctx dialog.Context, chosen []pipeline.StageSpec) []dialog.Hypothesis {
	if len(chosen) == 0 {
		return nil
	}

	payload := turnPayload(dctx, nil)
	var hyps []dialog.Hypothesis
	for _, res := range o.fanOut(ctx, chosen, payload) {
		if res.out == nil {
			continue
		}
		for _, h := range res.out.Hypotheses {
			h.SkillName = res.spec.Name
			hyps = append(hyps, h)
		}
	}
	return hyps
}

// scoreHypotheses assigns final confidences. Without a configured scorer
// the skill-reported confidences stand. A scorer failure degrades the
// whole batch to zero final confidence, matching the scorer's own
// batch-level fault policy.
func (o *Orchestrator) scoreHypotheses(ctx context.Context, dctx dialog.Context, hyps []dialog.Hypothesis) []dialog.ScoredHypothesis {
	if len(hyps) == 0 {
		return nil
	}

	scored := make([]dialog.ScoredHypothesis, len(hyps))
	for i, h := range hyps {
		scored[i] = dialog.ScoredHypothesis{Hypothesis: h, FinalConfidence: h.Confidence}
	}
	if o.topo.Scorer == nil {
		return scored
	}

	payload := map[string]any{
		"contexts":   [][]string{dctx.Texts()},
		"hypotheses": hyps,
	}
	out := o.callStage(ctx, o.topo.Scorer, payload)
	if out == nil || len(out.Hypotheses) != len(hyps) {
		// Degraded scorer: zero-confidence vector of the correct length.
		for i := range scored {
			scored[i].FinalConfidence = 0
		}
		if out != nil {
			o.stageFallback(ctx, o.topo.Scorer, errLengthMismatch(len(out.Hypotheses), len(hyps)))
		}
		return scored
	}

	for i := range scored {
		scored[i].FinalConfidence = out.Hypotheses[i].Confidence
	}
	return scored
}

// postprocess applies the ordered postprocessor transforms to the chosen
// reply. Each transform is total: a failed call keeps the reply unchanged.
func (o *Orchestrator) postprocess(ctx context.Context, dctx dialog.Context, winner dialog.ScoredHypothesis) dialog.ScoredHypothesis {
	for i := range o.topo.Postprocessors {
		spec := &o.topo.Postprocessors[i]
		payload := map[string]any{
			"hypothesis": winner.Hypothesis,
			"dialog":     wireContexts(dctx),
		}
		out := o.callStage(ctx, spec, payload)
		if out == nil || out.Text == "" {
			// Identity fallback; an empty transform result is treated
			// the same as a failed call.
			continue
		}
		next := winner
		next.Text = out.Text
		winner = next
	}
	return winner
}
