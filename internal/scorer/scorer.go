package scorer

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"

	"github.com/parleybot/parley/internal/adapter/otel"
	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/port/cache"
	"github.com/parleybot/parley/internal/port/events"
)

// Scorer scores batches of hypotheses against their dialog contexts.
// Model and extractor are fixed after construction, so concurrent
// ScoreBatch calls share them without locking.
type Scorer struct {
	model     *Model
	extractor FeatureExtractor
	cache     cache.ScoreCache
	reporter  events.Reporter
}

// Option configures optional Scorer collaborators.
type Option func(*Scorer)

// WithCache attaches a read-through score cache.
func WithCache(c cache.ScoreCache) Option {
	return func(s *Scorer) { s.cache = c }
}

// WithReporter attaches the observability collaborator.
func WithReporter(r events.Reporter) Option {
	return func(s *Scorer) { s.reporter = r }
}

// New creates a Scorer. The extractor's vector size must match the model;
// a mismatch is a ModelLoadError caught here, before any traffic.
func New(model *Model, extractor FeatureExtractor, opts ...Option) (*Scorer, error) {
	s := &Scorer{
		model:     model,
		extractor: extractor,
		reporter:  events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}

	probe, err := extractor.Features(nil, dialog.NeutralHypothesis())
	if err != nil {
		return nil, fmt.Errorf("%w: extractor probe: %v", ErrModelLoad, err)
	}
	if len(probe) != model.Dim() {
		return nil, fmt.Errorf("%w: extractor produces %d features, model expects %d",
			ErrModelLoad, len(probe), model.Dim())
	}
	return s, nil
}

// ScoreBatch returns one confidence in [0,1] per hypothesis, in input
// order. Any failure during extraction or inference degrades the whole
// batch to a zero vector of the correct length: batch-level isolation,
// deliberately coarser than the per-item isolation skills honor. The
// failure is reported, never propagated.
func (s *Scorer) ScoreBatch(ctx context.Context, contexts [][]string, hyps []dialog.Hypothesis) []float64 {
	ctx, span := otel.StartScoreSpan(ctx, len(hyps))
	defer span.End()

	scores, err := s.scoreBatch(ctx, contexts, hyps)
	if err != nil {
		s.reporter.CaptureError(ctx, "scorer.batch", err)
		slog.Error("batch degraded to zero confidences", "size", len(hyps), "error", err)
		return make([]float64, len(hyps))
	}
	return scores
}

// scoreBatch is the strict path: it surfaces errors so the startup
// self-test can fail fast instead of masking a broken model.
func (s *Scorer) scoreBatch(ctx context.Context, contexts [][]string, hyps []dialog.Hypothesis) ([]float64, error) {
	scores := make([]float64, len(hyps))
	for i, hyp := range hyps {
		texts := contextFor(contexts, i)

		key := s.cacheKey(texts, hyp)
		if s.cache != nil {
			if cached, ok := s.cache.Get(ctx, key); ok {
				scores[i] = cached
				continue
			}
		}

		features, err := s.extractor.Features(texts, hyp)
		if err != nil {
			return nil, fmt.Errorf("features for hypothesis %d: %w", i, err)
		}
		p, err := s.model.Predict(features)
		if err != nil {
			return nil, fmt.Errorf("predict for hypothesis %d: %w", i, err)
		}
		scores[i] = p

		if s.cache != nil {
			s.cache.Set(ctx, key, p)
		}
	}
	return scores, nil
}

// contextFor pairs hypothesis i with its context. A single configured
// context applies to every hypothesis in the batch.
func contextFor(contexts [][]string, i int) []string {
	switch {
	case len(contexts) == 0:
		return nil
	case i < len(contexts):
		return contexts[i]
	}
	return contexts[len(contexts)-1]
}

// cacheKey digests the scoring inputs. Scoring is pure, so equal inputs
// always map to equal scores.
func (s *Scorer) cacheKey(texts []string, hyp dialog.Hypothesis) string {
	h := fnv.New64a()
	for _, t := range texts {
		h.Write([]byte(t))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte(hyp.Text))
	h.Write([]byte{0x1f})
	h.Write([]byte(strconv.FormatFloat(hyp.Confidence, 'g', -1, 64)))
	if hyp.IsBest {
		h.Write([]byte{1})
	}
	for _, key := range evaluatorKeys {
		v := hyp.Annotations[EvaluatorAnnotator][key]
		h.Write([]byte(strconv.FormatFloat(v, 'g', -1, 64)))
		h.Write([]byte{0x1f})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
