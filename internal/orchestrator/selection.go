package orchestrator

import (
	"context"
	"fmt"

	"github.com/parleybot/parley/internal/domain/dialog"
)

// selectResponse reduces the scored candidates to one reply. Configured
// response-selector services are consulted first, in configured order;
// the built-in deterministic policy is the always-present fallback and
// the behavior when none is configured.
func (o *Orchestrator) selectResponse(ctx context.Context, dctx dialog.Context, cands []dialog.ScoredHypothesis) dialog.ScoredHypothesis {
	if len(cands) == 0 {
		return dialog.NeutralScored()
	}

	if len(o.topo.ResponseSelectors) > 0 {
		payload := map[string]any{
			"dialog":     wireContexts(dctx),
			"hypotheses": scoredPayload(cands),
		}
		for _, res := range o.fanOut(ctx, o.topo.ResponseSelectors, payload) {
			if res.out == nil {
				continue
			}
			if idx := res.out.BestIndex; idx >= 0 && idx < len(cands) {
				return cands[idx]
			}
		}
	}

	return pickBest(cands)
}

// pickBest implements the deterministic selection policy: highest final
// confidence wins; at equal confidence a hypothesis its skill flagged as
// best outranks one that is not; remaining ties go to the first-seen
// candidate in the fixed stage-member ordering.
func pickBest(cands []dialog.ScoredHypothesis) dialog.ScoredHypothesis {
	if len(cands) == 0 {
		return dialog.NeutralScored()
	}

	best := 0
	for i := 1; i < len(cands); i++ {
		if outranks(cands[i], cands[best]) {
			best = i
		}
	}
	return cands[best]
}

// outranks reports whether a strictly beats b. Equal candidates do not
// outrank each other, which preserves first-seen order.
func outranks(a, b dialog.ScoredHypothesis) bool {
	if a.FinalConfidence != b.FinalConfidence {
		return a.FinalConfidence > b.FinalConfidence
	}
	return a.IsBest && !b.IsBest
}

func errLengthMismatch(got, want int) error {
	return fmt.Errorf("scorer returned %d scores for %d hypotheses", got, want)
}
