package scorer

import (
	"context"
	"fmt"

	"github.com/parleybot/parley/internal/domain/dialog"
)

// selfTestContexts is the fixed literal history the scorer must handle
// before serving: a real five-turn opening exchange.
func selfTestContexts() [][]string {
	return [][]string{{
		"i'm good how are you",
		"Spectacular, by all reports! Do you want to know what I can do?",
		"absolutely",
		"I'm a socialbot running inside Alexa, and I'm all about chatting with people like you. " +
			"I can answer questions, share fun facts, discuss movies, books and news. What do you want to talk about?",
		"let's talk about movies",
	}}
}

// selfTestHypotheses is the matching literal candidate with known
// evaluator annotation values.
func selfTestHypotheses() []dialog.Hypothesis {
	return []dialog.Hypothesis{{
		IsBest:     true,
		Text:       "Kong: Skull Island is a good action movie. What do you think about it?",
		Confidence: 1.0,
		Annotations: map[string]map[string]float64{
			EvaluatorAnnotator: {
				"isResponseOnTopic":        0.505,
				"isResponseErroneous":      0.938,
				"responseEngagesUser":      0.344,
				"isResponseInteresting":    0.084,
				"isResponseComprehensible": 0.454,
			},
		},
	}}
}

// SelfTest scores the literal batch through the strict path. It must
// produce exactly one score in [0,1] without failing; anything else is a
// ModelLoadError and the process must exit instead of serving an
// unverified model.
func (s *Scorer) SelfTest(ctx context.Context) error {
	scores, err := s.scoreBatch(ctx, selfTestContexts(), selfTestHypotheses())
	if err != nil {
		return fmt.Errorf("%w: self-test: %v", ErrModelLoad, err)
	}
	if len(scores) != 1 {
		return fmt.Errorf("%w: self-test returned %d scores, want 1", ErrModelLoad, len(scores))
	}
	if scores[0] < 0 || scores[0] > 1 {
		return fmt.Errorf("%w: self-test score %f out of [0,1]", ErrModelLoad, scores[0])
	}
	return nil
}
