package scorer

import (
	"strings"

	"github.com/parleybot/parley/internal/domain/dialog"
)

// EvaluatorAnnotator is the annotator name whose per-hypothesis scores
// feed the model.
const EvaluatorAnnotator = "convers_evaluator_annotator"

// Evaluator score keys, in feature order.
var evaluatorKeys = []string{
	"isResponseOnTopic",
	"isResponseErroneous",
	"responseEngagesUser",
	"isResponseInteresting",
	"isResponseComprehensible",
}

// FeatureExtractor maps one (context, hypothesis) pair to the fixed-size
// numeric vector the model consumes. Extraction is an external
// collaborator of the scorer; implementations must be pure.
type FeatureExtractor interface {
	Features(contexts []string, hyp dialog.Hypothesis) ([]float64, error)
}

// StandardExtractor is the default feature extractor. Its vector layout
// must match the model's feature_names:
// confidence, is_best, the five evaluator scores, hypothesis length,
// context depth, lexical overlap with the last utterance.
type StandardExtractor struct{}

// FeatureCount is the vector size StandardExtractor produces.
const FeatureCount = 10

// Features implements FeatureExtractor.
func (StandardExtractor) Features(contexts []string, hyp dialog.Hypothesis) ([]float64, error) {
	f := make([]float64, 0, FeatureCount)
	f = append(f, hyp.Confidence)
	f = append(f, boolFeature(hyp.IsBest))

	eval := hyp.Annotations[EvaluatorAnnotator]
	for _, key := range evaluatorKeys {
		f = append(f, eval[key])
	}

	hypWords := tokenize(hyp.Text)
	f = append(f, capped(float64(len(hypWords))/32))
	f = append(f, capped(float64(len(contexts))/10))

	last := ""
	if len(contexts) > 0 {
		last = contexts[len(contexts)-1]
	}
	f = append(f, overlap(tokenize(last), hypWords))

	return f, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// overlap is the Jaccard similarity between two token sets.
func overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	union := make(map[string]bool, len(a)+len(b))
	for _, w := range a {
		union[w] = true
	}
	shared := 0
	for _, w := range b {
		if set[w] {
			set[w] = false
			shared++
		}
		union[w] = true
	}
	return float64(shared) / float64(len(union))
}
