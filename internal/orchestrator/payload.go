package orchestrator

import "github.com/parleybot/parley/internal/domain/dialog"

// wireUtterance is the utterance shape stage services receive.
type wireUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// wireContexts serializes the dialog history as a batch of one context,
// the batched transport shape every skill-kind service accepts.
func wireContexts(dctx dialog.Context) [][]wireUtterance {
	uts := make([]wireUtterance, len(dctx.Utterances))
	for i, u := range dctx.Utterances {
		uts[i] = wireUtterance{Speaker: u.Speaker, Text: u.Text}
	}
	return [][]wireUtterance{uts}
}

// turnPayload builds the request body for annotator, selector and skill
// calls. seed is optional and only set for deterministic replay.
func turnPayload(dctx dialog.Context, seed *int64) map[string]any {
	payload := map[string]any{
		"dialog_contexts": wireContexts(dctx),
	}
	if len(dctx.Annotations) > 0 {
		payload["annotations"] = dctx.Annotations
	}
	if seed != nil {
		payload["random_seed"] = *seed
	}
	return payload
}

// scoredPayload serializes candidates for response-selector calls with
// their final confidences alongside the flattened hypothesis fields.
func scoredPayload(cands []dialog.ScoredHypothesis) []map[string]any {
	out := make([]map[string]any, len(cands))
	for i, c := range cands {
		out[i] = map[string]any{
			"skill_name":       c.SkillName,
			"text":             c.Text,
			"confidence":       c.Confidence,
			"is_best":          c.IsBest,
			"final_confidence": c.FinalConfidence,
		}
	}
	return out
}
