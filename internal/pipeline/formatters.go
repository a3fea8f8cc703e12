package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/parleybot/parley/internal/domain/dialog"
)

// StageOutput is the normalized result of one stage-service call. Exactly
// one payload field is meaningful, matching the stage kind the formatter
// is registered for.
type StageOutput struct {
	Hypotheses []dialog.Hypothesis // skills
	Skills     []string            // skill selectors
	Annotation any                 // annotators
	BestIndex  int                 // response selectors; -1 when no choice
	Text       string              // postprocessors
}

// FormatterFunc normalizes a raw downstream response into a StageOutput.
// Formatters are pure: no side effects, no shared state.
type FormatterFunc func(raw json.RawMessage) (*StageOutput, error)

// Formatter pairs a normalization func with the stage kind it serves.
type Formatter struct {
	Kind Kind
	Func FormatterFunc
}

// FormatterRegistry maps formatter reference names to formatters.
// References in stage specs are resolved against it once at load time.
type FormatterRegistry struct {
	byName map[string]Formatter
}

// NewFormatterRegistry returns a registry with an optional extra set of
// formatters layered over the built-in ones.
func NewFormatterRegistry(extra map[string]Formatter) *FormatterRegistry {
	reg := &FormatterRegistry{byName: map[string]Formatter{
		"annotator_formatter":         {KindAnnotator, annotatorFormatter},
		"selector_formatter":          {KindSkillSelector, selectorFormatter},
		"skill_formatter":             {KindSkill, skillFormatter},
		"scorer_formatter":            {KindScorer, scorerFormatter},
		"response_selector_formatter": {KindResponseSelector, responseSelectorFormatter},
		"postprocessor_formatter":     {KindPostprocessor, postprocessorFormatter},
	}}
	for name, f := range extra {
		reg.byName[name] = f
	}
	return reg
}

// Lookup resolves a formatter reference name.
func (r *FormatterRegistry) Lookup(name string) (Formatter, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// Normalize applies the stage's resolved formatter to a raw response.
func (s *StageSpec) Normalize(raw json.RawMessage) (*StageOutput, error) {
	if s.format == nil {
		return nil, fmt.Errorf("stage %q: formatter not resolved", s.Name)
	}
	out, err := s.format(raw)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", s.Name, err)
	}
	return out, nil
}

// annotatorFormatter keeps the annotator payload as-is. Batched responses
// (an array with one element per input context) are unwrapped to the
// single-context element, since a turn carries exactly one context.
func annotatorFormatter(raw json.RawMessage) (*StageOutput, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("annotator response: %w", err)
	}
	if arr, ok := payload.([]any); ok && len(arr) == 1 {
		payload = arr[0]
	}
	return &StageOutput{Annotation: payload, BestIndex: -1}, nil
}

// selectorFormatter normalizes a skill-selector response to skill names.
// Accepts both a flat name list and a batched list-of-lists.
func selectorFormatter(raw json.RawMessage) (*StageOutput, error) {
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return &StageOutput{Skills: flat, BestIndex: -1}, nil
	}
	var batched [][]string
	if err := json.Unmarshal(raw, &batched); err != nil {
		return nil, fmt.Errorf("selector response: %w", err)
	}
	if len(batched) == 0 {
		return &StageOutput{BestIndex: -1}, nil
	}
	return &StageOutput{Skills: batched[0], BestIndex: -1}, nil
}

// skillFormatter normalizes a skill response to hypotheses. A skill
// returns one result tuple per input context; a tuple with empty text is
// the neutral fallback and yields no hypothesis.
func skillFormatter(raw json.RawMessage) (*StageOutput, error) {
	var results []dialog.SkillResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("skill response: %w", err)
	}

	out := &StageOutput{BestIndex: -1}
	for _, r := range results {
		if r.Text == "" {
			continue
		}
		h := dialog.Hypothesis{
			Text:        r.Text,
			Confidence:  clamp01(r.Confidence),
			Annotations: map[string]map[string]float64{},
		}
		if best, ok := r.Attrs["is_best"].(bool); ok {
			h.IsBest = best
		}
		// Numeric attribute maps ride along as evaluator annotations so
		// the scorer can use them.
		for key, val := range r.Attrs {
			if scores, ok := numericMap(val); ok {
				h.Annotations[key] = scores
			}
		}
		out.Hypotheses = append(out.Hypotheses, h)
	}
	return out, nil
}

// scorerFormatter parses the scorer response: [{"batch": [float, ...]}].
func scorerFormatter(raw json.RawMessage) (*StageOutput, error) {
	var resp []struct {
		Batch []float64 `json:"batch"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("scorer response: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("scorer response: empty body")
	}
	scores := resp[0].Batch
	hyps := make([]dialog.Hypothesis, len(scores))
	for i, sc := range scores {
		hyps[i] = dialog.Hypothesis{Confidence: clamp01(sc)}
	}
	return &StageOutput{Hypotheses: hyps, BestIndex: -1}, nil
}

// responseSelectorFormatter parses {"best_index": n}.
func responseSelectorFormatter(raw json.RawMessage) (*StageOutput, error) {
	var resp struct {
		BestIndex *int `json:"best_index"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("response selector response: %w", err)
	}
	if resp.BestIndex == nil {
		return &StageOutput{BestIndex: -1}, nil
	}
	return &StageOutput{BestIndex: *resp.BestIndex}, nil
}

// postprocessorFormatter parses {"text": "..."}.
func postprocessorFormatter(raw json.RawMessage) (*StageOutput, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("postprocessor response: %w", err)
	}
	return &StageOutput{Text: resp.Text, BestIndex: -1}, nil
}

// numericMap converts a decoded JSON value to a score map when it is a
// non-empty object of numbers.
func numericMap(val any) (map[string]float64, bool) {
	m, ok := val.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	scores := make(map[string]float64, len(m))
	for k, v := range m {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		scores[k] = f
	}
	return scores, true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
