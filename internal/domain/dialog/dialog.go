// Package dialog defines the data model for one conversational turn:
// utterances, dialog contexts, candidate hypotheses and their scored form.
// All values live for a single turn; nothing here persists.
package dialog

// Speaker roles used in utterances.
const (
	SpeakerHuman = "human"
	SpeakerBot   = "bot"
)

// Utterance is one message in a dialog, with annotations attached by
// upstream stages keyed by stage name.
type Utterance struct {
	Speaker     string         `json:"speaker"`
	Text        string         `json:"text"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// Context is the ordered dialog history for one turn. It is exclusively
// owned by the turn processing it: stages contribute by appending their
// own annotation entries, never by rewriting existing ones.
type Context struct {
	Utterances  []Utterance    `json:"utterances"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// Annotate records a stage's turn-level annotation under the stage name.
func (c *Context) Annotate(stage string, value any) {
	if c.Annotations == nil {
		c.Annotations = make(map[string]any)
	}
	c.Annotations[stage] = value
}

// Texts returns the utterance texts in order, oldest first.
func (c *Context) Texts() []string {
	out := make([]string, len(c.Utterances))
	for i, u := range c.Utterances {
		out[i] = u.Text
	}
	return out
}

// LastUtterance returns the most recent utterance, if any.
func (c *Context) LastUtterance() (Utterance, bool) {
	if len(c.Utterances) == 0 {
		return Utterance{}, false
	}
	return c.Utterances[len(c.Utterances)-1], true
}

// Hypothesis is one candidate reply produced by a skill for the current
// turn. Immutable once emitted; Annotations holds numeric evaluator
// scores keyed by annotator name.
type Hypothesis struct {
	SkillName   string
	Text        string
	Confidence  float64
	IsBest      bool
	Annotations map[string]map[string]float64
}

// ScoredHypothesis is a Hypothesis with the final confidence assigned by
// the scorer stage. FinalConfidence replaces the skill-reported confidence
// for selection purposes.
type ScoredHypothesis struct {
	Hypothesis
	FinalConfidence float64
}

// SkillResult is the normalized per-item output of a skill-kind service:
// reply text, skill-reported confidence and three attribute maps
// (human-scoped, bot-scoped and shared).
type SkillResult struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	HumanAttrs map[string]any `json:"human_attributes"`
	BotAttrs   map[string]any `json:"bot_attributes"`
	Attrs      map[string]any `json:"attributes"`
}

// NeutralResult is the documented per-item fallback: empty text, zero
// confidence, empty attribute maps. Substituted when producing one item
// fails; siblings in the batch are unaffected.
func NeutralResult() SkillResult {
	return SkillResult{
		Text:       "",
		Confidence: 0,
		HumanAttrs: map[string]any{},
		BotAttrs:   map[string]any{},
		Attrs:      map[string]any{},
	}
}

// NeutralHypothesis is the turn-level fallback reply used when no skill
// produced a usable candidate.
func NeutralHypothesis() Hypothesis {
	return Hypothesis{
		Text:        "",
		Confidence:  0,
		Annotations: map[string]map[string]float64{},
	}
}

// NeutralScored wraps NeutralHypothesis with a zero final confidence.
func NeutralScored() ScoredHypothesis {
	return ScoredHypothesis{Hypothesis: NeutralHypothesis(), FinalConfidence: 0}
}
