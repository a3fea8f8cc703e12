package dialog

import "encoding/json"

// The scorer wire format flattens a hypothesis into one JSON object:
// the fixed fields is_best/text/confidence plus one object per annotator,
// keyed by annotator name, holding its numeric scores.

// MarshalJSON encodes the hypothesis in the flattened scorer wire shape.
func (h Hypothesis) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(h.Annotations)+4)
	obj["is_best"] = h.IsBest
	obj["text"] = h.Text
	obj["confidence"] = h.Confidence
	if h.SkillName != "" {
		obj["skill_name"] = h.SkillName
	}
	for name, scores := range h.Annotations {
		obj[name] = scores
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes the flattened wire shape. Any key besides the
// fixed fields whose value is an object of numbers is treated as an
// annotator score map.
func (h *Hypothesis) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	fixed := map[string]any{
		"is_best":    &h.IsBest,
		"text":       &h.Text,
		"confidence": &h.Confidence,
		"skill_name": &h.SkillName,
	}
	for key, dst := range fixed {
		if raw, ok := obj[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return err
			}
			delete(obj, key)
		}
	}

	for key, raw := range obj {
		var scores map[string]float64
		if err := json.Unmarshal(raw, &scores); err != nil {
			// Not a numeric annotation object; ignore rather than fail
			// the whole hypothesis.
			continue
		}
		if h.Annotations == nil {
			h.Annotations = make(map[string]map[string]float64)
		}
		h.Annotations[key] = scores
	}
	return nil
}
