package dialog

import (
	"encoding/json"
	"testing"
)

func TestHypothesisMarshalFlattens(t *testing.T) {
	h := Hypothesis{
		SkillName:  "chitchat",
		Text:       "hello",
		Confidence: 0.8,
		IsBest:     true,
		Annotations: map[string]map[string]float64{
			"convers_evaluator_annotator": {"isResponseOnTopic": 0.7},
		},
	}

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatal(err)
	}
	if obj["text"] != "hello" || obj["is_best"] != true {
		t.Errorf("flattened object = %v", obj)
	}
	eval, ok := obj["convers_evaluator_annotator"].(map[string]any)
	if !ok || eval["isResponseOnTopic"] != 0.7 {
		t.Errorf("annotator object not flattened to top level: %v", obj)
	}
}

func TestHypothesisUnmarshalFlattened(t *testing.T) {
	raw := `{
		"is_best": false,
		"text": "Kong: Skull Island is a good action movie.",
		"confidence": 0.9,
		"convers_evaluator_annotator": {"isResponseOnTopic": 0.505, "isResponseErroneous": 0.938},
		"can_continue": "no"
	}`

	var h Hypothesis
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.Confidence != 0.9 || h.IsBest {
		t.Errorf("fixed fields = %+v", h)
	}
	eval := h.Annotations["convers_evaluator_annotator"]
	if eval["isResponseErroneous"] != 0.938 {
		t.Errorf("annotations = %v", h.Annotations)
	}
	if _, ok := h.Annotations["can_continue"]; ok {
		t.Error("non-numeric key should be ignored, not stored")
	}
}

func TestHypothesisRoundTrip(t *testing.T) {
	in := Hypothesis{
		Text:       "hi",
		Confidence: 0.4,
		Annotations: map[string]map[string]float64{
			"sentiment": {"positive": 0.6},
		},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Hypothesis
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Text != in.Text || out.Confidence != in.Confidence {
		t.Errorf("round trip = %+v", out)
	}
	if out.Annotations["sentiment"]["positive"] != 0.6 {
		t.Errorf("annotations = %v", out.Annotations)
	}
}
