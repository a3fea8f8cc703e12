package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/scorer"
	"github.com/parleybot/parley/internal/skillrt"
)

func newScorerServer(t *testing.T) *httptest.Server {
	t.Helper()

	names := []string{
		"confidence", "is_best",
		"isResponseOnTopic", "isResponseErroneous", "responseEngagesUser",
		"isResponseInteresting", "isResponseComprehensible",
		"hypothesis_length", "context_depth", "lexical_overlap",
	}
	weights := make([]float64, len(names))
	weights[0] = 2
	model := &scorer.Model{FeatureNames: names, Weights: weights, Bias: -1}

	sc, err := scorer.New(model, scorer.StandardExtractor{})
	if err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	r.Group((&ScorerHandlers{Scorer: sc, ServiceName: "parley-scorer"}).Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestBatchModelContract(t *testing.T) {
	srv := newScorerServer(t)

	body := `{
		"contexts": [["i'm good how are you", "let's talk about movies"]],
		"hypotheses": [
			{"is_best": true, "text": "Kong: Skull Island is a good action movie.", "confidence": 1.0,
			 "convers_evaluator_annotator": {"isResponseOnTopic": 0.505}},
			{"is_best": false, "text": "hello there", "confidence": 0.2}
		]
	}`
	resp, err := http.Post(srv.URL+"/batch_model", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out []struct {
		Batch []float64 `json:"batch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || len(out[0].Batch) != 2 {
		t.Fatalf("response shape = %+v, want one element with two scores", out)
	}
	for i, sc := range out[0].Batch {
		if sc < 0 || sc > 1 {
			t.Errorf("score[%d] = %f out of [0,1]", i, sc)
		}
	}
	if out[0].Batch[0] <= out[0].Batch[1] {
		t.Errorf("confident hypothesis should score higher: %v", out[0].Batch)
	}
}

func TestBatchModelEmptyBatch(t *testing.T) {
	srv := newScorerServer(t)

	resp, err := http.Post(srv.URL+"/batch_model", "application/json",
		strings.NewReader(`{"contexts": [], "hypotheses": []}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out []struct {
		Batch []float64 `json:"batch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || len(out[0].Batch) != 0 {
		t.Fatalf("response = %+v, want one element with an empty batch", out)
	}
}

func TestBatchModelRejectsBadBody(t *testing.T) {
	srv := newScorerServer(t)

	resp, err := http.Post(srv.URL+"/batch_model", "application/json", strings.NewReader(`{broken`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func newSkillServer(t *testing.T, handler skillrt.Handler) *httptest.Server {
	t.Helper()
	rt := skillrt.New("test_skill", handler, 2718, nil)

	r := chi.NewRouter()
	r.Group((&SkillHandlers{Runtime: rt}).Routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSkillRespondIsolation(t *testing.T) {
	srv := newSkillServer(t, func(_ context.Context, dctx dialog.Context, _ int64) (dialog.SkillResult, error) {
		last, _ := dctx.LastUtterance()
		if last.Text == "bad" {
			return dialog.SkillResult{}, errors.New("nope")
		}
		return dialog.SkillResult{Text: "reply to " + last.Text, Confidence: 0.7}, nil
	})

	body := `{"dialog_contexts": [
		[{"speaker": "human", "text": "hi"}],
		[{"speaker": "human", "text": "bad"}],
		[{"speaker": "human", "text": "bye"}]
	]}`
	resp, err := http.Post(srv.URL+"/respond", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out []dialog.SkillResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("results = %d, want 3", len(out))
	}
	if out[0].Text != "reply to hi" || out[2].Text != "reply to bye" {
		t.Errorf("siblings = %+v", out)
	}
	if out[1].Text != "" || out[1].Confidence != 0 {
		t.Errorf("failed item = %+v, want neutral tuple", out[1])
	}
}

func TestSkillRespondSeed(t *testing.T) {
	var seen int64
	srv := newSkillServer(t, func(_ context.Context, _ dialog.Context, seed int64) (dialog.SkillResult, error) {
		seen = seed
		return dialog.SkillResult{Text: "ok", Confidence: 1}, nil
	})

	body := `{"dialog_contexts": [[{"speaker": "human", "text": "hi"}]], "random_seed": 99}`
	resp, err := http.Post(srv.URL+"/respond", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if seen != 99 {
		t.Errorf("seed = %d, want request override", seen)
	}
}

func TestSkillHealthcheck(t *testing.T) {
	srv := newSkillServer(t, func(context.Context, dialog.Context, int64) (dialog.SkillResult, error) {
		return dialog.SkillResult{}, nil
	})

	resp, err := http.Get(srv.URL + "/healthcheck")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["skill"] != "test_skill" {
		t.Errorf("body = %v", out)
	}
}
