package scorer

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeModelFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModel(t *testing.T) {
	path := writeModelFile(t, `{
		"feature_names": ["a", "b"],
		"weights": [1.0, -2.0],
		"bias": 0.5
	}`)

	m, err := LoadModel(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Dim() != 2 {
		t.Errorf("Dim = %d, want 2", m.Dim())
	}
}

func TestLoadModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{not json`},
		{"no weights", `{"feature_names": [], "weights": [], "bias": 0}`},
		{"name weight mismatch", `{"feature_names": ["a"], "weights": [1, 2], "bias": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(writeModelFile(t, tt.content))
			if !errors.Is(err, ErrModelLoad) {
				t.Fatalf("expected ErrModelLoad, got %v", err)
			}
		})
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}

func TestPredict(t *testing.T) {
	m := &Model{FeatureNames: []string{"a"}, Weights: []float64{1}, Bias: 0}

	p, err := m.Predict([]float64{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-0.5) > 1e-9 {
		t.Errorf("sigmoid(0) = %f, want 0.5", p)
	}

	p, _ = m.Predict([]float64{100})
	if p <= 0.99 || p > 1 {
		t.Errorf("sigmoid(100) = %f, want near 1", p)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	m := &Model{FeatureNames: []string{"a"}, Weights: []float64{1}, Bias: 0}
	if _, err := m.Predict([]float64{1, 2}); err == nil {
		t.Fatal("expected error for wrong vector size")
	}
}
