// Package scorer implements the hypothesis confidence scorer: a learned
// model that assigns each candidate reply a final confidence in [0,1].
// The model is loaded once at startup and verified with a literal
// self-test batch before the service accepts traffic.
package scorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrModelLoad wraps every fatal model failure: unreadable weights,
// dimension mismatch or a failed startup self-test. A process seeing it
// must exit non-zero instead of serving.
var ErrModelLoad = errors.New("scorer model load failed")

// Model is a logistic classifier over a fixed-size feature vector.
// Weights are write-once at load; Predict reads them without locking.
type Model struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// LoadModel reads model weights from a JSON file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelLoad, path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrModelLoad, path, err)
	}

	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("%w: %s has no weights", ErrModelLoad, path)
	}
	if len(m.FeatureNames) != len(m.Weights) {
		return nil, fmt.Errorf("%w: %s has %d feature names for %d weights",
			ErrModelLoad, path, len(m.FeatureNames), len(m.Weights))
	}
	return &m, nil
}

// Dim returns the feature vector size the model expects.
func (m *Model) Dim() int { return len(m.Weights) }

// Predict returns the positive-class probability for one feature vector.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("predict: got %d features, model expects %d",
			len(features), len(m.Weights))
	}
	z := m.Bias
	for i, w := range m.Weights {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
