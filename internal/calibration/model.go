package calibration

import (
	"fmt"
	"math"
)

// FeatureCount is the width of the calibration feature vector.
const FeatureCount = 5

// FeatureVector normalizes the raw calibration signals into [0,1] features:
// raw confidence, ambiguity load, critical ambiguity load, negotiation
// rounds, answer volume. Each ratio clamps at 1.
func FeatureVector(rawConfidence float64, ambiguityCount, criticalAmbiguityCount, rounds, answerCount int) []float64 {
	return []float64{
		clamp01(rawConfidence),
		clamp01(float64(ambiguityCount) / 5.0),
		clamp01(float64(criticalAmbiguityCount) / 3.0),
		clamp01(float64(rounds) / 3.0),
		clamp01(float64(answerCount) / 5.0),
	}
}

// logisticModel is a plain logistic regression fit by batch gradient
// descent. Weights[0] is the bias.
type logisticModel struct {
	Weights   []float64 `json:"weights"`
	Epochs    int       `json:"epochs"`
	LearnRate float64   `json:"learn_rate"`
	TrainedOn int       `json:"trained_on"`
}

func trainLogistic(features [][]float64, labels []int, epochs int, learnRate float64) (*logisticModel, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("feature/label size mismatch: %d vs %d", len(features), len(labels))
	}
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("ragged feature row %d: %d != %d", i, len(row), width)
		}
	}

	weights := make([]float64, width+1)
	n := float64(len(features))
	for epoch := 0; epoch < epochs; epoch++ {
		grad := make([]float64, width+1)
		for i, row := range features {
			pred := sigmoid(dot(weights, row))
			err := pred - float64(labels[i])
			grad[0] += err
			for j, v := range row {
				grad[j+1] += err * v
			}
		}
		for j := range weights {
			weights[j] -= learnRate * grad[j] / n
		}
	}

	return &logisticModel{
		Weights:   weights,
		Epochs:    epochs,
		LearnRate: learnRate,
		TrainedOn: len(features),
	}, nil
}

func (m *logisticModel) predict(features []float64) (float64, error) {
	if m == nil || len(m.Weights) == 0 {
		return 0, fmt.Errorf("model not fitted")
	}
	if len(features) != len(m.Weights)-1 {
		return 0, fmt.Errorf("feature width %d does not match model width %d", len(features), len(m.Weights)-1)
	}
	return sigmoid(dot(m.Weights, features)), nil
}

func dot(weights, features []float64) float64 {
	z := weights[0]
	for i, v := range features {
		z += weights[i+1] * v
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
