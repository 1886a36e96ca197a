package validation

import "fmt"

// GateThresholds are the release-gate floors, checked against batch-level
// metrics aggregated across all test homes.
type GateThresholds struct {
	MinPrecision float64 `json:"min_precision"`
	MinRecall    float64 `json:"min_recall"`
	MinF1        float64 `json:"min_f1"`
}

func DefaultGateThresholds() GateThresholds {
	return GateThresholds{
		MinPrecision: 0.80,
		MinRecall:    0.60,
		MinF1:        0.65,
	}
}

// GateResult is advisory: it reports pass/fail with itemized reasons and
// never touches detector output.
type GateResult struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
	Metrics Metrics  `json:"metrics"`
}

// EvaluateGates checks aggregated metrics against the thresholds.
func EvaluateGates(m Metrics, t GateThresholds) GateResult {
	var reasons []string
	if m.Precision < t.MinPrecision {
		reasons = append(reasons, fmt.Sprintf("Precision %.3f below required %.2f", m.Precision, t.MinPrecision))
	}
	if m.Recall < t.MinRecall {
		reasons = append(reasons, fmt.Sprintf("Recall %.3f below required %.2f", m.Recall, t.MinRecall))
	}
	if m.F1 < t.MinF1 {
		reasons = append(reasons, fmt.Sprintf("F1 %.3f below required %.2f", m.F1, t.MinF1))
	}
	return GateResult{
		Passed:  len(reasons) == 0,
		Reasons: reasons,
		Metrics: m,
	}
}
