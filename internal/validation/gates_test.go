package validation

import (
	"strings"
	"testing"
)

func metricsWith(precision, recall, f1 float64) Metrics {
	return Metrics{Precision: precision, Recall: recall, F1: f1}
}

func TestEvaluateGates_AllPass(t *testing.T) {
	res := EvaluateGates(metricsWith(0.9, 0.7, 0.78), DefaultGateThresholds())
	if !res.Passed {
		t.Fatalf("expected pass, reasons: %v", res.Reasons)
	}
	if len(res.Reasons) != 0 {
		t.Fatalf("expected no reasons on pass, got %v", res.Reasons)
	}
}

func TestEvaluateGates_ExactThresholdPasses(t *testing.T) {
	res := EvaluateGates(metricsWith(0.80, 0.60, 0.65), DefaultGateThresholds())
	if !res.Passed {
		t.Fatalf("exact thresholds must pass, reasons: %v", res.Reasons)
	}
}

func TestEvaluateGates_JustBelowPrecisionFails(t *testing.T) {
	res := EvaluateGates(metricsWith(0.799, 0.7, 0.75), DefaultGateThresholds())
	if res.Passed {
		t.Fatalf("expected failure at precision 0.799")
	}
	found := false
	for _, r := range res.Reasons {
		if strings.Contains(r, "Precision") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a reason naming Precision, got %v", res.Reasons)
	}
}

func TestEvaluateGates_ItemizesEveryMiss(t *testing.T) {
	res := EvaluateGates(metricsWith(0.1, 0.1, 0.1), DefaultGateThresholds())
	if res.Passed {
		t.Fatalf("expected failure")
	}
	if len(res.Reasons) != 3 {
		t.Fatalf("expected 3 itemized reasons, got %v", res.Reasons)
	}
}
