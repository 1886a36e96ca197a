package validation

import (
	"math"
	"testing"

	"github.com/aurahome/synergy-engine/internal/logger"
)

func TestValidate_PerfectMatch(t *testing.T) {
	v := NewValidator(logger.NewNop())
	expected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"binary_sensor.motion_hallway", "light.hallway"}},
	}
	detected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"binary_sensor.motion_hallway", "light.hallway"}},
	}

	if sim := Similarity(expected[0], detected[0]); sim != 1.0 {
		t.Fatalf("expected similarity 1.0, got %v", sim)
	}

	m := v.Validate(expected, detected)
	if m.TruePositives != 1 || m.FalsePositives != 0 || m.FalseNegatives != 0 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.Precision != 1.0 || m.Recall != 1.0 || m.F1 != 1.0 {
		t.Fatalf("unexpected rates: %+v", m)
	}
}

func TestValidate_FalsePositiveAndNegative(t *testing.T) {
	v := NewValidator(logger.NewNop())
	expected := []PatternRecord{
		{PatternType: "time_of_day", Devices: []string{"light.porch"}},
	}
	detected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"switch.garage", "cover.garage"}},
	}
	m := v.Validate(expected, detected)
	if m.TruePositives != 0 || m.FalsePositives != 1 || m.FalseNegatives != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 {
		t.Fatalf("unexpected rates: %+v", m)
	}
}

func TestValidate_GreedyClaimsBestMatch(t *testing.T) {
	v := NewValidator(logger.NewNop())
	expected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"a", "b", "c"}},
		{PatternType: "co_occurrence", Devices: []string{"a", "b"}},
	}
	detected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"a", "b"}},
	}
	m := v.Validate(expected, detected)
	if m.TruePositives != 1 || m.FalseNegatives != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	// The exact-device expected pattern must be the one consumed.
	tm := m.PerType["co_occurrence"]
	if tm == nil || tm.TruePositives != 1 {
		t.Fatalf("per-type breakdown missing: %+v", m.PerType)
	}
}

func TestValidate_EachExpectedMatchedOnce(t *testing.T) {
	v := NewValidator(logger.NewNop())
	expected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"a", "b"}},
	}
	detected := []PatternRecord{
		{PatternType: "co_occurrence", Devices: []string{"a", "b"}},
		{PatternType: "co_occurrence", Devices: []string{"a", "b"}},
	}
	m := v.Validate(expected, detected)
	if m.TruePositives != 1 || m.FalsePositives != 1 {
		t.Fatalf("an expected pattern was matched twice: %+v", m)
	}
}

func TestSimilarity_Weights(t *testing.T) {
	exp := PatternRecord{PatternType: "co_occurrence", Devices: []string{"a", "b"}, TriggerDevice: "a"}
	det := PatternRecord{PatternType: "time_of_day", Devices: []string{"a", "b"}, TriggerDevice: "a"}
	// device jaccard 1.0 -> 0.5, trigger match -> 0.2, type mismatch -> 0
	if sim := Similarity(exp, det); math.Abs(sim-0.7) > 1e-9 {
		t.Fatalf("expected 0.7, got %v", sim)
	}

	det.PatternType = "co_occurrence"
	det.Devices = []string{"a", "x"}
	// type 0.3 + jaccard(1/3)*0.5 + trigger 0.2
	want := 0.3 + 0.5/3 + 0.2
	if sim := Similarity(exp, det); math.Abs(sim-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, sim)
	}
}

func TestAggregate_SumsCountsBeforeRates(t *testing.T) {
	perHome := []Metrics{
		{TruePositives: 8, FalsePositives: 2, FalseNegatives: 0, PerType: map[string]*TypeMetrics{}},
		{TruePositives: 0, FalsePositives: 0, FalseNegatives: 10, PerType: map[string]*TypeMetrics{}},
	}
	agg := Aggregate(perHome)
	if agg.TruePositives != 8 || agg.FalsePositives != 2 || agg.FalseNegatives != 10 {
		t.Fatalf("unexpected aggregate counts: %+v", agg)
	}
	// Precision over summed counts: 8/10, not the mean of per-home values.
	if math.Abs(agg.Precision-0.8) > 1e-9 {
		t.Fatalf("expected precision 0.8, got %v", agg.Precision)
	}
	if math.Abs(agg.Recall-8.0/18.0) > 1e-9 {
		t.Fatalf("expected recall %v, got %v", 8.0/18.0, agg.Recall)
	}
}

func TestValidate_EmptyInputs(t *testing.T) {
	v := NewValidator(logger.NewNop())
	m := v.Validate(nil, nil)
	if m.TruePositives != 0 || m.FalsePositives != 0 || m.FalseNegatives != 0 {
		t.Fatalf("expected all-zero metrics: %+v", m)
	}
}
