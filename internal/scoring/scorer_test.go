package scoring

import (
	"math"
	"testing"

	"github.com/aurahome/synergy-engine/internal/types"
)

func strPtr(s string) *string { return &s }

func sampleSynergy() *types.Synergy {
	return &types.Synergy{
		ID:                  "s1",
		Devices:             []string{"binary_sensor.motion_hall", "light.hall"},
		TriggerEntity:       "binary_sensor.motion_hall",
		ActionEntity:        "light.hall",
		Area:                strPtr("hallway"),
		ImpactScore:         0.8,
		Confidence:          0.9,
		PatternSupportScore: 1.0,
		RelationshipType:    "motion_to_light",
		Complexity:          types.ComplexityLow,
		SynergyDepth:        2,
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer()
	syn := sampleSynergy()
	a := s.Score(syn)
	b := s.Score(syn)
	if a != b {
		t.Fatalf("score not deterministic: %+v vs %+v", a, b)
	}
}

func TestScore_Bounds(t *testing.T) {
	s := NewScorer()
	syn := sampleSynergy()
	syn.ImpactScore = 3.0
	syn.Confidence = -2.0
	syn.PatternSupportScore = 9.9
	res := s.Score(syn)
	if res.QualityScore < 0 || res.QualityScore > 1 {
		t.Fatalf("quality score out of range: %v", res.QualityScore)
	}
	if res.Breakdown.Impact != 1.0 {
		t.Fatalf("expected impact clamped to 1.0, got %v", res.Breakdown.Impact)
	}
	if res.Breakdown.Confidence != 0 {
		t.Fatalf("expected confidence clamped to 0, got %v", res.Breakdown.Confidence)
	}
}

func TestScore_CompatibilityComponents(t *testing.T) {
	s := NewScorer()
	syn := sampleSynergy()
	// area 0.5 + allow-listed relationship 0.3 + sensor->light 0.2, capped at 1.0
	res := s.Score(syn)
	if res.Breakdown.Compatibility != 1.0 {
		t.Fatalf("expected compatibility 1.0, got %v", res.Breakdown.Compatibility)
	}

	syn.Area = nil
	syn.RelationshipType = "something_else"
	res = s.Score(syn)
	if res.Breakdown.Compatibility != 0.2 {
		t.Fatalf("expected compatibility 0.2, got %v", res.Breakdown.Compatibility)
	}

	syn.Area = strPtr("unknown")
	res = s.Score(syn)
	if res.Breakdown.Compatibility != 0.2 {
		t.Fatalf("unknown area must not count, got %v", res.Breakdown.Compatibility)
	}
}

func TestScore_ValidationBoostCapped(t *testing.T) {
	s := NewScorer()
	syn := sampleSynergy()
	syn.ValidatedByPatterns = true
	syn.BlueprintMatch = true
	syn.Complexity = types.ComplexityLow
	res := s.Score(syn)
	// 0.2 + 0.15 + 0.1 = 0.45, capped at 0.3
	if res.ValidationBoost != 0.3 {
		t.Fatalf("expected boost capped at 0.3, got %v", res.ValidationBoost)
	}
}

func TestScore_BaseQualityWeights(t *testing.T) {
	s := NewScorer()
	syn := sampleSynergy()
	syn.Complexity = types.ComplexityMedium // no boost
	res := s.Score(syn)
	want := 0.35*0.8 + 0.25*0.9 + 0.25*1.0 + 0.15*1.0
	if math.Abs(res.BaseQuality-want) > 1e-9 {
		t.Fatalf("base quality: want %v got %v", want, res.BaseQuality)
	}
	if res.ValidationBoost != 0 {
		t.Fatalf("expected no boost, got %v", res.ValidationBoost)
	}
}

func TestScore_Tiering(t *testing.T) {
	s := NewScorer()
	cases := []struct {
		impact, confidence, support float64
		wantTier                    Tier
	}{
		{0.9, 0.9, 1.0, TierHigh},
		{0.7, 0.7, 0.6, TierMedium},
		{0.1, 0.1, 0.0, TierLow},
	}
	for _, c := range cases {
		syn := &types.Synergy{
			Devices:             []string{"switch.a", "switch.b"},
			TriggerEntity:       "switch.a",
			ActionEntity:        "switch.b",
			ImpactScore:         c.impact,
			Confidence:          c.confidence,
			PatternSupportScore: c.support,
			Complexity:          types.ComplexityMedium,
			SynergyDepth:        2,
		}
		res := s.Score(syn)
		if res.Tier != c.wantTier {
			t.Fatalf("impact=%v confidence=%v support=%v: want tier %s got %s (score %v)",
				c.impact, c.confidence, c.support, c.wantTier, res.Tier, res.QualityScore)
		}
	}
}

func TestScore_MissingFieldDefaults(t *testing.T) {
	s := NewScorer()
	res := s.Score(&types.Synergy{})
	if res.Breakdown.Impact != defaultImpact {
		t.Fatalf("expected default impact %v, got %v", defaultImpact, res.Breakdown.Impact)
	}
	if res.Breakdown.Confidence != defaultConfidence {
		t.Fatalf("expected default confidence %v, got %v", defaultConfidence, res.Breakdown.Confidence)
	}
	if res.Breakdown.PatternSupport != 0 {
		t.Fatalf("expected pattern support 0, got %v", res.Breakdown.PatternSupport)
	}
	if s.Score(nil) != res {
		t.Fatalf("nil synergy must score like an empty one")
	}
}

func TestAssessValue_FlagsWeakSynergies(t *testing.T) {
	s := NewScorer()
	syn := &types.Synergy{
		Devices:       []string{"switch.a", "switch.b"},
		TriggerEntity: "switch.a",
		ActionEntity:  "switch.b",
		ImpactScore:   0.3,
		Confidence:    0.4,
		Complexity:    types.ComplexityHigh,
		SynergyDepth:  2,
	}
	a := s.AssessValue(syn)
	if a.Recommended {
		t.Fatalf("expected weak synergy to be not recommended")
	}
	if len(a.Reasons) == 0 {
		t.Fatalf("expected structured reasons")
	}
}

func TestAssessValue_PassesStrongSynergy(t *testing.T) {
	s := NewScorer()
	a := s.AssessValue(sampleSynergy())
	if !a.Recommended {
		t.Fatalf("expected recommendation, reasons: %v", a.Reasons)
	}
}
