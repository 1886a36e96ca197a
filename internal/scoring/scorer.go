package scoring

import (
	"fmt"

	"github.com/aurahome/synergy-engine/internal/types"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Breakdown carries the component signals that fed the composite score.
type Breakdown struct {
	Impact         float64 `json:"impact"`
	Confidence     float64 `json:"confidence"`
	PatternSupport float64 `json:"pattern_support"`
	Compatibility  float64 `json:"compatibility"`
}

// Result is derived per call and never persisted.
type Result struct {
	QualityScore    float64   `json:"quality_score"`
	BaseQuality     float64   `json:"base_quality"`
	ValidationBoost float64   `json:"validation_boost"`
	Breakdown       Breakdown `json:"breakdown"`
	Tier            Tier      `json:"quality_tier"`
	IsHighQuality   bool      `json:"is_high_quality"`
}

// Assessment reports whether a synergy is fit for deployment and why not.
type Assessment struct {
	Recommended bool     `json:"recommended"`
	Reasons     []string `json:"reasons,omitempty"`
	Result      Result   `json:"result"`
}

const (
	weightImpact         = 0.35
	weightConfidence     = 0.25
	weightPatternSupport = 0.25
	weightCompatibility  = 0.15

	maxValidationBoost = 0.3
	highQualityFloor   = 0.6

	// Absent scores are treated as middling rather than zero so a sparsely
	// annotated synergy is not buried.
	defaultImpact     = 0.5
	defaultConfidence = 0.7
)

// compatibleRelationships are trigger/action pairings known to make good
// automations.
var compatibleRelationships = map[string]struct{}{
	"motion_to_light":        {},
	"door_to_lock":           {},
	"temperature_to_climate": {},
	"presence_to_light":      {},
	"time_to_light":          {},
}

// Scorer computes the composite quality score. Pure and total: it never
// errors, missing inputs fall back to documented defaults.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

func (s *Scorer) Score(syn *types.Synergy) Result {
	if syn == nil {
		syn = &types.Synergy{}
	}

	impact := syn.ImpactScore
	if impact == 0 {
		impact = defaultImpact
	}
	confidence := syn.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	impact = clamp01(impact)
	confidence = clamp01(confidence)
	patternSupport := clamp01(syn.PatternSupportScore)
	compatibility := s.compatibility(syn)

	base := clamp01(weightImpact*impact +
		weightConfidence*confidence +
		weightPatternSupport*patternSupport +
		weightCompatibility*compatibility)

	boost := 0.0
	if syn.ValidatedByPatterns {
		boost += 0.2
	}
	if syn.BlueprintMatch {
		boost += 0.15
	}
	if syn.Complexity == types.ComplexityLow {
		boost += 0.1
	}
	if boost > maxValidationBoost {
		boost = maxValidationBoost
	}

	quality := base + boost
	if quality > 1.0 {
		quality = 1.0
	}

	return Result{
		QualityScore:    quality,
		BaseQuality:     base,
		ValidationBoost: boost,
		Breakdown: Breakdown{
			Impact:         impact,
			Confidence:     confidence,
			PatternSupport: patternSupport,
			Compatibility:  compatibility,
		},
		Tier:          tierFor(quality),
		IsHighQuality: quality >= highQualityFloor,
	}
}

func (s *Scorer) compatibility(syn *types.Synergy) float64 {
	score := 0.0
	if syn.Area != nil && *syn.Area != "" && *syn.Area != "unknown" {
		score += 0.5
	}
	if _, ok := compatibleRelationships[syn.RelationshipType]; ok {
		score += 0.3
	}
	triggerDomain := types.EntityDomain(syn.TriggerEntity)
	actionDomain := types.EntityDomain(syn.ActionEntity)
	if (triggerDomain == "binary_sensor" || triggerDomain == "sensor") && actionDomain == "light" {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// AssessValue flags synergies below the deployment bar with structured
// reasons. The API layer uses this to gate user-facing suggestions; nothing
// here mutates the synergy.
func (s *Scorer) AssessValue(syn *types.Synergy) Assessment {
	res := s.Score(syn)

	var reasons []string
	if res.QualityScore < 0.5 {
		reasons = append(reasons, fmt.Sprintf("quality score %.2f below 0.50", res.QualityScore))
	}
	if res.Breakdown.Impact < 0.5 {
		reasons = append(reasons, fmt.Sprintf("impact %.2f below 0.50", res.Breakdown.Impact))
	}
	if res.Breakdown.PatternSupport < 0.5 {
		reasons = append(reasons, fmt.Sprintf("pattern support %.2f below 0.50", res.Breakdown.PatternSupport))
	}
	if syn != nil && syn.Complexity == types.ComplexityHigh && !syn.ValidatedByPatterns {
		reasons = append(reasons, "high complexity without pattern validation")
	}

	return Assessment{
		Recommended: len(reasons) == 0,
		Reasons:     reasons,
		Result:      res,
	}
}

func tierFor(quality float64) Tier {
	switch {
	case quality >= 0.75:
		return TierHigh
	case quality >= 0.50:
		return TierMedium
	default:
		return TierLow
	}
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
