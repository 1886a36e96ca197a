package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

// ContextRule is one domain-combination strategy. Rules are registered at
// startup; adding a combination means adding a rule, not editing a
// dispatcher.
type ContextRule interface {
	// ContextType keys the per-type output cap.
	ContextType() string
	// SourceFor returns the triggering entity for this rule, or nil when the
	// home has none.
	SourceFor(entities []*types.Entity) *types.Entity
	// Targets returns the actionable devices, in input order.
	Targets(entities []*types.Entity) []*types.Entity
	Impact() float64
	Confidence() float64
	Complexity() types.Complexity
	Relationship() string
	Rationale(source, target *types.Entity) string
}

// ContextDetector runs every registered rule against the entity inventory and
// emits one context_aware synergy per matched device, bounded by a per-type
// cap and a total cap so chain building stays tractable.
type ContextDetector struct {
	rules         []ContextRule
	maxTotal      int
	maxPerContext int
	log           *logger.Logger
}

func NewContextDetector(maxTotal, maxPerContext int, baseLog *logger.Logger, rules ...ContextRule) *ContextDetector {
	if len(rules) == 0 {
		rules = DefaultContextRules()
	}
	return &ContextDetector{
		rules:         rules,
		maxTotal:      maxTotal,
		maxPerContext: maxPerContext,
		log:           baseLog.With("detector", "context"),
	}
}

func (d *ContextDetector) Name() string { return "context" }

func (d *ContextDetector) Detect(ctx context.Context, patterns []*types.Pattern, entities []*types.Entity) []*types.Synergy {
	var out []*types.Synergy
	for _, rule := range d.rules {
		if len(out) >= d.maxTotal {
			break
		}
		source := rule.SourceFor(entities)
		if source == nil {
			continue
		}
		emitted := 0
		for _, target := range rule.Targets(entities) {
			if emitted >= d.maxPerContext || len(out) >= d.maxTotal {
				break
			}
			if target.ID == source.ID {
				continue
			}
			out = append(out, d.ruleSynergy(rule, source, target))
			emitted++
		}
	}
	return out
}

func (d *ContextDetector) ruleSynergy(rule ContextRule, source, target *types.Entity) *types.Synergy {
	devices := []string{source.ID, target.ID}
	return &types.Synergy{
		ID:               fmt.Sprintf("ctx_%s_%s", rule.ContextType(), sanitizeID(target.ID)),
		SynergyType:      types.SynergyContextAware,
		Devices:          devices,
		TriggerEntity:    source.ID,
		ActionEntity:     target.ID,
		Area:             sharedArea(source, target),
		ImpactScore:      rule.Impact(),
		Confidence:       rule.Confidence(),
		Complexity:       rule.Complexity(),
		SynergyDepth:     2,
		ChainPath:        types.ChainDisplay(devices),
		Rationale:        rule.Rationale(source, target),
		RelationshipType: rule.Relationship(),
	}
}

// domainComboRule matches a single source domain against a set of target
// domains with fixed scoring. Covers every current combination.
type domainComboRule struct {
	contextType   string
	sourceDomain  string
	targetDomains []string
	// targetFilter further narrows targets (nil = accept all of the domain).
	targetFilter func(*types.Entity) bool
	sourceFilter func(*types.Entity) bool
	impact       float64
	confidence   float64
	complexity   types.Complexity
	relationship string
	reason       string
}

func (r *domainComboRule) ContextType() string { return r.contextType }

func (r *domainComboRule) SourceFor(entities []*types.Entity) *types.Entity {
	for _, e := range entities {
		if e == nil || e.ID == "" {
			continue
		}
		if e.Domain != r.sourceDomain {
			continue
		}
		if r.sourceFilter != nil && !r.sourceFilter(e) {
			continue
		}
		return e
	}
	return nil
}

func (r *domainComboRule) Targets(entities []*types.Entity) []*types.Entity {
	var out []*types.Entity
	for _, e := range entities {
		if e == nil || e.ID == "" {
			continue
		}
		for _, dom := range r.targetDomains {
			if e.Domain != dom {
				continue
			}
			if r.targetFilter != nil && !r.targetFilter(e) {
				continue
			}
			out = append(out, e)
			break
		}
	}
	return out
}

func (r *domainComboRule) Impact() float64              { return r.impact }
func (r *domainComboRule) Confidence() float64          { return r.confidence }
func (r *domainComboRule) Complexity() types.Complexity { return r.complexity }
func (r *domainComboRule) Relationship() string         { return r.relationship }

func (r *domainComboRule) Rationale(source, target *types.Entity) string {
	return fmt.Sprintf(r.reason, source.ID, target.ID)
}

// isEnergySensor matches sensor entities that report power or energy.
func isEnergySensor(e *types.Entity) bool {
	return strings.Contains(e.ID, "energy") || strings.Contains(e.ID, "power")
}

// DefaultContextRules is the production rule set. Order matters: earlier
// rules claim budget from the total cap first.
func DefaultContextRules() []ContextRule {
	return []ContextRule{
		&domainComboRule{
			contextType:   "weather_climate",
			sourceDomain:  "weather",
			targetDomains: []string{"climate"},
			impact:        0.75,
			confidence:    0.70,
			complexity:    types.ComplexityMedium,
			relationship:  "temperature_to_climate",
			reason:        "adjust %[2]s ahead of conditions reported by %[1]s",
		},
		&domainComboRule{
			contextType:   "weather_cover",
			sourceDomain:  "weather",
			targetDomains: []string{"cover"},
			impact:        0.70,
			confidence:    0.70,
			complexity:    types.ComplexityMedium,
			relationship:  "weather_to_cover",
			reason:        "operate %[2]s based on conditions reported by %[1]s",
		},
		&domainComboRule{
			contextType:   "energy_scheduling",
			sourceDomain:  "sensor",
			sourceFilter:  isEnergySensor,
			targetDomains: []string{"climate", "water_heater", "switch"},
			impact:        0.80,
			confidence:    0.75,
			complexity:    types.ComplexityHigh,
			relationship:  "energy_scheduling",
			reason:        "shift %[2]s usage into cheap windows reported by %[1]s",
		},
		&domainComboRule{
			contextType:   "weather_lighting",
			sourceDomain:  "weather",
			targetDomains: []string{"light"},
			impact:        0.65,
			confidence:    0.70,
			complexity:    types.ComplexityLow,
			relationship:  "weather_to_light",
			reason:        "adapt %[2]s to daylight conditions reported by %[1]s",
		},
	}
}
