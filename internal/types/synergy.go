package types

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type SynergyType string

const (
	SynergyScheduleBased SynergyType = "schedule_based"
	SynergyDeviceChain   SynergyType = "device_chain"
	SynergyContextAware  SynergyType = "context_aware"
)

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Synergy is a candidate automation opportunity across 2-4 devices. Depth-2
// rows come from the detectors, depth-3/4 rows from the chain builder.
// Superseded rows are kept with superseded_at set, never deleted.
type Synergy struct {
	ID          string      `gorm:"primaryKey" json:"synergy_id"`
	HomeID      string      `gorm:"column:home_id;not null;index" json:"home_id"`
	SynergyType SynergyType `gorm:"column:synergy_type;not null;index" json:"synergy_type"`

	Devices       datatypes.JSONSlice[string] `gorm:"column:devices" json:"devices"`
	TriggerEntity string                      `gorm:"column:trigger_entity;not null;index" json:"trigger_entity"`
	ActionEntity  string                      `gorm:"column:action_entity;not null" json:"action_entity"`
	Area          *string                     `gorm:"column:area" json:"area,omitempty"` // set only when every hop shares one area

	ImpactScore float64    `gorm:"column:impact_score;not null;default:0" json:"impact_score"` // 0..1
	Confidence  float64    `gorm:"column:confidence;not null;default:0" json:"confidence"`     // 0..1
	Complexity  Complexity `gorm:"column:complexity;default:medium" json:"complexity"`
	Rationale   string     `gorm:"column:rationale" json:"rationale"`

	SynergyDepth int    `gorm:"column:synergy_depth;not null;default:2" json:"synergy_depth"`
	ChainPath    string `gorm:"column:chain_path" json:"chain_path"`

	RelationshipType    string  `gorm:"column:relationship_type" json:"relationship_type,omitempty"`
	PatternSupportScore float64 `gorm:"column:pattern_support_score;not null;default:0" json:"pattern_support_score"`
	ValidatedByPatterns bool    `gorm:"column:validated_by_patterns;not null;default:false" json:"validated_by_patterns"`
	BlueprintMatch      bool    `gorm:"column:blueprint_match;not null;default:false" json:"blueprint_match"`

	ContextMetadata datatypes.JSON `gorm:"column:context_metadata" json:"context_metadata,omitempty"`

	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
	SupersededAt *time.Time `gorm:"column:superseded_at;index" json:"superseded_at,omitempty"`
}

func (Synergy) TableName() string { return "synergies" }

// Validate enforces the structural invariants every emitted synergy must hold.
func (s *Synergy) Validate() error {
	if len(s.Devices) < 2 || len(s.Devices) > 4 {
		return fmt.Errorf("synergy %s: device count %d outside 2..4", s.ID, len(s.Devices))
	}
	if s.SynergyDepth != len(s.Devices) {
		return fmt.Errorf("synergy %s: depth %d != device count %d", s.ID, s.SynergyDepth, len(s.Devices))
	}
	seen := make(map[string]struct{}, len(s.Devices))
	for _, d := range s.Devices {
		if _, dup := seen[d]; dup {
			return fmt.Errorf("synergy %s: duplicate device %s", s.ID, d)
		}
		seen[d] = struct{}{}
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("synergy %s: confidence %v outside [0,1]", s.ID, s.Confidence)
	}
	if s.ImpactScore < 0 || s.ImpactScore > 1 {
		return fmt.Errorf("synergy %s: impact %v outside [0,1]", s.ID, s.ImpactScore)
	}
	if s.TriggerEntity != s.Devices[0] || s.ActionEntity != s.Devices[len(s.Devices)-1] {
		return fmt.Errorf("synergy %s: trigger/action entities do not match device endpoints", s.ID)
	}
	return nil
}

// ChainDisplay renders the human-readable hop path ("A → B → C").
func ChainDisplay(devices []string) string {
	return strings.Join(devices, " → ")
}
