package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PatternType string

const (
	PatternTypeTimeOfDay    PatternType = "time_of_day"
	PatternTypeCoOccurrence PatternType = "co_occurrence"
	PatternTypeAnomaly      PatternType = "anomaly"
	PatternTypeSeasonal     PatternType = "seasonal"
	PatternTypeSynergy      PatternType = "synergy"
)

type TrendDirection string

const (
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendIncreasing TrendDirection = "increasing"
)

// Pattern is an atomic detected regularity for one entity, produced by the
// upstream pattern source and recomputed periodically. The engine never
// deletes patterns.
type Pattern struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PatternType PatternType    `gorm:"column:pattern_type;not null;index" json:"pattern_type"`
	EntityID    string         `gorm:"column:entity_id;not null;index" json:"entity_id"`
	HomeID      string         `gorm:"column:home_id;not null;index" json:"home_id"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"` // detector-specific: hour, minute, time_range, cluster_id
	Confidence  float64        `gorm:"column:confidence;not null;default:0" json:"confidence"` // 0..1
	Occurrences int            `gorm:"column:occurrences;not null;default:0" json:"occurrences"`
	FirstSeen   time.Time      `gorm:"column:first_seen" json:"first_seen"`
	LastSeen    time.Time      `gorm:"column:last_seen" json:"last_seen"`

	TrendDirection TrendDirection `gorm:"column:trend_direction;default:stable" json:"trend_direction"`
	TrendStrength  float64        `gorm:"column:trend_strength;not null;default:0" json:"trend_strength"` // 0..1

	Calibrated  bool `gorm:"column:calibrated;not null;default:false" json:"calibrated"`
	Deprecated  bool `gorm:"column:deprecated;not null;default:false" json:"deprecated"`
	NeedsReview bool `gorm:"column:needs_review;not null;default:false" json:"needs_review"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Pattern) TableName() string { return "patterns" }

// Valid reports whether the record is usable by the detectors. Malformed
// patterns are skipped, never fatal.
func (p *Pattern) Valid() bool {
	if p.EntityID == "" || p.PatternType == "" {
		return false
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return false
	}
	return true
}
