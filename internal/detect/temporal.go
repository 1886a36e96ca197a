package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

// TemporalDetector groups high-confidence time patterns into 30-minute
// buckets and emits a schedule_based synergy for every pair of distinct
// devices that co-occupy a bucket.
type TemporalDetector struct {
	minConfidence float64
	log           *logger.Logger
}

func NewTemporalDetector(minConfidence float64, baseLog *logger.Logger) *TemporalDetector {
	return &TemporalDetector{
		minConfidence: minConfidence,
		log:           baseLog.With("detector", "temporal"),
	}
}

func (d *TemporalDetector) Name() string { return "temporal" }

type bucketEntry struct {
	entityID string
	confSum  float64
	count    int
}

func (e *bucketEntry) avg() float64 { return e.confSum / float64(e.count) }

func (d *TemporalDetector) Detect(ctx context.Context, patterns []*types.Pattern, entities []*types.Entity) []*types.Synergy {
	idx := entityIndex(entities)

	// bucket -> entries in first-seen order
	buckets := make(map[int][]*bucketEntry)
	bucketOrder := make([]int, 0)

	for _, p := range patterns {
		if p == nil || !p.Valid() {
			d.log.Debug("Skipping malformed pattern")
			continue
		}
		if p.Confidence < d.minConfidence {
			continue
		}
		hour, minute, ok := patternClock(p)
		if !ok {
			continue
		}
		bucket := hour*2 + minute/30
		entries, seen := buckets[bucket]
		if !seen {
			bucketOrder = append(bucketOrder, bucket)
		}
		var entry *bucketEntry
		for _, e := range entries {
			if e.entityID == p.EntityID {
				entry = e
				break
			}
		}
		if entry == nil {
			entry = &bucketEntry{entityID: p.EntityID}
			entries = append(entries, entry)
		}
		entry.confSum += p.Confidence
		entry.count++
		buckets[bucket] = entries
	}

	var out []*types.Synergy
	for _, bucket := range bucketOrder {
		entries := buckets[bucket]
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				a, b := entries[i], entries[j]
				if a.entityID == b.entityID {
					continue
				}
				out = append(out, d.pairSynergy(bucket, a, b, idx))
			}
		}
	}
	return out
}

func (d *TemporalDetector) pairSynergy(bucket int, a, b *bucketEntry, idx map[string]*types.Entity) *types.Synergy {
	confidence := (a.avg() + b.avg()) / 2
	impact := 0.65 + 0.2*confidence

	devices := []string{a.entityID, b.entityID}
	s := &types.Synergy{
		ID:            temporalSynergyID(bucket, a.entityID, b.entityID),
		SynergyType:   types.SynergyScheduleBased,
		Devices:       devices,
		TriggerEntity: devices[0],
		ActionEntity:  devices[1],
		Area:          sharedArea(idx[a.entityID], idx[b.entityID]),
		ImpactScore:   impact,
		Confidence:    confidence,
		Complexity:    types.ComplexityLow,
		SynergyDepth:  2,
		ChainPath:     types.ChainDisplay(devices),
		Rationale: fmt.Sprintf("%s and %s are both active around %02d:%02d",
			a.entityID, b.entityID, bucket/2, (bucket%2)*30),
		RelationshipType: temporalRelationship(a.entityID, b.entityID),
	}
	return s
}

// temporalRelationship names the trigger/action relationship when it maps to
// one of the compatibility classes the scorer recognizes.
func temporalRelationship(trigger, action string) string {
	td, ad := types.EntityDomain(trigger), types.EntityDomain(action)
	switch {
	case td == "binary_sensor" && strings.Contains(trigger, "motion") && ad == "light":
		return "motion_to_light"
	case td == "binary_sensor" && strings.Contains(trigger, "presence") && ad == "light":
		return "presence_to_light"
	case ad == "light":
		return "time_to_light"
	default:
		return "scheduled_co_activation"
	}
}

func temporalSynergyID(bucket int, a, b string) string {
	return fmt.Sprintf("temporal_%02d_%s__%s", bucket, sanitizeID(a), sanitizeID(b))
}

func sanitizeID(entityID string) string {
	return strings.ReplaceAll(entityID, ".", "_")
}

// patternClock pulls hour/minute out of the detector-specific metadata.
// Accepts either explicit hour/minute keys or an "HH:MM" time_range start.
func patternClock(p *types.Pattern) (hour, minute int, ok bool) {
	if len(p.Metadata) == 0 {
		return 0, 0, false
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(p.Metadata, &meta); err != nil {
		return 0, 0, false
	}
	if h, hok := meta["hour"].(float64); hok {
		hour = int(h)
		if m, mok := meta["minute"].(float64); mok {
			minute = int(m)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}
	if tr, trok := meta["time_range"].(string); trok {
		start := strings.SplitN(tr, "-", 2)[0]
		if _, err := fmt.Sscanf(strings.TrimSpace(start), "%d:%d", &hour, &minute); err == nil {
			if hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 {
				return hour, minute, true
			}
		}
	}
	return 0, 0, false
}
