package detect

import (
	"context"

	"github.com/aurahome/synergy-engine/internal/types"
)

// Detector turns atomic patterns plus entity metadata into candidate pairwise
// synergies. Implementations are stateless and deterministic for identical
// inputs; a malformed pattern or entity is skipped, never fatal.
type Detector interface {
	Name() string
	Detect(ctx context.Context, patterns []*types.Pattern, entities []*types.Entity) []*types.Synergy
}

// Registry holds detectors in a fixed order. Discovery runs merge detector
// output by registry position, not by completion order, so results are
// reproducible regardless of scheduling.
type Registry struct {
	detectors []Detector
}

func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

func (r *Registry) Detectors() []Detector {
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// entityIndex builds a lookup from entity id to record, skipping malformed
// entries.
func entityIndex(entities []*types.Entity) map[string]*types.Entity {
	idx := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		if e == nil || e.ID == "" {
			continue
		}
		idx[e.ID] = e
	}
	return idx
}

// sharedArea returns the common area of two entities, or nil when either is
// missing one or they differ.
func sharedArea(a, b *types.Entity) *string {
	if a == nil || b == nil || a.AreaID == nil || b.AreaID == nil {
		return nil
	}
	if *a.AreaID != *b.AreaID {
		return nil
	}
	area := *a.AreaID
	return &area
}
