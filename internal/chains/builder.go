package chains

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

// AreaValidator approves or rejects a hop between two pairwise synergies.
// When nil, cross-area hops are allowed.
type AreaValidator func(from, to *types.Synergy) bool

// SameAreaValidator rejects hops whose segments sit in different known areas.
func SameAreaValidator(from, to *types.Synergy) bool {
	if from.Area == nil || to.Area == nil {
		return true
	}
	return *from.Area == *to.Area
}

// Builder extends pairwise synergies into 3- and 4-device chains. Traversal
// cost is bounded by topPairs, not raw input size.
type Builder struct {
	topPairs int
	max3     int
	max4     int

	cache     ChainCache
	validator AreaValidator
	log       *logger.Logger
}

func NewBuilder(topPairs, max3, max4 int, cache ChainCache, validator AreaValidator, baseLog *logger.Logger) *Builder {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Builder{
		topPairs:  topPairs,
		max3:      max3,
		max4:      max4,
		cache:     cache,
		validator: validator,
		log:       baseLog.With("component", "ChainBuilder"),
	}
}

// rankQuality is the cheap candidate-ranking score, distinct from the full
// quality scorer.
func rankQuality(s *types.Synergy) float64 {
	return 0.6*s.Confidence + 0.4*s.ImpactScore
}

// Build returns depth-3 then depth-4 chains for the given pairwise set.
// Re-running on an unchanged input and cache yields an identical result set.
func (b *Builder) Build(ctx context.Context, pairs []*types.Synergy) []*types.Synergy {
	if len(pairs) == 0 {
		return nil
	}

	// Continuation lookup: trigger entity -> synergies starting there.
	adjacency := make(map[string][]*types.Synergy, len(pairs))
	for _, p := range pairs {
		if p == nil || len(p.Devices) != 2 {
			continue
		}
		adjacency[p.TriggerEntity] = append(adjacency[p.TriggerEntity], p)
	}

	ranked := topByQuality(pairs, b.topPairs)

	chains3 := b.buildDepth3(ctx, ranked, adjacency)
	chains3 = topByQuality(chains3, b.max3)

	chains4 := b.buildDepth4(ctx, chains3, adjacency)
	chains4 = topByQuality(chains4, b.max4)

	b.log.Debug("Chain building complete",
		"pairs", len(pairs), "ranked", len(ranked),
		"chains3", len(chains3), "chains4", len(chains4))

	out := make([]*types.Synergy, 0, len(chains3)+len(chains4))
	out = append(out, chains3...)
	out = append(out, chains4...)
	return out
}

func (b *Builder) buildDepth3(ctx context.Context, ranked []*types.Synergy, adjacency map[string][]*types.Synergy) []*types.Synergy {
	var out []*types.Synergy
	for _, p1 := range ranked {
		for _, p2 := range adjacency[p1.ActionEntity] {
			if p2 == p1 {
				continue
			}
			devices := []string{p1.TriggerEntity, p1.ActionEntity, p2.ActionEntity}
			key := ChainKey(devices)
			if cached, ok := b.cache.Get(ctx, key); ok {
				out = append(out, cached)
				continue
			}
			// Circular chains are never emitted.
			if p2.ActionEntity == p1.TriggerEntity {
				continue
			}
			if b.validator != nil && !b.validator(p1, p2) {
				continue
			}
			chain := b.composeChain(devices, p1, p2)
			if err := chain.Validate(); err != nil {
				b.log.Warn("Dropping invalid chain", "error", err)
				continue
			}
			b.cache.Set(ctx, key, chain)
			out = append(out, chain)
		}
	}
	return out
}

func (b *Builder) buildDepth4(ctx context.Context, chains3 []*types.Synergy, adjacency map[string][]*types.Synergy) []*types.Synergy {
	var out []*types.Synergy
	for _, c3 := range chains3 {
		visited := make(map[string]struct{}, len(c3.Devices))
		for _, d := range c3.Devices {
			visited[d] = struct{}{}
		}
		for _, next := range adjacency[c3.ActionEntity] {
			devices := append(append([]string(nil), c3.Devices...), next.ActionEntity)
			key := ChainKey(devices)
			if cached, ok := b.cache.Get(ctx, key); ok {
				out = append(out, cached)
				continue
			}
			// No repeats; this also forbids returning to the first device.
			if _, seen := visited[next.ActionEntity]; seen {
				continue
			}
			if b.validator != nil && !b.validator(c3, next) {
				continue
			}
			chain := b.composeChain(devices, c3, next)
			if err := chain.Validate(); err != nil {
				b.log.Warn("Dropping invalid chain", "error", err)
				continue
			}
			b.cache.Set(ctx, key, chain)
			out = append(out, chain)
		}
	}
	return out
}

// composeChain merges a prefix (pairwise synergy or existing chain) with the
// continuation pair. Confidence never exceeds the weakest link.
func (b *Builder) composeChain(devices []string, prefix, next *types.Synergy) *types.Synergy {
	confidence := prefix.Confidence
	if next.Confidence < confidence {
		confidence = next.Confidence
	}
	impact := (prefix.ImpactScore + next.ImpactScore) / 2

	var area *string
	if prefix.Area != nil && next.Area != nil && *prefix.Area == *next.Area {
		shared := *prefix.Area
		area = &shared
	}

	complexity := types.ComplexityMedium
	if len(devices) == 4 {
		complexity = types.ComplexityHigh
	}

	return &types.Synergy{
		ID:            chainID(devices),
		HomeID:        prefix.HomeID,
		SynergyType:   types.SynergyDeviceChain,
		Devices:       devices,
		TriggerEntity: devices[0],
		ActionEntity:  devices[len(devices)-1],
		Area:          area,
		ImpactScore:   impact,
		Confidence:    confidence,
		Complexity:    complexity,
		SynergyDepth:  len(devices),
		ChainPath:     types.ChainDisplay(devices),
		Rationale: fmt.Sprintf("%d-step cascade: %s",
			len(devices), types.ChainDisplay(devices)),
	}
}

func chainID(devices []string) string {
	parts := make([]string, len(devices))
	for i, d := range devices {
		parts[i] = strings.ReplaceAll(d, ".", "_")
	}
	return fmt.Sprintf("chain%d_%s", len(devices), strings.Join(parts, "__"))
}

// topByQuality returns the n best synergies by ranking quality, descending,
// ties keeping original order.
func topByQuality(synergies []*types.Synergy, n int) []*types.Synergy {
	if len(synergies) == 0 || n <= 0 {
		return nil
	}
	ranked := make([]*types.Synergy, len(synergies))
	copy(ranked, synergies)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankQuality(ranked[i]) > rankQuality(ranked[j])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
