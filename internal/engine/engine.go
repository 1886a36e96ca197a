package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aurahome/synergy-engine/internal/chains"
	"github.com/aurahome/synergy-engine/internal/detect"
	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/repos"
	"github.com/aurahome/synergy-engine/internal/scoring"
	"github.com/aurahome/synergy-engine/internal/types"
)

// PatternSource supplies atomic patterns for a home. An empty result is
// valid: no patterns means no temporal synergies, not a failed run.
type PatternSource interface {
	ListPatterns(ctx context.Context, homeID string) ([]*types.Pattern, error)
}

// EntityInventory supplies the device/sensor inventory for a home.
type EntityInventory interface {
	ListEntities(ctx context.Context, homeID string) ([]*types.Entity, error)
}

// Engine runs one discovery cycle per home: detector fan-out, chain
// building, quality scoring, persistence, supersede pass.
type Engine struct {
	source      PatternSource
	inventory   EntityInventory
	registry    *detect.Registry
	builder     *chains.Builder
	scorer      *scoring.Scorer
	synergies   repos.SynergyRepo
	concurrency int
	log         *logger.Logger
}

func New(source PatternSource, inventory EntityInventory, registry *detect.Registry, builder *chains.Builder, scorer *scoring.Scorer, synergies repos.SynergyRepo, concurrency int, baseLog *logger.Logger) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		source:      source,
		inventory:   inventory,
		registry:    registry,
		builder:     builder,
		scorer:      scorer,
		synergies:   synergies,
		concurrency: concurrency,
		log:         baseLog.With("component", "DiscoveryEngine"),
	}
}

// RunResult summarizes one discovery cycle.
type RunResult struct {
	HomeID      string        `json:"home_id"`
	Pairwise    int           `json:"pairwise"`
	Chains      int           `json:"chains"`
	Persisted   int           `json:"persisted"`
	Superseded  int64         `json:"superseded"`
	HighQuality int           `json:"high_quality"`
	Elapsed     time.Duration `json:"elapsed"`
}

// RunDiscovery executes one cycle for a home. Inventory or store failures
// are retryable whole-run failures; nothing is persisted before the full
// synergy set is assembled.
func (e *Engine) RunDiscovery(ctx context.Context, homeID string) (*RunResult, error) {
	started := time.Now()

	entities, err := e.inventory.ListEntities(ctx, homeID)
	if err != nil {
		return nil, fmt.Errorf("list entities for %s: %w", homeID, err)
	}
	patterns, err := e.source.ListPatterns(ctx, homeID)
	if err != nil {
		return nil, fmt.Errorf("list patterns for %s: %w", homeID, err)
	}

	pairwise, err := e.runDetectors(ctx, patterns, entities)
	if err != nil {
		return nil, err
	}
	for _, s := range pairwise {
		s.HomeID = homeID
		s.PatternSupportScore = patternSupport(s, patterns)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chained := e.builder.Build(ctx, pairwise)
	for _, s := range chained {
		s.HomeID = homeID
	}

	all := make([]*types.Synergy, 0, len(pairwise)+len(chained))
	all = append(all, pairwise...)
	all = append(all, chained...)

	highQuality := 0
	keep := make([]*types.Synergy, 0, len(all))
	keepIDs := make([]string, 0, len(all))
	for _, s := range all {
		if err := s.Validate(); err != nil {
			e.log.Warn("Dropping invalid synergy", "error", err)
			continue
		}
		res := e.scorer.Score(s)
		if res.IsHighQuality {
			highQuality++
		}
		attachQuality(s, res)
		keep = append(keep, s)
		keepIDs = append(keepIDs, s.ID)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.synergies.UpsertBatch(ctx, nil, keep); err != nil {
		return nil, fmt.Errorf("persist synergies for %s: %w", homeID, err)
	}
	superseded, err := e.synergies.SupersedeMissing(ctx, nil, homeID, keepIDs)
	if err != nil {
		return nil, fmt.Errorf("supersede pass for %s: %w", homeID, err)
	}

	result := &RunResult{
		HomeID:      homeID,
		Pairwise:    len(pairwise),
		Chains:      len(chained),
		Persisted:   len(keep),
		Superseded:  superseded,
		HighQuality: highQuality,
		Elapsed:     time.Since(started),
	}
	e.log.Info("Discovery run complete",
		"home_id", homeID,
		"pairwise", result.Pairwise,
		"chains", result.Chains,
		"persisted", result.Persisted,
		"superseded", result.Superseded,
		"high_quality", result.HighQuality,
		"elapsed", result.Elapsed)
	return result, nil
}

// runDetectors fans detectors out over a bounded pool and merges their
// output in registry order, so the merged slice is identical regardless of
// scheduling.
func (e *Engine) runDetectors(ctx context.Context, patterns []*types.Pattern, entities []*types.Entity) ([]*types.Synergy, error) {
	detectors := e.registry.Detectors()
	slots := make([][]*types.Synergy, len(detectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, d := range detectors {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = d.Detect(gctx, patterns, entities)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*types.Synergy
	for i, slot := range slots {
		e.log.Debug("Detector finished", "detector", detectors[i].Name(), "synergies", len(slot))
		merged = append(merged, slot...)
	}
	return merged, nil
}

// patternSupport is the share of a synergy's devices backed by at least one
// usable pattern.
func patternSupport(s *types.Synergy, patterns []*types.Pattern) float64 {
	if len(s.Devices) == 0 {
		return 0
	}
	covered := make(map[string]struct{})
	for _, p := range patterns {
		if p != nil && p.Valid() {
			covered[p.EntityID] = struct{}{}
		}
	}
	supported := 0
	for _, d := range s.Devices {
		if _, ok := covered[d]; ok {
			supported++
		}
	}
	return float64(supported) / float64(len(s.Devices))
}

// attachQuality stores the detection context and the score breakdown on the
// synergy row for the API layer to surface.
func attachQuality(s *types.Synergy, res scoring.Result) {
	meta := map[string]interface{}{
		"detection_method": string(s.SynergyType),
		"quality":          res,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	s.ContextMetadata = raw
}
