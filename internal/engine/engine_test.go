package engine

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aurahome/synergy-engine/internal/chains"
	"github.com/aurahome/synergy-engine/internal/detect"
	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/scoring"
	"github.com/aurahome/synergy-engine/internal/types"
)

type capturingSynergyRepo struct {
	upserted    []*types.Synergy
	supersedeID string
	keepIDs     []string
	failUpsert  bool
}

func (r *capturingSynergyRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, synergies []*types.Synergy) error {
	if r.failUpsert {
		return errors.New("store unavailable")
	}
	r.upserted = append([]*types.Synergy(nil), synergies...)
	return nil
}

func (r *capturingSynergyRepo) GetByID(ctx context.Context, tx *gorm.DB, synergyID string) (*types.Synergy, error) {
	return nil, nil
}

func (r *capturingSynergyRepo) ListActiveByHome(ctx context.Context, tx *gorm.DB, homeID string) ([]*types.Synergy, error) {
	return nil, nil
}

func (r *capturingSynergyRepo) UpdateScores(ctx context.Context, tx *gorm.DB, synergyID string, confidence, impact float64) error {
	return nil
}

func (r *capturingSynergyRepo) SupersedeMissing(ctx context.Context, tx *gorm.DB, homeID string, keepIDs []string) (int64, error) {
	r.supersedeID = homeID
	r.keepIDs = append([]string(nil), keepIDs...)
	return 2, nil
}

type failingInventory struct{}

func (failingInventory) ListEntities(context.Context, string) ([]*types.Entity, error) {
	return nil, errors.New("inventory offline")
}

func area(s string) *string { return &s }

func testEntities() []*types.Entity {
	return []*types.Entity{
		{ID: "weather.home", Domain: "weather", AreaID: area("outside")},
		{ID: "climate.living_room", Domain: "climate", AreaID: area("living_room")},
		{ID: "light.kitchen", Domain: "light", AreaID: area("kitchen")},
		{ID: "switch.coffee", Domain: "switch", AreaID: area("kitchen")},
	}
}

func testPatterns() []*types.Pattern {
	meta := datatypes.JSON([]byte(`{"hour": 7, "minute": 0}`))
	return []*types.Pattern{
		{PatternType: types.PatternTypeTimeOfDay, EntityID: "light.kitchen", Confidence: 0.9, Metadata: meta},
		{PatternType: types.PatternTypeTimeOfDay, EntityID: "switch.coffee", Confidence: 0.8, Metadata: meta},
	}
}

func newTestEngine(repo *capturingSynergyRepo) *Engine {
	log := logger.NewNop()
	registry := detect.NewRegistry(
		detect.NewTemporalDetector(0.6, log),
		detect.NewContextDetector(30, 5, log),
	)
	builder := chains.NewBuilder(1000, 200, 100, chains.NewMemoryCache(), nil, log)
	return New(
		&StaticPatternSource{Patterns: testPatterns()},
		&StaticInventory{Entities: testEntities()},
		registry, builder, scoring.NewScorer(), repo, 2, log,
	)
}

func TestRunDiscovery_PersistsAndSupersedes(t *testing.T) {
	repo := &capturingSynergyRepo{}
	e := newTestEngine(repo)

	res, err := e.RunDiscovery(context.Background(), "home1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// One temporal pair plus one weather_climate context synergy.
	if res.Pairwise != 2 {
		t.Fatalf("expected 2 pairwise synergies, got %d", res.Pairwise)
	}
	if res.Persisted != len(repo.upserted) {
		t.Fatalf("result/persist mismatch: %d vs %d", res.Persisted, len(repo.upserted))
	}
	if res.Superseded != 2 {
		t.Fatalf("supersede count not propagated: %d", res.Superseded)
	}
	if repo.supersedeID != "home1" {
		t.Fatalf("supersede ran for wrong home: %s", repo.supersedeID)
	}
	if len(repo.keepIDs) != res.Persisted {
		t.Fatalf("keep set must match persisted rows: %d vs %d", len(repo.keepIDs), res.Persisted)
	}
	for _, s := range repo.upserted {
		if s.HomeID != "home1" {
			t.Fatalf("synergy missing home id: %+v", s)
		}
		if len(s.ContextMetadata) == 0 {
			t.Fatalf("synergy missing quality metadata: %s", s.ID)
		}
	}
}

func TestRunDiscovery_PatternSupport(t *testing.T) {
	repo := &capturingSynergyRepo{}
	e := newTestEngine(repo)

	if _, err := e.RunDiscovery(context.Background(), "home1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	byID := map[string]*types.Synergy{}
	for _, s := range repo.upserted {
		byID[s.ID] = s
	}
	for _, s := range byID {
		switch s.SynergyType {
		case types.SynergyScheduleBased:
			// Both devices carry a pattern.
			if s.PatternSupportScore != 1.0 {
				t.Fatalf("temporal pair support: want 1.0 got %v", s.PatternSupportScore)
			}
		case types.SynergyContextAware:
			// Neither weather nor climate has patterns.
			if s.PatternSupportScore != 0.0 {
				t.Fatalf("context pair support: want 0.0 got %v", s.PatternSupportScore)
			}
		}
	}
}

func TestRunDiscovery_Deterministic(t *testing.T) {
	first := &capturingSynergyRepo{}
	second := &capturingSynergyRepo{}

	if _, err := newTestEngine(first).RunDiscovery(context.Background(), "home1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := newTestEngine(second).RunDiscovery(context.Background(), "home1"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first.keepIDs) != len(second.keepIDs) {
		t.Fatalf("run sizes differ: %d vs %d", len(first.keepIDs), len(second.keepIDs))
	}
	for i := range first.keepIDs {
		if first.keepIDs[i] != second.keepIDs[i] {
			t.Fatalf("merge order differs at %d: %s vs %s", i, first.keepIDs[i], second.keepIDs[i])
		}
	}
}

func TestRunDiscovery_InventoryFailureIsFatal(t *testing.T) {
	repo := &capturingSynergyRepo{}
	log := logger.NewNop()
	e := New(
		&StaticPatternSource{},
		failingInventory{},
		detect.NewRegistry(detect.NewTemporalDetector(0.6, log)),
		chains.NewBuilder(1000, 200, 100, chains.NewMemoryCache(), nil, log),
		scoring.NewScorer(), repo, 1, log,
	)
	if _, err := e.RunDiscovery(context.Background(), "home1"); err == nil {
		t.Fatalf("expected error from failing inventory")
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("nothing may be persisted after a fatal failure")
	}
}

func TestRunDiscovery_StoreFailureIsFatal(t *testing.T) {
	repo := &capturingSynergyRepo{failUpsert: true}
	e := newTestEngine(repo)
	if _, err := e.RunDiscovery(context.Background(), "home1"); err == nil {
		t.Fatalf("expected error from failing store")
	}
	if repo.supersedeID != "" {
		t.Fatalf("supersede pass must not run after a failed upsert")
	}
}

func TestRunDiscovery_CancelledContext(t *testing.T) {
	repo := &capturingSynergyRepo{}
	e := newTestEngine(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RunDiscovery(ctx, "home1"); err == nil {
		t.Fatalf("expected context error")
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("nothing may be persisted after cancellation")
	}
}

func TestPatternSupport_PartialCoverage(t *testing.T) {
	s := &types.Synergy{Devices: []string{"light.a", "light.b", "switch.c"}}
	patterns := []*types.Pattern{
		{PatternType: types.PatternTypeTimeOfDay, EntityID: "light.a", Confidence: 0.9},
		{PatternType: types.PatternTypeTimeOfDay, EntityID: "switch.c", Confidence: 0.7},
		{PatternType: types.PatternTypeTimeOfDay, EntityID: "light.b", Confidence: 1.7}, // invalid
	}
	if got := patternSupport(s, patterns); got != 2.0/3.0 {
		t.Fatalf("want 2/3, got %v", got)
	}
}
