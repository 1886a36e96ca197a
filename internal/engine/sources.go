package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aurahome/synergy-engine/internal/repos"
	"github.com/aurahome/synergy-engine/internal/types"
)

// RepoPatternSource reads patterns from the local pattern store. Deployments
// with a remote pattern service implement PatternSource against it instead.
type RepoPatternSource struct {
	repo  repos.PatternRepo
	since time.Duration // 0 = no recency filter
}

func NewRepoPatternSource(repo repos.PatternRepo, since time.Duration) *RepoPatternSource {
	return &RepoPatternSource{repo: repo, since: since}
}

func (s *RepoPatternSource) ListPatterns(ctx context.Context, homeID string) ([]*types.Pattern, error) {
	var cutoff time.Time
	if s.since > 0 {
		cutoff = time.Now().UTC().Add(-s.since)
	}
	return s.repo.ListByHome(ctx, nil, homeID, cutoff)
}

// FileInventory serves entity inventories from per-home JSON files
// (<dir>/<home_id>.json), the exchange format the inventory exporter writes.
type FileInventory struct {
	dir string
}

func NewFileInventory(dir string) *FileInventory {
	return &FileInventory{dir: dir}
}

func (f *FileInventory) ListEntities(_ context.Context, homeID string) ([]*types.Entity, error) {
	path := filepath.Join(f.dir, homeID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	var entities []*types.Entity
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	for _, e := range entities {
		if e != nil && e.Domain == "" {
			e.Domain = types.EntityDomain(e.ID)
		}
	}
	return entities, nil
}

// StaticInventory is a fixed in-memory inventory, mainly for tests and
// fixtures.
type StaticInventory struct {
	Entities []*types.Entity
}

func (s *StaticInventory) ListEntities(context.Context, string) ([]*types.Entity, error) {
	return s.Entities, nil
}

// StaticPatternSource is a fixed in-memory pattern set for tests.
type StaticPatternSource struct {
	Patterns []*types.Pattern
}

func (s *StaticPatternSource) ListPatterns(context.Context, string) ([]*types.Pattern, error) {
	return s.Patterns, nil
}
