package feedback

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"gorm.io/gorm"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/repos"
	"github.com/aurahome/synergy-engine/internal/types"
)

const lockStripes = 64

// Report is one automation execution result from the execution subsystem.
type Report struct {
	AutomationID    string  `json:"automation_id"`
	SynergyID       string  `json:"synergy_id"`
	Success         bool    `json:"success"`
	Error           *string `json:"error,omitempty"`
	ExecutionTimeMS int64   `json:"execution_time_ms"`
	TriggeredCount  int     `json:"triggered_count"`
}

// Tracker records execution outcomes and nudges the originating synergy's
// confidence and impact. Nudges are bounded so no single execution moves a
// score by more than the documented delta or outside [0,1], and the
// read-modify-write is serialized per synergy id.
type Tracker struct {
	db        *gorm.DB
	synergies repos.SynergyRepo
	records   repos.ExecutionRecordRepo
	locks     [lockStripes]sync.Mutex
	log       *logger.Logger
}

func NewTracker(db *gorm.DB, synergies repos.SynergyRepo, records repos.ExecutionRecordRepo, baseLog *logger.Logger) *Tracker {
	return &Tracker{
		db:        db,
		synergies: synergies,
		records:   records,
		log:       baseLog.With("component", "ExecutionFeedbackTracker"),
	}
}

func (t *Tracker) lockFor(synergyID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(synergyID))
	return &t.locks[h.Sum32()%lockStripes]
}

// Record appends an immutable execution record, then applies the bounded
// score adjustment to the synergy.
func (t *Tracker) Record(ctx context.Context, report Report) error {
	if report.SynergyID == "" {
		return fmt.Errorf("execution report missing synergy_id")
	}

	if _, err := t.records.Create(ctx, nil, &types.ExecutionRecord{
		AutomationID:    report.AutomationID,
		SynergyID:       report.SynergyID,
		Success:         report.Success,
		Error:           report.Error,
		ExecutionTimeMS: report.ExecutionTimeMS,
		TriggeredCount:  report.TriggeredCount,
	}); err != nil {
		return fmt.Errorf("append execution record: %w", err)
	}

	lock := t.lockFor(report.SynergyID)
	lock.Lock()
	defer lock.Unlock()

	syn, err := t.synergies.GetByID(ctx, nil, report.SynergyID)
	if err != nil {
		return fmt.Errorf("load synergy %s: %w", report.SynergyID, err)
	}
	if syn == nil {
		// The record is kept; only the nudge has no target.
		t.log.Warn("Execution report references unknown synergy", "synergy_id", report.SynergyID)
		return nil
	}

	confidence, impact := AdjustScores(syn.Confidence, syn.ImpactScore, report.Success, report.TriggeredCount)
	if confidence == syn.Confidence && impact == syn.ImpactScore {
		return nil
	}
	if err := t.synergies.UpdateScores(ctx, nil, report.SynergyID, confidence, impact); err != nil {
		return fmt.Errorf("update synergy scores: %w", err)
	}
	t.log.Debug("Adjusted synergy from execution outcome",
		"synergy_id", report.SynergyID,
		"success", report.Success,
		"confidence", confidence,
		"impact", impact)
	return nil
}

// AdjustScores computes the bounded post-execution scores. Success that
// actually triggered earns the full reward, success without triggers a
// smaller one, failure a bounded penalty. Results stay inside [0,1].
func AdjustScores(confidence, impact float64, success bool, triggeredCount int) (float64, float64) {
	switch {
	case success && triggeredCount > 0:
		confidence += minF(0.05, 1-confidence)
		impact += minF(0.03, 1-impact)
	case success:
		confidence += minF(0.02, 1-confidence)
	default:
		confidence += maxF(-0.1, -confidence)
		impact += maxF(-0.05, -impact)
	}
	return clamp01(confidence), clamp01(impact)
}

// GetExecutionStats aggregates outcomes for one synergy; a synergy with no
// history yields all-zero stats.
func (t *Tracker) GetExecutionStats(ctx context.Context, synergyID string) (*types.ExecutionStats, error) {
	return t.records.StatsBySynergy(ctx, nil, synergyID)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
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
