package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

type ExecutionRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ExecutionRecord) (*types.ExecutionRecord, error)
	ListBySynergy(ctx context.Context, tx *gorm.DB, synergyID string) ([]*types.ExecutionRecord, error)
	StatsBySynergy(ctx context.Context, tx *gorm.DB, synergyID string) (*types.ExecutionStats, error)
}

type executionRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionRecordRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionRecordRepo {
	return &executionRecordRepo{db: db, log: baseLog.With("repo", "ExecutionRecordRepo")}
}

func (r *executionRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ExecutionRecord) (*types.ExecutionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if record == nil {
		return nil, nil
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *executionRecordRepo) ListBySynergy(ctx context.Context, tx *gorm.DB, synergyID string) ([]*types.ExecutionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ExecutionRecord
	err := transaction.WithContext(ctx).
		Where("synergy_id = ?", synergyID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StatsBySynergy aggregates in one pass. A synergy with no records gets
// all-zero stats, never an error.
func (r *executionRecordRepo) StatsBySynergy(ctx context.Context, tx *gorm.DB, synergyID string) (*types.ExecutionStats, error) {
	rows, err := r.ListBySynergy(ctx, tx, synergyID)
	if err != nil {
		return nil, err
	}
	stats := &types.ExecutionStats{SynergyID: synergyID}
	if len(rows) == 0 {
		return stats, nil
	}
	var totalMS int64
	for _, rec := range rows {
		stats.TotalRuns++
		if rec.Success {
			stats.SuccessfulRuns++
		} else {
			stats.FailedRuns++
		}
		stats.TotalTriggered += rec.TriggeredCount
		totalMS += rec.ExecutionTimeMS
	}
	stats.SuccessRate = float64(stats.SuccessfulRuns) / float64(stats.TotalRuns)
	stats.AvgExecutionMS = float64(totalMS) / float64(stats.TotalRuns)
	last := rows[len(rows)-1].CreatedAt
	stats.LastExecutedAt = &last
	return stats, nil
}
