package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

// CalibrationSampleRepo is the durable backing for the calibrator's sample
// history. Append-only.
type CalibrationSampleRepo interface {
	Append(ctx context.Context, tx *gorm.DB, sample *types.CalibrationSample) error
	LoadAll(ctx context.Context, tx *gorm.DB) ([]*types.CalibrationSample, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type calibrationSampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalibrationSampleRepo(db *gorm.DB, baseLog *logger.Logger) CalibrationSampleRepo {
	return &calibrationSampleRepo{db: db, log: baseLog.With("repo", "CalibrationSampleRepo")}
}

func (r *calibrationSampleRepo) Append(ctx context.Context, tx *gorm.DB, sample *types.CalibrationSample) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sample == nil {
		return nil
	}
	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now().UTC()
	}
	return transaction.WithContext(ctx).Create(sample).Error
}

func (r *calibrationSampleRepo) LoadAll(ctx context.Context, tx *gorm.DB) ([]*types.CalibrationSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.CalibrationSample
	err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *calibrationSampleRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).
		Model(&types.CalibrationSample{}).
		Count(&n).Error
	return n, err
}
