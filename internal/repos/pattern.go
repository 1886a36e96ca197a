package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

// PatternRepo persists detector-source patterns for deployments that keep
// them local. The engine itself only consumes the read side.
type PatternRepo interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, patterns []*types.Pattern) error
	ListByHome(ctx context.Context, tx *gorm.DB, homeID string, since time.Time) ([]*types.Pattern, error)
}

type patternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternRepo(db *gorm.DB, baseLog *logger.Logger) PatternRepo {
	return &patternRepo{db: db, log: baseLog.With("repo", "PatternRepo")}
}

func (r *patternRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, patterns []*types.Pattern) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(patterns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, p := range patterns {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"metadata", "confidence", "occurrences", "last_seen",
				"trend_direction", "trend_strength", "calibrated",
				"deprecated", "needs_review", "updated_at",
			}),
		}).
		Create(&patterns).Error
}

func (r *patternRepo) ListByHome(ctx context.Context, tx *gorm.DB, homeID string, since time.Time) ([]*types.Pattern, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("home_id = ? AND deprecated = ?", homeID, false)
	if !since.IsZero() {
		q = q.Where("last_seen >= ?", since)
	}
	var rows []*types.Pattern
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
