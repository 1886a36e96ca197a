package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/types"
)

type SynergyRepo interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, synergies []*types.Synergy) error
	GetByID(ctx context.Context, tx *gorm.DB, synergyID string) (*types.Synergy, error)
	ListActiveByHome(ctx context.Context, tx *gorm.DB, homeID string) ([]*types.Synergy, error)
	// UpdateScores writes only confidence/impact for one synergy. Used by the
	// feedback tracker so a nudge never rewrites the whole row.
	UpdateScores(ctx context.Context, tx *gorm.DB, synergyID string, confidence, impact float64) error
	// SupersedeMissing marks active synergies of the home that are not in the
	// keep set. Superseded rows stay in place.
	SupersedeMissing(ctx context.Context, tx *gorm.DB, homeID string, keepIDs []string) (int64, error)
}

type synergyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSynergyRepo(db *gorm.DB, baseLog *logger.Logger) SynergyRepo {
	return &synergyRepo{db: db, log: baseLog.With("repo", "SynergyRepo")}
}

func (r *synergyRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, synergies []*types.Synergy) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(synergies) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, s := range synergies {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"devices", "trigger_entity", "action_entity", "area",
				"impact_score", "confidence", "complexity", "rationale",
				"synergy_depth", "chain_path", "relationship_type",
				"pattern_support_score", "validated_by_patterns",
				"blueprint_match", "context_metadata", "updated_at",
				"superseded_at",
			}),
		}).
		Create(&synergies).Error
}

func (r *synergyRepo) GetByID(ctx context.Context, tx *gorm.DB, synergyID string) (*types.Synergy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if synergyID == "" {
		return nil, nil
	}
	var row types.Synergy
	err := transaction.WithContext(ctx).
		Where("id = ?", synergyID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *synergyRepo) ListActiveByHome(ctx context.Context, tx *gorm.DB, homeID string) ([]*types.Synergy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Synergy
	err := transaction.WithContext(ctx).
		Where("home_id = ? AND superseded_at IS NULL", homeID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *synergyRepo) UpdateScores(ctx context.Context, tx *gorm.DB, synergyID string, confidence, impact float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Synergy{}).
		Where("id = ?", synergyID).
		Updates(map[string]interface{}{
			"confidence":   confidence,
			"impact_score": impact,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *synergyRepo) SupersedeMissing(ctx context.Context, tx *gorm.DB, homeID string, keepIDs []string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	q := transaction.WithContext(ctx).
		Model(&types.Synergy{}).
		Where("home_id = ? AND superseded_at IS NULL", homeID)
	if len(keepIDs) > 0 {
		q = q.Where("id NOT IN ?", keepIDs)
	}
	res := q.Updates(map[string]interface{}{
		"superseded_at": now,
		"updated_at":    now,
	})
	return res.RowsAffected, res.Error
}
