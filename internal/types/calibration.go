package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CalibrationSample is one training example for the confidence calibrator:
// a pre-normalized feature vector and the binary outcome label. Samples are
// append-only; retraining supersedes, never removes.
type CalibrationSample struct {
	ID        uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	Features  datatypes.JSONSlice[float64] `gorm:"column:features" json:"features"`
	Label     int                          `gorm:"column:label;not null" json:"label"` // 1 = proceeded and not rejected
	CreatedAt time.Time                    `gorm:"not null" json:"created_at"`
}

func (CalibrationSample) TableName() string { return "calibration_samples" }
