package types

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionRecord is one automation run attempt reported by the execution
// subsystem. Immutable once written.
type ExecutionRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AutomationID    string    `gorm:"column:automation_id;not null;index" json:"automation_id"`
	SynergyID       string    `gorm:"column:synergy_id;not null;index" json:"synergy_id"`
	Success         bool      `gorm:"column:success;not null" json:"success"`
	Error           *string   `gorm:"column:error" json:"error,omitempty"`
	ExecutionTimeMS int64     `gorm:"column:execution_time_ms;not null;default:0" json:"execution_time_ms"`
	TriggeredCount  int       `gorm:"column:triggered_count;not null;default:0" json:"triggered_count"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

func (ExecutionRecord) TableName() string { return "execution_records" }

// ExecutionStats aggregates execution records for one synergy. Zero-valued
// when no records exist.
type ExecutionStats struct {
	SynergyID      string     `json:"synergy_id"`
	TotalRuns      int        `json:"total_runs"`
	SuccessfulRuns int        `json:"successful_runs"`
	FailedRuns     int        `json:"failed_runs"`
	SuccessRate    float64    `json:"success_rate"`
	TotalTriggered int        `json:"total_triggered"`
	AvgExecutionMS float64    `json:"avg_execution_ms"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
}
