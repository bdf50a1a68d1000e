package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// ExecutionLogEntry is the append-only audit record of one pipeline run
// attempt. Exactly one row is written per run, whatever the outcome.
type ExecutionLogEntry struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"run_id"`
	TemplateID        string         `gorm:"size:128;not null;index" json:"template_id"`
	TemplateKind      string         `gorm:"index" json:"template_kind"`
	ItemID            *uuid.UUID     `gorm:"type:uuid;index" json:"item_id,omitempty"`
	Outcome           string         `gorm:"not null;index" json:"outcome"` // success|failure|cancelled
	ElapsedMS         int64          `gorm:"not null;default:0" json:"elapsed_ms"`
	SourceTypes       datatypes.JSON `gorm:"type:jsonb" json:"source_types"`        // []string actually used
	FailedSourceTypes datatypes.JSON `gorm:"type:jsonb" json:"failed_source_types"` // []string that errored this run
	QualityScore      float64        `gorm:"not null;default:0" json:"quality_score"`
	ErrorStage        string         `json:"error_stage"`
	ErrorDetail       string         `gorm:"type:text" json:"error_detail"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (ExecutionLogEntry) TableName() string { return "execution_log_entry" }
