package types

import (
	"time"

	"github.com/google/uuid"
)

// GenerationCallLog records one attempt against the external text-generation
// service, including retries. Analytics derives generation availability
// from recent rows.
type GenerationCallLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	Engine    string    `json:"engine"`
	Attempt   int       `gorm:"not null;default:1" json:"attempt"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	Response  string    `gorm:"type:text" json:"response"`
	Success   bool      `gorm:"not null;index" json:"success"`
	Error     string    `json:"error"`
	ElapsedMS int64     `gorm:"not null;default:0" json:"elapsed_ms"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (GenerationCallLog) TableName() string { return "generation_call_log" }
