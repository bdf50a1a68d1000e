package types

import (
	"time"

	"github.com/google/uuid"
)

// DataSourceBinding links a GeneratedItem to the evidence that informed it.
// Rows are insert-only; provenance is never rewritten.
type DataSourceBinding struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	SourceType string    `gorm:"not null;index" json:"source_type"`
	SourceID   string    `gorm:"not null" json:"source_id"`
	Relevance  float64   `gorm:"not null;default:0" json:"relevance"` // [0,1]
	Excerpt    string    `gorm:"type:text" json:"excerpt"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (DataSourceBinding) TableName() string { return "data_source_binding" }
