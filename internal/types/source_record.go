package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SourceRecord is an externally ingested evidence document, stored per
// logical collection. The aggregator reads these; nothing in the pipeline
// writes them.
type SourceRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Collection string         `gorm:"not null;index" json:"collection"`
	Title      string         `json:"title"`
	Body       string         `gorm:"type:text" json:"body"`
	Tags       datatypes.JSON `gorm:"type:jsonb" json:"tags"` // []string
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (SourceRecord) TableName() string { return "source_record" }
