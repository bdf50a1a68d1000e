package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ItemStatusDraft         = "draft"
	ItemStatusScored        = "scored"
	ItemStatusPendingReview = "pending_review"
	ItemStatusApproved      = "approved"
	ItemStatusRejected      = "rejected"
	ItemStatusPublished     = "published"
)

// GeneratedItem is one pipeline output. TemplateVersion is frozen at
// generation time so later template edits never change historical items.
type GeneratedItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID       string     `gorm:"size:128;not null;index" json:"template_id"`
	TemplateVersion  string     `gorm:"not null" json:"template_version"`
	Body             string     `gorm:"type:text;not null" json:"body"`
	QualityScore     float64    `gorm:"not null;default:0" json:"quality_score"`
	ReadabilityScore float64    `gorm:"not null;default:0" json:"readability_score"`
	WordCount        int        `gorm:"not null;default:0" json:"word_count"`
	CharCount        int        `gorm:"not null;default:0" json:"char_count"`
	ReadingTimeSec   int        `gorm:"not null;default:0" json:"reading_time_sec"`
	Status           string     `gorm:"not null;index" json:"status"` // draft|scored|pending_review|approved|rejected|published
	LowQuality       bool       `gorm:"not null;default:false" json:"low_quality"`
	Audience         string     `json:"audience"`
	Format           string     `json:"format"`
	CreatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	StatusChangedAt  time.Time  `gorm:"not null" json:"status_changed_at"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
}

func (GeneratedItem) TableName() string { return "generated_item" }
