package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TemplateKindAnalysis     = "analysis-prompt"
	TemplateKindContent      = "content-generation-prompt"
	TemplateKindNotification = "notification-template"
)

func KnownTemplateKind(kind string) bool {
	switch kind {
	case TemplateKindAnalysis, TemplateKindContent, TemplateKindNotification:
		return true
	}
	return false
}

// Template is a versioned text pattern with {placeholder} tokens. The ID is a
// caller-chosen stable slug, not a uuid, so templates can be referenced from
// config and requests by name.
type Template struct {
	ID             string         `gorm:"primaryKey;size:128" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	Category       string         `gorm:"index" json:"category"`
	Kind           string         `gorm:"not null;index" json:"kind"` // analysis-prompt|content-generation-prompt|notification-template
	Body           string         `gorm:"type:text;not null" json:"body"`
	Variables      datatypes.JSON `gorm:"type:jsonb" json:"variables"` // []string
	Temperature    float64        `gorm:"not null;default:0.7" json:"temperature"`
	MaxOutputChars int            `gorm:"not null;default:4000" json:"max_output_chars"`
	Engine         string         `json:"engine"`
	Enabled        bool           `gorm:"not null;default:true" json:"enabled"`
	Version        string         `gorm:"not null" json:"version"`
	UsageCount     int64          `gorm:"not null;default:0" json:"usage_count"`
	LastModified   time.Time      `gorm:"not null" json:"last_modified"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Template) TableName() string { return "template" }
