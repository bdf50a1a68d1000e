package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	DecisionPending          = "pending"
	DecisionApproved         = "approved"
	DecisionRejected         = "rejected"
	DecisionChangesRequested = "changes_requested"
	DecisionSkipped          = "skipped"
)

// ApprovalStep is one reviewer assignment on a GeneratedItem. Round counts
// submissions: a revision loop re-enters review with a fresh set of steps and
// the previous round kept as history.
type ApprovalStep struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"item_id"`
	Round       int        `gorm:"not null;default:1;index" json:"round"`
	Stage       string     `gorm:"not null" json:"stage"`
	StageOrder  int        `gorm:"not null;default:0" json:"stage_order"`
	Reviewer    string     `gorm:"not null" json:"reviewer"`
	Decision    string     `gorm:"not null;default:pending;index" json:"decision"` // pending|approved|rejected|changes_requested|skipped
	Note        string     `gorm:"type:text" json:"note"`
	DueAt       *time.Time `gorm:"index" json:"due_at,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ApprovalStep) TableName() string { return "approval_step" }
