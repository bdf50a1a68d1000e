package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type ApprovalStepRepo interface {
	Create(ctx context.Context, tx *gorm.DB, steps []*types.ApprovalStep) ([]*types.ApprovalStep, error)
	ListByItemRound(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, round int) ([]*types.ApprovalStep, error)
	MaxRound(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (int, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListOverdue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.ApprovalStep, error)
}

type approvalStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovalStepRepo(db *gorm.DB, baseLog *logger.Logger) ApprovalStepRepo {
	return &approvalStepRepo{
		db:  db,
		log: baseLog.With("repo", "ApprovalStepRepo"),
	}
}

func (r *approvalStepRepo) Create(ctx context.Context, tx *gorm.DB, steps []*types.ApprovalStep) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(steps) == 0 {
		return []*types.ApprovalStep{}, nil
	}
	for _, s := range steps {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *approvalStepRepo) ListByItemRound(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, round int) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ApprovalStep
	if itemID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("item_id = ? AND round = ?", itemID, round).
		Order("stage_order ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *approvalStepRepo) MaxRound(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if itemID == uuid.Nil {
		return 0, nil
	}
	var round *int
	err := transaction.WithContext(ctx).
		Model(&types.ApprovalStep{}).
		Where("item_id = ?", itemID).
		Select("MAX(round)").
		Scan(&round).Error
	if err != nil {
		return 0, err
	}
	if round == nil {
		return 0, nil
	}
	return *round, nil
}

func (r *approvalStepRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ApprovalStep{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *approvalStepRepo) ListOverdue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ApprovalStep
	err := transaction.WithContext(ctx).
		Where("decision = ? AND due_at IS NOT NULL AND due_at < ? AND escalated_at IS NULL", types.DecisionPending, now).
		Order("due_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
