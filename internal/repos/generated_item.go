package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type GeneratedItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, item *types.GeneratedItem) (*types.GeneratedItem, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GeneratedItem, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.GeneratedItem, error)
	CountInFlightByTemplate(ctx context.Context, tx *gorm.DB, templateID string) (int64, error)
}

type generatedItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedItemRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedItemRepo {
	return &generatedItemRepo{
		db:  db,
		log: baseLog.With("repo", "GeneratedItemRepo"),
	}
}

func (r *generatedItemRepo) Create(ctx context.Context, tx *gorm.DB, item *types.GeneratedItem) (*types.GeneratedItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if item == nil {
		return nil, nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *generatedItemRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GeneratedItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var item types.GeneratedItem
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *generatedItemRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	return transaction.WithContext(ctx).
		Model(&types.GeneratedItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *generatedItemRepo) ListSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.GeneratedItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GeneratedItem
	err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// In-flight means any status short of published or rejected; a template
// referenced by such an item must not be hard-deleted.
func (r *generatedItemRepo) CountInFlightByTemplate(ctx context.Context, tx *gorm.DB, templateID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).
		Model(&types.GeneratedItem{}).
		Where("template_id = ? AND status NOT IN ?", templateID, []string{types.ItemStatusPublished, types.ItemStatusRejected}).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
