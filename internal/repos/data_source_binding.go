package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type DataSourceBindingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, bindings []*types.DataSourceBinding) ([]*types.DataSourceBinding, error)
	ListByItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) ([]*types.DataSourceBinding, error)
}

type dataSourceBindingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDataSourceBindingRepo(db *gorm.DB, baseLog *logger.Logger) DataSourceBindingRepo {
	return &dataSourceBindingRepo{
		db:  db,
		log: baseLog.With("repo", "DataSourceBindingRepo"),
	}
}

func (r *dataSourceBindingRepo) Create(ctx context.Context, tx *gorm.DB, bindings []*types.DataSourceBinding) ([]*types.DataSourceBinding, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(bindings) == 0 {
		return []*types.DataSourceBinding{}, nil
	}
	for _, b := range bindings {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&bindings).Error; err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *dataSourceBindingRepo) ListByItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) ([]*types.DataSourceBinding, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DataSourceBinding
	if itemID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("relevance DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
