package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type GenerationCallLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.GenerationCallLog) (*types.GenerationCallLog, error)
	ListSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.GenerationCallLog, error)
}

type generationCallLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationCallLogRepo(db *gorm.DB, baseLog *logger.Logger) GenerationCallLogRepo {
	return &generationCallLogRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationCallLogRepo"),
	}
}

func (r *generationCallLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.GenerationCallLog) (*types.GenerationCallLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil {
		return nil, nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *generationCallLogRepo) ListSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.GenerationCallLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GenerationCallLog
	err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
