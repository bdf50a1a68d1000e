package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type ExecutionLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.ExecutionLogEntry) (*types.ExecutionLogEntry, error)
	ListSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.ExecutionLogEntry, error)
}

type executionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionLogRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionLogRepo {
	return &executionLogRepo{
		db:  db,
		log: baseLog.With("repo", "ExecutionLogRepo"),
	}
}

func (r *executionLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.ExecutionLogEntry) (*types.ExecutionLogEntry, error) {
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

func (r *executionLogRepo) ListSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.ExecutionLogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ExecutionLogEntry
	err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
