package repos

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type SourceRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.SourceRecord) ([]*types.SourceRecord, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SourceRecord, error)
	FindByCollection(ctx context.Context, tx *gorm.DB, collection string, tags []string, limit int) ([]*types.SourceRecord, error)
}

type sourceRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRecordRepo(db *gorm.DB, baseLog *logger.Logger) SourceRecordRepo {
	return &sourceRecordRepo{
		db:  db,
		log: baseLog.With("repo", "SourceRecordRepo"),
	}
}

func (r *sourceRecordRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.SourceRecord) ([]*types.SourceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*types.SourceRecord{}, nil
	}
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sourceRecordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SourceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.SourceRecord
	err := transaction.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

// Tag filtering happens in memory: the tags column is a small JSON list and
// sqlite (used in tests) has no jsonb containment operator.
func (r *sourceRecordRepo) FindByCollection(ctx context.Context, tx *gorm.DB, collection string, tags []string, limit int) ([]*types.SourceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if collection == "" {
		return nil, nil
	}
	var rows []*types.SourceRecord
	err := transaction.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		return rows, nil
	}
	out := make([]*types.SourceRecord, 0, len(rows))
	for _, row := range rows {
		if recordHasAnyTag(row, tags) {
			out = append(out, row)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func recordHasAnyTag(rec *types.SourceRecord, tags []string) bool {
	if rec == nil || len(rec.Tags) == 0 {
		return false
	}
	var recTags []string
	if err := json.Unmarshal(rec.Tags, &recTags); err != nil {
		return false
	}
	for _, want := range tags {
		for _, have := range recTags {
			if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have)) {
				return true
			}
		}
	}
	return false
}
