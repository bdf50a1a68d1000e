package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type TemplateFilter struct {
	Kind        string
	Category    string
	EnabledOnly bool
}

type TemplateRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*types.Template, error)
	List(ctx context.Context, tx *gorm.DB, filter TemplateFilter) ([]*types.Template, error)
	Upsert(ctx context.Context, tx *gorm.DB, tmpl *types.Template) (*types.Template, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	IncrementUsage(ctx context.Context, tx *gorm.DB, id string) error
}

type templateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	return &templateRepo{
		db:  db,
		log: baseLog.With("repo", "TemplateRepo"),
	}
}

func (r *templateRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var tmpl types.Template
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepo) List(ctx context.Context, tx *gorm.DB, filter TemplateFilter) ([]*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Template{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.EnabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var out []*types.Template
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *templateRepo) Upsert(ctx context.Context, tx *gorm.DB, tmpl *types.Template) (*types.Template, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tmpl == nil {
		return nil, nil
	}
	// Wholesale replace on conflict: templates have no partial-patch semantics.
	err := transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(tmpl).Error
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (r *templateRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	return transaction.WithContext(ctx).Where("id = ?", id).Delete(&types.Template{}).Error
}

func (r *templateRepo) IncrementUsage(ctx context.Context, tx *gorm.DB, id string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Template{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
		}).Error
}
