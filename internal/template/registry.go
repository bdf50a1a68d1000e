// Package template is the registry of versioned content templates. Saving
// validates placeholder coverage; versioning is caller-driven.
package template

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/render"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type Registry interface {
	Get(ctx context.Context, id string) (*types.Template, error)
	List(ctx context.Context, filter repos.TemplateFilter) ([]*types.Template, error)
	Save(ctx context.Context, tmpl *types.Template) (*types.Template, error)
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}

type registry struct {
	templates repos.TemplateRepo
	items     repos.GeneratedItemRepo
	log       *logger.Logger
}

func NewRegistry(templates repos.TemplateRepo, items repos.GeneratedItemRepo, baseLog *logger.Logger) Registry {
	return &registry{
		templates: templates,
		items:     items,
		log:       baseLog.With("service", "TemplateRegistry"),
	}
}

func (r *registry) Get(ctx context.Context, id string) (*types.Template, error) {
	tmpl, err := r.templates.Get(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tmpl, nil
}

func (r *registry) List(ctx context.Context, filter repos.TemplateFilter) ([]*types.Template, error) {
	return r.templates.List(ctx, nil, filter)
}

// Save is a wholesale replace. It bumps last_modified but never infers a
// version; callers supply a new version string when they mean to cut one.
// Saving with enabled=false is a normal edit.
func (r *registry) Save(ctx context.Context, tmpl *types.Template) (*types.Template, error) {
	if err := validate(tmpl); err != nil {
		return nil, err
	}
	tmpl.LastModified = time.Now().UTC()
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = tmpl.LastModified
	}
	stored, err := r.templates.Upsert(ctx, nil, tmpl)
	if err != nil {
		return nil, err
	}
	r.log.Info("template saved", "template_id", stored.ID, "version", stored.Version, "enabled", stored.Enabled)
	return stored, nil
}

// Delete refuses while any generated item still in flight references the
// template; disable it instead.
func (r *registry) Delete(ctx context.Context, id string) error {
	tmpl, err := r.templates.Get(ctx, nil, id)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	inFlight, err := r.items.CountInFlightByTemplate(ctx, nil, id)
	if err != nil {
		return err
	}
	if inFlight > 0 {
		return fmt.Errorf("%w: %s (%d in flight)", ErrInUse, id, inFlight)
	}
	return r.templates.Delete(ctx, nil, id)
}

func (r *registry) IncrementUsage(ctx context.Context, id string) error {
	return r.templates.IncrementUsage(ctx, nil, id)
}

func validate(tmpl *types.Template) error {
	verr := &ValidationError{}
	if tmpl == nil {
		verr.Reasons = append(verr.Reasons, "template is nil")
		return verr
	}
	if tmpl.ID == "" {
		verr.Reasons = append(verr.Reasons, "id is required")
	}
	if tmpl.Name == "" {
		verr.Reasons = append(verr.Reasons, "name is required")
	}
	if tmpl.Body == "" {
		verr.Reasons = append(verr.Reasons, "body is required")
	}
	if tmpl.Version == "" {
		verr.Reasons = append(verr.Reasons, "version is required")
	}
	if !types.KnownTemplateKind(tmpl.Kind) {
		verr.Reasons = append(verr.Reasons, fmt.Sprintf("unknown kind %q", tmpl.Kind))
	}

	declared, err := DeclaredVariables(tmpl)
	if err != nil {
		verr.Reasons = append(verr.Reasons, "variables is not a string list")
	}
	declaredSet := make(map[string]bool, len(declared))
	for _, d := range declared {
		declaredSet[d] = true
	}
	// Every placeholder must be declared; declared-but-unused is fine
	// (forward compatible).
	for _, p := range render.Placeholders(tmpl.Body) {
		if !declaredSet[p] {
			verr.Missing = append(verr.Missing, p)
		}
	}
	if len(verr.Missing) > 0 || len(verr.Reasons) > 0 {
		return verr
	}
	return nil
}

// DeclaredVariables decodes the JSON variable list column.
func DeclaredVariables(tmpl *types.Template) ([]string, error) {
	if tmpl == nil || len(tmpl.Variables) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(tmpl.Variables, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VariablesJSON encodes a declared variable list for storage.
func VariablesJSON(vars []string) datatypes.JSON {
	raw, _ := json.Marshal(vars)
	return datatypes.JSON(raw)
}
