// Package workflow drives the per-item approval state machine:
// draft → pending_review → {approved | rejected}, rejected → draft (revision),
// approved → published (terminal). All mutations on one item are serialized
// by a per-item lock.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/contentforge-backend/internal/notify"
	"github.com/yungbote/contentforge-backend/internal/platform/apierr"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/types"
)

// InvalidTransitionError reports workflow misuse: a decision on a non-pending
// step or a status change the machine forbids. Idempotent repeats of an
// identical decision are absorbed before this is raised.
type InvalidTransitionError struct {
	ItemID uuid.UUID
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for item %s: %s -> %s", e.ItemID, e.From, e.To)
}

type Engine struct {
	items     repos.GeneratedItemRepo
	steps     repos.ApprovalStepRepo
	templates repos.TemplateRepo
	notifier  notify.ReviewNotifier
	policies  PolicySet
	log       *logger.Logger
	locks     *keyedMutex
}

func NewEngine(
	items repos.GeneratedItemRepo,
	steps repos.ApprovalStepRepo,
	templates repos.TemplateRepo,
	notifier notify.ReviewNotifier,
	policies PolicySet,
	baseLog *logger.Logger,
) *Engine {
	return &Engine{
		items:     items,
		steps:     steps,
		templates: templates,
		notifier:  notifier,
		policies:  policies,
		log:       baseLog.With("service", "ApprovalWorkflow"),
		locks:     newKeyedMutex(),
	}
}

// Submit moves a draft or scored item into review, creating one step per
// configured stage for a fresh round.
func (e *Engine) Submit(ctx context.Context, itemID uuid.UUID) (*types.GeneratedItem, error) {
	unlock := e.locks.lock(itemID.String())
	defer unlock()

	item, err := e.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != types.ItemStatusDraft && item.Status != types.ItemStatusScored {
		return nil, &InvalidTransitionError{ItemID: itemID, From: item.Status, To: types.ItemStatusPendingReview}
	}

	policy := e.policyForItem(ctx, item)
	prevRound, err := e.steps.MaxRound(ctx, nil, itemID)
	if err != nil {
		return nil, err
	}
	round := prevRound + 1

	now := time.Now().UTC()
	steps := make([]*types.ApprovalStep, 0, len(policy.Stages))
	for i, def := range policy.Stages {
		due := now.Add(time.Duration(def.DueInHours) * time.Hour)
		steps = append(steps, &types.ApprovalStep{
			ItemID:     itemID,
			Round:      round,
			Stage:      def.Name,
			StageOrder: i,
			Reviewer:   def.Reviewer,
			Decision:   types.DecisionPending,
			DueAt:      &due,
		})
	}
	if _, err := e.steps.Create(ctx, nil, steps); err != nil {
		return nil, err
	}
	if err := e.setStatus(ctx, item, types.ItemStatusPendingReview); err != nil {
		return nil, err
	}

	// Sequential policies engage one stage at a time; parallel ones fan
	// out immediately.
	if policy.Mode == ModeSequential {
		e.notifier.ReadyForReview(ctx, item, steps[0])
	} else {
		for _, s := range steps {
			e.notifier.ReadyForReview(ctx, item, s)
		}
	}
	e.log.Info("item submitted for review", "item_id", itemID.String(), "round", round, "stages", len(steps))
	return item, nil
}

// Decide records a reviewer decision on one stage of the current round.
// Repeating an identical decision on an already-decided step is a no-op so
// at-least-once delivery of approval actions stays safe.
func (e *Engine) Decide(ctx context.Context, itemID uuid.UUID, stage, reviewer, decision, note string) (*types.GeneratedItem, error) {
	switch decision {
	case types.DecisionApproved, types.DecisionRejected, types.DecisionChangesRequested:
	default:
		return nil, &InvalidTransitionError{ItemID: itemID, From: types.DecisionPending, To: decision}
	}

	unlock := e.locks.lock(itemID.String())
	defer unlock()

	item, err := e.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	round, err := e.steps.MaxRound(ctx, nil, itemID)
	if err != nil {
		return nil, err
	}
	steps, err := e.steps.ListByItemRound(ctx, nil, itemID, round)
	if err != nil {
		return nil, err
	}
	step := findStage(steps, stage)
	if step == nil {
		return nil, &InvalidTransitionError{ItemID: itemID, From: item.Status, To: decision}
	}

	if step.Decision == decision {
		// Idempotent repeat.
		return item, nil
	}
	if step.Decision != types.DecisionPending {
		return nil, &InvalidTransitionError{ItemID: itemID, From: step.Decision, To: decision}
	}
	if item.Status != types.ItemStatusPendingReview {
		return nil, &InvalidTransitionError{ItemID: itemID, From: item.Status, To: decision}
	}

	now := time.Now().UTC()
	if err := e.steps.UpdateFields(ctx, nil, step.ID, map[string]interface{}{
		"decision":   decision,
		"reviewer":   chooseReviewer(step.Reviewer, reviewer),
		"note":       note,
		"decided_at": now,
	}); err != nil {
		return nil, err
	}
	step.Decision = decision
	step.Reviewer = chooseReviewer(step.Reviewer, reviewer)
	step.Note = note
	step.DecidedAt = &now
	e.notifier.DecisionRecorded(ctx, item, step)

	if decision == types.DecisionRejected {
		// Short-circuit: remaining pending stages are skipped, not
		// silently abandoned.
		for _, s := range steps {
			if s.ID != step.ID && s.Decision == types.DecisionPending {
				if err := e.steps.UpdateFields(ctx, nil, s.ID, map[string]interface{}{
					"decision":   types.DecisionSkipped,
					"decided_at": now,
				}); err != nil {
					return nil, err
				}
				s.Decision = types.DecisionSkipped
			}
		}
		if err := e.setStatus(ctx, item, types.ItemStatusRejected); err != nil {
			return nil, err
		}
		return item, nil
	}

	derived := DeriveStatus(steps)
	if derived == types.ItemStatusApproved {
		if err := e.setStatus(ctx, item, types.ItemStatusApproved); err != nil {
			return nil, err
		}
		return item, nil
	}

	// Sequential mode hands the baton to the next pending stage once this
	// one approves.
	if decision == types.DecisionApproved {
		policy := e.policyForItem(ctx, item)
		if policy.Mode == ModeSequential {
			if next := nextPending(steps); next != nil {
				e.notifier.ReadyForReview(ctx, item, next)
			}
		}
	}
	return item, nil
}

// Reassign hands a pending step to a different reviewer.
func (e *Engine) Reassign(ctx context.Context, itemID uuid.UUID, stage, newReviewer string) error {
	if newReviewer == "" {
		return fmt.Errorf("reviewer is required")
	}
	unlock := e.locks.lock(itemID.String())
	defer unlock()

	item, err := e.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	round, err := e.steps.MaxRound(ctx, nil, itemID)
	if err != nil {
		return err
	}
	steps, err := e.steps.ListByItemRound(ctx, nil, itemID, round)
	if err != nil {
		return err
	}
	step := findStage(steps, stage)
	if step == nil || step.Decision != types.DecisionPending {
		from := ""
		if step != nil {
			from = step.Decision
		}
		return &InvalidTransitionError{ItemID: itemID, From: from, To: "reassign"}
	}
	if err := e.steps.UpdateFields(ctx, nil, step.ID, map[string]interface{}{"reviewer": newReviewer}); err != nil {
		return err
	}
	step.Reviewer = newReviewer
	e.notifier.ReadyForReview(ctx, item, step)
	return nil
}

// Publish is terminal and irreversible.
func (e *Engine) Publish(ctx context.Context, itemID uuid.UUID) (*types.GeneratedItem, error) {
	unlock := e.locks.lock(itemID.String())
	defer unlock()

	item, err := e.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != types.ItemStatusApproved {
		return nil, &InvalidTransitionError{ItemID: itemID, From: item.Status, To: types.ItemStatusPublished}
	}
	now := time.Now().UTC()
	if err := e.items.UpdateFields(ctx, nil, itemID, map[string]interface{}{
		"status":            types.ItemStatusPublished,
		"status_changed_at": now,
		"published_at":      now,
	}); err != nil {
		return nil, err
	}
	item.Status = types.ItemStatusPublished
	item.StatusChangedAt = now
	item.PublishedAt = &now
	e.notifier.Published(ctx, item)
	return item, nil
}

// Revise is the only backward edge: a rejected item returns to draft for
// another round.
func (e *Engine) Revise(ctx context.Context, itemID uuid.UUID) (*types.GeneratedItem, error) {
	unlock := e.locks.lock(itemID.String())
	defer unlock()

	item, err := e.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != types.ItemStatusRejected {
		return nil, &InvalidTransitionError{ItemID: itemID, From: item.Status, To: types.ItemStatusDraft}
	}
	if err := e.setStatus(ctx, item, types.ItemStatusDraft); err != nil {
		return nil, err
	}
	return item, nil
}

// ScanOverdue emits one escalation per overdue pending step. It never
// transitions items; the due reviewer keeps the decision. Each step escalates
// at most once (escalated_at marks it).
func (e *Engine) ScanOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := e.steps.ListOverdue(ctx, nil, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, step := range overdue {
		item, err := e.items.GetByID(ctx, nil, step.ItemID)
		if err != nil {
			return n, err
		}
		if err := e.steps.UpdateFields(ctx, nil, step.ID, map[string]interface{}{"escalated_at": now}); err != nil {
			return n, err
		}
		e.notifier.Escalation(ctx, item, step)
		n++
	}
	if n > 0 {
		e.log.Info("escalations emitted", "count", n)
	}
	return n, nil
}

// DeriveStatus computes the aggregate item status from one round's steps:
// approved iff every stage approved, rejected iff any stage rejected,
// pending_review otherwise.
func DeriveStatus(steps []*types.ApprovalStep) string {
	if len(steps) == 0 {
		return types.ItemStatusPendingReview
	}
	allApproved := true
	for _, s := range steps {
		switch s.Decision {
		case types.DecisionRejected:
			return types.ItemStatusRejected
		case types.DecisionApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return types.ItemStatusApproved
	}
	return types.ItemStatusPendingReview
}

func (e *Engine) loadItem(ctx context.Context, itemID uuid.UUID) (*types.GeneratedItem, error) {
	item, err := e.items.GetByID(ctx, nil, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apierr.NotFound(apierr.CodeItemNotFound, fmt.Errorf("generated item %s not found", itemID))
	}
	return item, nil
}

func (e *Engine) policyForItem(ctx context.Context, item *types.GeneratedItem) Policy {
	tmpl, err := e.templates.Get(ctx, nil, item.TemplateID)
	if err != nil || tmpl == nil {
		return e.policies.Default
	}
	return e.policies.For(tmpl.Kind)
}

func (e *Engine) setStatus(ctx context.Context, item *types.GeneratedItem, status string) error {
	now := time.Now().UTC()
	if err := e.items.UpdateFields(ctx, nil, item.ID, map[string]interface{}{
		"status":            status,
		"status_changed_at": now,
	}); err != nil {
		return err
	}
	item.Status = status
	item.StatusChangedAt = now
	return nil
}

func findStage(steps []*types.ApprovalStep, stage string) *types.ApprovalStep {
	for _, s := range steps {
		if s.Stage == stage {
			return s
		}
	}
	return nil
}

func nextPending(steps []*types.ApprovalStep) *types.ApprovalStep {
	for _, s := range steps {
		if s.Decision == types.DecisionPending {
			return s
		}
	}
	return nil
}

func chooseReviewer(assigned, actual string) string {
	if actual != "" {
		return actual
	}
	return assigned
}
