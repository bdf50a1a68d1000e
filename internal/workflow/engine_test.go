package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/notify"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type recordingSink struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (s *recordingSink) Notify(ctx context.Context, channel, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messages == nil {
		s.messages = map[string][]string{}
	}
	s.messages[channel] = append(s.messages[channel], msg)
}

func (s *recordingSink) count(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[channel])
}

type testEnv struct {
	db     *gorm.DB
	engine *Engine
	items  repos.GeneratedItemRepo
	steps  repos.ApprovalStepRepo
	sink   *recordingSink
}

func newTestEngine(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:wf_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Template{}, &types.GeneratedItem{}, &types.ApprovalStep{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logger.Nop()
	policies, err := LoadPolicies(nil)
	if err != nil {
		t.Fatalf("load policies: %v", err)
	}
	sink := &recordingSink{}
	items := repos.NewGeneratedItemRepo(db, log)
	steps := repos.NewApprovalStepRepo(db, log)
	engine := NewEngine(items, steps, repos.NewTemplateRepo(db, log), notify.NewReviewNotifier(sink), policies, log)
	return &testEnv{db: db, engine: engine, items: items, steps: steps, sink: sink}
}

func seedTemplate(t *testing.T, env *testEnv, id, kind string) {
	t.Helper()
	err := env.db.Create(&types.Template{
		ID:           id,
		Name:         id,
		Kind:         kind,
		Body:         "body",
		Version:      "1",
		Enabled:      true,
		LastModified: time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
}

func (env *testEnv) newItem(t *testing.T, status string) *types.GeneratedItem {
	t.Helper()
	item, err := env.items.Create(context.Background(), nil, &types.GeneratedItem{
		TemplateID:      "missing-template", // falls back to default policy: one editorial stage
		TemplateVersion: "1.0.0",
		Body:            "body",
		Status:          status,
		StatusChangedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func TestSubmit_CreatesStepsAndNotifies(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)

	updated, err := env.engine.Submit(ctx, item.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if updated.Status != types.ItemStatusPendingReview {
		t.Fatalf("status = %q", updated.Status)
	}
	steps, _ := env.steps.ListByItemRound(ctx, nil, item.ID, 1)
	if len(steps) != 1 {
		t.Fatalf("expected 1 default-policy step, got %d", len(steps))
	}
	if env.sink.count(notify.ChannelReview) != 1 {
		t.Fatalf("expected 1 ready-for-review notification")
	}
}

func TestSubmit_FromPendingReviewIsInvalid(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := env.engine.Submit(ctx, item.ID)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestDecide_AllStagesApprovedApprovesItem(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	updated, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionApproved, "lgtm")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if updated.Status != types.ItemStatusApproved {
		t.Fatalf("status = %q, want approved", updated.Status)
	}
}

func TestDecide_RejectShortCircuitsAndSkipsPending(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item, err := env.items.Create(ctx, nil, &types.GeneratedItem{
		TemplateID:      "tmpl-content",
		TemplateVersion: "1",
		Body:            "body",
		Status:          types.ItemStatusScored,
		StatusChangedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	// Two parallel stages via the content-generation-prompt policy.
	seedTemplate(t, env, "tmpl-content", types.TemplateKindContent)

	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	updated, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionRejected, "not good")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if updated.Status != types.ItemStatusRejected {
		t.Fatalf("status = %q, want rejected", updated.Status)
	}
	steps, _ := env.steps.ListByItemRound(ctx, nil, item.ID, 1)
	for _, s := range steps {
		if s.Stage == "compliance" && s.Decision != types.DecisionSkipped {
			t.Fatalf("pending stage not skipped: %q", s.Decision)
		}
	}
}

func TestDecide_RepeatIdenticalDecisionIsNoOp(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionApproved, ""); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	before, _ := env.steps.ListByItemRound(ctx, nil, item.ID, 1)
	updated, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionApproved, "")
	if err != nil {
		t.Fatalf("repeat decide should be a no-op, got %v", err)
	}
	if updated.Status != types.ItemStatusApproved {
		t.Fatalf("status changed on repeat: %q", updated.Status)
	}
	after, _ := env.steps.ListByItemRound(ctx, nil, item.ID, 1)
	if len(after) != len(before) {
		t.Fatalf("repeat decision created steps: %d -> %d", len(before), len(after))
	}
}

func TestDecide_ConflictingDecisionOnDecidedStepFails(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionApproved, ""); err != nil {
		t.Fatalf("decide: %v", err)
	}
	_, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionRejected, "changed my mind")
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestPublish_OnlyFromApprovedAndIrreversible(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Publish(ctx, item.ID); err == nil {
		t.Fatalf("publish from scored should fail")
	}
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionApproved, ""); err != nil {
		t.Fatalf("decide: %v", err)
	}
	published, err := env.engine.Publish(ctx, item.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != types.ItemStatusPublished || published.PublishedAt == nil {
		t.Fatalf("unexpected published item: %+v", published)
	}
	if _, err := env.engine.Revise(ctx, item.ID); err == nil {
		t.Fatalf("published item must not revert")
	}
}

func TestRevise_RejectedReturnsToDraftAndNewRound(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.engine.Decide(ctx, item.ID, "editorial", "rev-1", types.DecisionRejected, "redo"); err != nil {
		t.Fatalf("decide: %v", err)
	}
	revised, err := env.engine.Revise(ctx, item.ID)
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if revised.Status != types.ItemStatusDraft {
		t.Fatalf("status = %q, want draft", revised.Status)
	}
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	round, _ := env.steps.MaxRound(ctx, nil, item.ID)
	if round != 2 {
		t.Fatalf("expected round 2 after revision, got %d", round)
	}
}

func TestScanOverdue_EscalatesOncePerStep(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	item := env.newItem(t, types.ItemStatusScored)
	if _, err := env.engine.Submit(ctx, item.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	future := time.Now().UTC().Add(100 * 24 * time.Hour)
	n, err := env.engine.ScanOverdue(ctx, future)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 escalation, got %d", n)
	}
	// Second sweep finds nothing: escalated_at dedupes.
	n, err = env.engine.ScanOverdue(ctx, future)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 escalations on second sweep, got %d", n)
	}
	// The item did not move.
	got, _ := env.items.GetByID(ctx, nil, item.ID)
	if got.Status != types.ItemStatusPendingReview {
		t.Fatalf("escalation changed status: %q", got.Status)
	}
	if env.sink.count(notify.ChannelEscalation) != 1 {
		t.Fatalf("expected 1 escalation notification")
	}
}

func TestDeriveStatus_Law(t *testing.T) {
	mk := func(decisions ...string) []*types.ApprovalStep {
		out := make([]*types.ApprovalStep, 0, len(decisions))
		for i, d := range decisions {
			out = append(out, &types.ApprovalStep{ID: uuid.New(), Stage: fmt.Sprintf("s%d", i), Decision: d})
		}
		return out
	}
	cases := []struct {
		steps []*types.ApprovalStep
		want  string
	}{
		{mk(types.DecisionApproved, types.DecisionApproved), types.ItemStatusApproved},
		{mk(types.DecisionApproved, types.DecisionPending), types.ItemStatusPendingReview},
		{mk(types.DecisionPending, types.DecisionRejected), types.ItemStatusRejected},
		{mk(types.DecisionRejected, types.DecisionApproved), types.ItemStatusRejected},
		{mk(types.DecisionChangesRequested, types.DecisionApproved), types.ItemStatusPendingReview},
	}
	for i, c := range cases {
		if got := DeriveStatus(c.steps); got != c.want {
			t.Fatalf("case %d: got %q want %q", i, got, c.want)
		}
	}
}
