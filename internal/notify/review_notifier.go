package notify

import (
	"context"
	"fmt"

	"github.com/yungbote/contentforge-backend/internal/types"
)

const (
	ChannelReview     = "review"
	ChannelEscalation = "escalation"
	ChannelPublish    = "publish"
)

// ReviewNotifier narrates workflow events onto the sink. Every method is
// nil-safe and fire-and-forget, mirroring how the engine calls it mid-lock.
type ReviewNotifier interface {
	ReadyForReview(ctx context.Context, item *types.GeneratedItem, step *types.ApprovalStep)
	Escalation(ctx context.Context, item *types.GeneratedItem, step *types.ApprovalStep)
	DecisionRecorded(ctx context.Context, item *types.GeneratedItem, step *types.ApprovalStep)
	Published(ctx context.Context, item *types.GeneratedItem)
}

type reviewNotifier struct {
	sink Sink
}

func NewReviewNotifier(sink Sink) ReviewNotifier {
	return &reviewNotifier{sink: sink}
}

func (n *reviewNotifier) ReadyForReview(ctx context.Context, item *types.GeneratedItem, step *types.ApprovalStep) {
	if n == nil || n.sink == nil || item == nil || step == nil {
		return
	}
	n.sink.Notify(ctx, ChannelReview,
		fmt.Sprintf("item %s awaits %s review (stage %s)", item.ID, step.Reviewer, step.Stage))
}

func (n *reviewNotifier) Escalation(ctx context.Context, item *types.GeneratedItem, step *types.ApprovalStep) {
	if n == nil || n.sink == nil || step == nil {
		return
	}
	itemID := ""
	if item != nil {
		itemID = item.ID.String()
	}
	n.sink.Notify(ctx, ChannelEscalation,
		fmt.Sprintf("stage %s on item %s is past due (reviewer %s)", step.Stage, itemID, step.Reviewer))
}

func (n *reviewNotifier) DecisionRecorded(ctx context.Context, item *types.GeneratedItem, step *types.ApprovalStep) {
	if n == nil || n.sink == nil || item == nil || step == nil {
		return
	}
	n.sink.Notify(ctx, ChannelReview,
		fmt.Sprintf("item %s stage %s: %s by %s", item.ID, step.Stage, step.Decision, step.Reviewer))
}

func (n *reviewNotifier) Published(ctx context.Context, item *types.GeneratedItem) {
	if n == nil || n.sink == nil || item == nil {
		return
	}
	n.sink.Notify(ctx, ChannelPublish, fmt.Sprintf("item %s published", item.ID))
}
