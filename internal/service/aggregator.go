package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

// StatusAggregator derives per-message delivery counts for the reporting UI.
// Pure reads; for a fixed store snapshot the output is deterministic.
type StatusAggregator struct {
	Messages repository.MessageStore
	Logs     repository.DeliveryLogStore
}

// MessageWithCounts annotates a message with its delivered count and the
// active-subscriber snapshot stamped at send time.
type MessageWithCounts struct {
	model.Message
	DeliveredCount int `json:"delivered_count"`
}

// MessageCounts is the per-message summary consumed by the detail view.
type MessageCounts struct {
	Delivered                 int `json:"delivered"`
	ActiveSubscribersSnapshot int `json:"active_subscribers_snapshot"`
}

// CountsByMessage groups outbound delivery logs by (message, status) and
// counts them.
func (a *StatusAggregator) CountsByMessage(ctx context.Context) (map[uuid.UUID]map[model.DeliveryStatus]int, error) {
	return a.Logs.CountsByMessage(ctx)
}

// CountsForMessage reports the delivered count and the active-subscriber
// snapshot for one message.
func (a *StatusAggregator) CountsForMessage(ctx context.Context, messageID uuid.UUID) (*MessageCounts, error) {
	msg, err := a.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	delivered, err := a.Logs.CountByMessageAndStatus(ctx, messageID, model.StatusDelivered)
	if err != nil {
		return nil, err
	}
	return &MessageCounts{
		Delivered:                 delivered,
		ActiveSubscribersSnapshot: msg.CurrentActiveSubscribers,
	}, nil
}

// ListMessagesWithCounts returns every message annotated with its delivered
// count, newest first.
func (a *StatusAggregator) ListMessagesWithCounts(ctx context.Context) ([]MessageWithCounts, error) {
	messages, err := a.Messages.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := a.Logs.CountsByMessage(ctx)
	if err != nil {
		return nil, err
	}

	annotated := make([]MessageWithCounts, 0, len(messages))
	for _, msg := range messages {
		annotated = append(annotated, MessageWithCounts{
			Message:        msg,
			DeliveredCount: counts[msg.ID][model.StatusDelivered],
		})
	}
	return annotated, nil
}
