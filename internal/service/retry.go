package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

// RetryCoordinator re-sends a single previously failed delivery. Every retry
// appends a brand-new delivery log row; the original failed row is never
// touched, preserving the full audit trail of attempts.
type RetryCoordinator struct {
	Subscribers repository.SubscriberStore
	Logs        repository.DeliveryLogStore
	Dispatcher  *Dispatcher
}

// Retry performs exactly one new attempt for the given failed log. It
// refuses when the log is not failed, or when any sibling attempt for the
// same (message, subscriber) pair already reached delivered. On a gateway
// failure the fresh failed row is returned alongside the error.
func (r *RetryCoordinator) Retry(ctx context.Context, logID uuid.UUID) (*model.DeliveryLog, error) {
	original, err := r.Logs.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, appErrors.NewDeliveryLogNotFound(logID)
	}
	if original.Status != model.StatusFailed {
		return nil, appErrors.NewRetryRefused(logID, fmt.Sprintf("only failed deliveries can be retried, status is %s", original.Status))
	}
	if original.MessageID == nil || original.SubscriberID == nil {
		return nil, appErrors.NewRetryRefused(logID, "log is not tied to a broadcast recipient")
	}

	delivered, err := r.Logs.HasDelivered(ctx, *original.MessageID, *original.SubscriberID)
	if err != nil {
		return nil, err
	}
	if delivered {
		return nil, appErrors.NewRetryRefused(logID, "a previous attempt for this recipient was already delivered")
	}

	subscriber, err := r.Subscribers.GetByID(ctx, *original.SubscriberID)
	if err != nil {
		return nil, err
	}
	if subscriber == nil {
		return nil, appErrors.NewSubscriberNotFound(*original.SubscriberID)
	}

	// Reuses the original message text snapshot, not the Message row, so the
	// retry says exactly what the failed attempt said.
	return r.Dispatcher.sendToSubscriber(ctx, *original.MessageID, *subscriber, original.MessageText)
}
