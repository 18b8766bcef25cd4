package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

// WebhookReconciler applies the gateway's asynchronous status callbacks to
// stored delivery state. It is safe to replay: a transition is only written
// when it moves the row forward, so duplicate and out-of-order callbacks are
// ignored.
type WebhookReconciler struct {
	Logs        repository.DeliveryLogStore
	Subscribers repository.SubscriberStore
}

// Apply routes one vendor event. Unknown event types are acknowledged and
// ignored. The returned error is a storage failure only; unmatched vendor
// ids are logged and dropped because the gateway expects a 200 regardless.
func (w *WebhookReconciler) Apply(ctx context.Context, ev gateway.WebhookEvent) error {
	switch ev.Data.EventType {
	case gateway.EventMessageFinalized:
		return w.finalize(ctx, ev.Data.Payload)
	case gateway.EventMessageReceived:
		return w.recordInbound(ctx, ev.Data.Payload)
	default:
		log.Printf("ignoring gateway event type %q", ev.Data.EventType)
		return nil
	}
}

func (w *WebhookReconciler) finalize(ctx context.Context, p gateway.WebhookPayload) error {
	logRow, err := w.Logs.GetByTelnyxID(ctx, p.ID)
	if err != nil {
		return err
	}
	if logRow == nil {
		log.Printf("dropping webhook: %v", appErrors.NewWebhookMatch(p.ID))
		return nil
	}

	next := mapVendorStatus(p.DeliveryStatus)
	if !logRow.Status.CanTransitionTo(next) {
		log.Printf("ignoring webhook for delivery log %s: %s -> %s is not forward progress", logRow.ID, logRow.Status, next)
		return nil
	}

	errorMessage := ""
	if next == model.StatusFailed {
		errorMessage = "vendor reported " + p.DeliveryStatus
	}
	return w.Logs.UpdateStatus(ctx, logRow.ID, next, logRow.TelnyxMessageID, errorMessage)
}

// recordInbound stores a subscriber reply as an inbound delivery log with no
// message_id. The sender's phone number is matched back to a subscriber when
// one exists.
func (w *WebhookReconciler) recordInbound(ctx context.Context, p gateway.WebhookPayload) error {
	var subscriberID *uuid.UUID
	if p.From != "" {
		subscriber, err := w.Subscribers.GetByPhone(ctx, p.From)
		if err != nil {
			return err
		}
		if subscriber != nil {
			subscriberID = &subscriber.ID
		}
	}

	return w.Logs.Create(ctx, &model.DeliveryLog{
		ID:              uuid.New(),
		SubscriberID:    subscriberID,
		Direction:       model.DirectionInbound,
		Status:          model.StatusDelivered,
		MessageText:     p.Text,
		TelnyxMessageID: p.ID,
		UpdatedAt:       time.Now(),
	})
}

// mapVendorStatus translates the vendor's delivery_status vocabulary into
// the internal enum: delivered and the failure words map directly, anything
// else means the message is still in flight.
func mapVendorStatus(vendorStatus string) model.DeliveryStatus {
	switch vendorStatus {
	case "delivered":
		return model.StatusDelivered
	case "failed", "undelivered":
		return model.StatusFailed
	default:
		return model.StatusSent
	}
}
