package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

const defaultConcurrency = 10

// Dispatcher fans one message body out to every active subscriber, writing
// one delivery log per attempt.
type Dispatcher struct {
	Messages    repository.MessageStore
	Subscribers repository.SubscriberStore
	Logs        repository.DeliveryLogStore
	Gateway     gateway.Client
	FromNumber  string
	WebhookURL  string
	Concurrency int

	inflight int64
}

// SendResult is one subscriber's outcome within a broadcast.
type SendResult struct {
	SubscriberID uuid.UUID `json:"subscriber_id"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// SendSummary aggregates per-subscriber outcomes. Partial failure is the
// expected terminal state of a broadcast, not an error.
type SendSummary struct {
	Total   int          `json:"total"`
	Sent    int          `json:"sent"`
	Failed  int          `json:"failed"`
	Results []SendResult `json:"results"`
}

// Send creates the Message record and fans it out. The Message row is
// persisted before the recipient check, so a broadcast with zero active
// subscribers leaves an inert Message behind; that row is deliberately not
// rolled back.
func (d *Dispatcher) Send(ctx context.Context, body string) (*model.Message, *SendSummary, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, appErrors.NewValidation("message body cannot be empty")
	}

	subscribers, err := d.Subscribers.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	msg := &model.Message{
		ID:                       uuid.New(),
		Body:                     body,
		SentAt:                   time.Now(),
		CurrentActiveSubscribers: len(subscribers),
	}
	if err := d.Messages.Create(ctx, msg); err != nil {
		return nil, nil, err
	}

	if len(subscribers) == 0 {
		return msg, nil, appErrors.NewNoRecipients(msg.ID)
	}

	// Bounded fan-out: at most Concurrency sends in flight. Each
	// subscriber's pipeline (pending log -> send -> sent/failed log) is
	// independent of its siblings and may finish in any order.
	sem := make(chan struct{}, d.concurrency())
	results := make([]SendResult, len(subscribers))
	var wg sync.WaitGroup
	for i, sub := range subscribers {
		wg.Add(1)
		go func(i int, sub model.Subscriber) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			atomic.AddInt64(&d.inflight, 1)
			defer atomic.AddInt64(&d.inflight, -1)

			_, err := d.sendToSubscriber(ctx, msg.ID, sub, msg.Body)
			result := SendResult{SubscriberID: sub.ID, Success: err == nil}
			if err != nil {
				result.Error = err.Error()
			}
			results[i] = result
		}(i, sub)
	}
	wg.Wait()

	summary := &SendSummary{Total: len(subscribers), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	return msg, summary, nil
}

// sendToSubscriber is the single-recipient send primitive shared with the
// retry path. It always leaves a delivery log behind: pending before the
// vendor call, then sent (with the vendor id) or failed (with the error).
// The returned log reflects the final state; err is non-nil when the attempt
// did not reach sent.
func (d *Dispatcher) sendToSubscriber(ctx context.Context, messageID uuid.UUID, sub model.Subscriber, text string) (*model.DeliveryLog, error) {
	logRow := &model.DeliveryLog{
		ID:           uuid.New(),
		MessageID:    &messageID,
		SubscriberID: &sub.ID,
		Direction:    model.DirectionOutbound,
		Status:       model.StatusPending,
		MessageText:  text,
		UpdatedAt:    time.Now(),
	}
	if err := d.Logs.Create(ctx, logRow); err != nil {
		return nil, err
	}

	resp, err := d.Gateway.Send(ctx, gateway.SendRequest{
		From:       d.FromNumber,
		To:         sub.PhoneNumber,
		Text:       text,
		WebhookURL: d.WebhookURL,
	})
	if err != nil {
		logRow.Status = model.StatusFailed
		logRow.ErrorMessage = err.Error()
		_ = d.Logs.UpdateStatus(ctx, logRow.ID, model.StatusFailed, "", err.Error())
		return logRow, err
	}

	logRow.Status = model.StatusSent
	logRow.TelnyxMessageID = resp.MessageID
	if err := d.Logs.UpdateStatus(ctx, logRow.ID, model.StatusSent, resp.MessageID, ""); err != nil {
		return logRow, err
	}
	return logRow, nil
}

func (d *Dispatcher) concurrency() int {
	if d.Concurrency > 0 {
		return d.Concurrency
	}
	return defaultConcurrency
}

// Depth reports how many sends are currently in flight, for backpressure
// observability.
func (d *Dispatcher) Depth() int {
	return int(atomic.LoadInt64(&d.inflight))
}
