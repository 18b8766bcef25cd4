package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/service"
)

// TopicGatewayEvents carries raw vendor webhook events from the HTTP
// handler to the reconciler.
const TopicGatewayEvents = "gateway_events"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers payloads to in-process subscribers with retry.
// Used when no AMQP broker is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// jobPayload wraps a payload with retry info
type jobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a payload to all subscribers of a topic.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := jobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job jobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("job failed (attempt %d/%d): %v", job.RetryCount, job.MaxRetries, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("job permanently failed after %d attempts", job.MaxRetries)
			return // no requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic.
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartWebhookSubscriber wires the reconciler to the gateway_events topic.
// The payload is a gateway.WebhookEvent when published in-process, or raw
// JSON bytes when it crossed a broker.
func StartWebhookSubscriber(q Queue, reconciler *service.WebhookReconciler) error {
	return q.Subscribe(TopicGatewayEvents, func(payload any) error {
		ev, err := decodeWebhookPayload(payload)
		if err != nil {
			log.Printf("invalid gateway event payload, dropping: %v", err)
			return nil // no retry
		}

		if err := reconciler.Apply(context.Background(), ev); err != nil {
			log.Printf("failed to apply gateway event: %v", err)
			return err // triggers retry
		}
		return nil
	})
}

func decodeWebhookPayload(payload any) (gateway.WebhookEvent, error) {
	switch p := payload.(type) {
	case gateway.WebhookEvent:
		return p, nil
	case []byte:
		var ev gateway.WebhookEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			return gateway.WebhookEvent{}, err
		}
		return ev, nil
	default:
		return gateway.WebhookEvent{}, fmt.Errorf("unexpected payload type %T", payload)
	}
}
