package service_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
	"github.com/beaconsms/broadcast-service/internal/service"
)

// MockGateway records sends and fails for configured phone numbers.
type MockGateway struct {
	mu          sync.Mutex
	calls       []gateway.SendRequest
	failFor     map[string]string // phone -> error message
	delay       time.Duration
	inflight    int
	maxInflight int
	nextID      int
}

func (g *MockGateway) Send(ctx context.Context, req gateway.SendRequest) (gateway.SendResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.inflight++
	if g.inflight > g.maxInflight {
		g.maxInflight = g.inflight
	}
	g.nextID++
	id := g.nextID
	delay := g.delay
	failMsg, shouldFail := g.failFor[req.To]
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()

	if shouldFail {
		return gateway.SendResponse{}, fmt.Errorf("%s", failMsg)
	}
	return gateway.SendResponse{MessageID: "tx-" + strconv.Itoa(id)}, nil
}

func (g *MockGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fixture struct {
	messages    *repository.MemoryMessageStore
	subscribers *repository.MemorySubscriberStore
	logs        *repository.MemoryDeliveryLogStore
	gateway     *MockGateway
	dispatcher  *service.Dispatcher
}

func newFixture() *fixture {
	messages := repository.NewMemoryMessageStore()
	subscribers := repository.NewMemorySubscriberStore()
	logs := repository.NewMemoryDeliveryLogStore(subscribers)
	gw := &MockGateway{failFor: map[string]string{}}
	return &fixture{
		messages:    messages,
		subscribers: subscribers,
		logs:        logs,
		gateway:     gw,
		dispatcher: &service.Dispatcher{
			Messages:    messages,
			Subscribers: subscribers,
			Logs:        logs,
			Gateway:     gw,
			FromNumber:  "+15550000000",
			WebhookURL:  "https://example.com/webhooks/gateway",
		},
	}
}

func (f *fixture) addSubscriber(t *testing.T, phone string, status model.SubscriberStatus) model.Subscriber {
	t.Helper()
	s := &model.Subscriber{PhoneNumber: phone, Status: status}
	if err := f.subscribers.Upsert(context.Background(), s); err != nil {
		t.Fatalf("failed to seed subscriber: %v", err)
	}
	return *s
}

func (f *fixture) allLogs(t *testing.T) []repository.DeliveryLogWithSubscriber {
	t.Helper()
	logs, _, err := f.logs.List(context.Background(), repository.LogFilter{})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	return logs
}

func TestSendFanOut(t *testing.T) {
	f := newFixture()
	f.addSubscriber(t, "+254700000001", model.SubscriberActive)
	f.addSubscriber(t, "+254700000002", model.SubscriberActive)
	f.addSubscriber(t, "+254700000003", model.SubscriberActive)
	f.addSubscriber(t, "+254700000004", model.SubscriberInactive)

	msg, summary, err := f.dispatcher.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if summary.Total != 3 || summary.Sent != 3 || summary.Failed != 0 {
		t.Errorf("expected total=3 sent=3 failed=0, got total=%d sent=%d failed=%d",
			summary.Total, summary.Sent, summary.Failed)
	}
	if f.gateway.callCount() != 3 {
		t.Errorf("expected 3 gateway calls, got %d", f.gateway.callCount())
	}
	if msg.CurrentActiveSubscribers != 3 {
		t.Errorf("expected snapshot of 3 active subscribers, got %d", msg.CurrentActiveSubscribers)
	}

	// Exactly one outbound row per active subscriber, all carrying the
	// message id and a snapshot of the body.
	logs := f.allLogs(t)
	if len(logs) != 3 {
		t.Fatalf("expected 3 delivery logs, got %d", len(logs))
	}
	for _, l := range logs {
		if l.MessageID == nil || *l.MessageID != msg.ID {
			t.Errorf("log %s has wrong message_id", l.ID)
		}
		if l.MessageText != "Hello" {
			t.Errorf("log %s has message_text %q, want %q", l.ID, l.MessageText, "Hello")
		}
		if l.Status != model.StatusSent {
			t.Errorf("log %s has status %s, want sent", l.ID, l.Status)
		}
		if l.TelnyxMessageID == "" {
			t.Errorf("log %s is sent but has no vendor message id", l.ID)
		}
	}
}

func TestSendPartialFailure(t *testing.T) {
	f := newFixture()
	f.addSubscriber(t, "+254700000001", model.SubscriberActive)
	f.addSubscriber(t, "+254700000002", model.SubscriberActive)
	f.addSubscriber(t, "+254700000003", model.SubscriberActive)
	f.gateway.failFor["+254700000002"] = "rate limited"

	_, summary, err := f.dispatcher.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if summary.Sent != 2 || summary.Failed != 1 {
		t.Errorf("expected sent=2 failed=1, got sent=%d failed=%d", summary.Sent, summary.Failed)
	}

	var failed *repository.DeliveryLogWithSubscriber
	for _, l := range f.allLogs(t) {
		if l.Status == model.StatusFailed {
			out := l
			failed = &out
		}
	}
	if failed == nil {
		t.Fatal("expected one failed delivery log")
	}
	if failed.ErrorMessage != "rate limited" {
		t.Errorf("expected error_message %q, got %q", "rate limited", failed.ErrorMessage)
	}
	if failed.TelnyxMessageID != "" {
		t.Errorf("failed log should not carry a vendor message id, got %q", failed.TelnyxMessageID)
	}
}

func TestSendEmptyBody(t *testing.T) {
	f := newFixture()
	f.addSubscriber(t, "+254700000001", model.SubscriberActive)

	_, _, err := f.dispatcher.Send(context.Background(), "   ")
	var validationErr *appErrors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	messages, _ := f.messages.List(context.Background())
	if len(messages) != 0 {
		t.Errorf("expected no messages created, got %d", len(messages))
	}
	if len(f.allLogs(t)) != 0 {
		t.Errorf("expected no delivery logs created")
	}
}

func TestSendNoActiveSubscribers(t *testing.T) {
	f := newFixture()
	f.addSubscriber(t, "+254700000004", model.SubscriberInactive)

	msg, _, err := f.dispatcher.Send(context.Background(), "Hi")
	var noRecipientsErr *appErrors.NoRecipientsError
	if !errors.As(err, &noRecipientsErr) {
		t.Fatalf("expected NoRecipientsError, got %v", err)
	}

	// The orphan Message row is kept on purpose.
	if msg == nil {
		t.Fatal("expected the Message to be returned alongside the error")
	}
	stored, _ := f.messages.GetByID(context.Background(), msg.ID)
	if stored == nil {
		t.Error("expected the Message row to survive the no-recipients failure")
	}
	if len(f.allLogs(t)) != 0 {
		t.Errorf("expected no delivery logs")
	}
}

func TestSendConcurrencyBound(t *testing.T) {
	f := newFixture()
	for i := 0; i < 12; i++ {
		f.addSubscriber(t, fmt.Sprintf("+25470000%04d", i), model.SubscriberActive)
	}
	f.dispatcher.Concurrency = 2
	f.gateway.delay = 10 * time.Millisecond

	_, summary, err := f.dispatcher.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if summary.Sent != 12 {
		t.Errorf("expected 12 sends, got %d", summary.Sent)
	}
	if f.gateway.maxInflight > 2 {
		t.Errorf("fan-out exceeded concurrency limit: %d in flight", f.gateway.maxInflight)
	}
}
