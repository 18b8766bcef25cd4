package repository

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
)

type Backend string

const (
	BackendPrimary  Backend = "primary"
	BackendFallback Backend = "fallback"
)

// FailoverState is the switch shared by the failover stores. It trips to the
// fallback backend on the first storage error and stays there; the two
// backends are never reconciled, so a process restart is required to retry
// the primary. Backend() exposes which side is serving for observability.
type FailoverState struct {
	mu      sync.Mutex
	tripped bool
}

func NewFailoverState() *FailoverState {
	return &FailoverState{}
}

func (s *FailoverState) Backend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		return BackendFallback
	}
	return BackendPrimary
}

func (s *FailoverState) usingFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped
}

// trip reports whether err is a storage failure that moves (or has moved)
// the switch to the fallback backend. Not-found and domain errors pass
// through untouched.
func (s *FailoverState) trip(err error) bool {
	var storageErr *appErrors.StorageError
	if !errors.As(err, &storageErr) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tripped {
		s.tripped = true
		log.Printf("primary storage failed, switching to in-memory fallback: %v", err)
	}
	return true
}

// ---------------------- messages ----------------------

type FailoverMessageStore struct {
	Primary  MessageStore
	Fallback MessageStore
	State    *FailoverState
}

func (f *FailoverMessageStore) Create(ctx context.Context, m *model.Message) error {
	if !f.State.usingFallback() {
		err := f.Primary.Create(ctx, m)
		if !f.State.trip(err) {
			return err
		}
	}
	return f.Fallback.Create(ctx, m)
}

func (f *FailoverMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	if !f.State.usingFallback() {
		m, err := f.Primary.GetByID(ctx, id)
		if !f.State.trip(err) {
			return m, err
		}
	}
	return f.Fallback.GetByID(ctx, id)
}

func (f *FailoverMessageStore) List(ctx context.Context) ([]model.Message, error) {
	if !f.State.usingFallback() {
		messages, err := f.Primary.List(ctx)
		if !f.State.trip(err) {
			return messages, err
		}
	}
	return f.Fallback.List(ctx)
}

// ---------------------- subscribers ----------------------

type FailoverSubscriberStore struct {
	Primary  SubscriberStore
	Fallback SubscriberStore
	State    *FailoverState
}

func (f *FailoverSubscriberStore) Upsert(ctx context.Context, s *model.Subscriber) error {
	if !f.State.usingFallback() {
		err := f.Primary.Upsert(ctx, s)
		if !f.State.trip(err) {
			return err
		}
	}
	return f.Fallback.Upsert(ctx, s)
}

func (f *FailoverSubscriberStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	if !f.State.usingFallback() {
		s, err := f.Primary.GetByID(ctx, id)
		if !f.State.trip(err) {
			return s, err
		}
	}
	return f.Fallback.GetByID(ctx, id)
}

func (f *FailoverSubscriberStore) GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error) {
	if !f.State.usingFallback() {
		s, err := f.Primary.GetByPhone(ctx, phone)
		if !f.State.trip(err) {
			return s, err
		}
	}
	return f.Fallback.GetByPhone(ctx, phone)
}

func (f *FailoverSubscriberStore) List(ctx context.Context) ([]model.Subscriber, error) {
	if !f.State.usingFallback() {
		subscribers, err := f.Primary.List(ctx)
		if !f.State.trip(err) {
			return subscribers, err
		}
	}
	return f.Fallback.List(ctx)
}

func (f *FailoverSubscriberStore) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	if !f.State.usingFallback() {
		subscribers, err := f.Primary.ListActive(ctx)
		if !f.State.trip(err) {
			return subscribers, err
		}
	}
	return f.Fallback.ListActive(ctx)
}

func (f *FailoverSubscriberStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error {
	if !f.State.usingFallback() {
		err := f.Primary.UpdateStatus(ctx, id, status)
		if !f.State.trip(err) {
			return err
		}
	}
	return f.Fallback.UpdateStatus(ctx, id, status)
}

// ---------------------- delivery logs ----------------------

type FailoverDeliveryLogStore struct {
	Primary  DeliveryLogStore
	Fallback DeliveryLogStore
	State    *FailoverState
}

func (f *FailoverDeliveryLogStore) Create(ctx context.Context, l *model.DeliveryLog) error {
	if !f.State.usingFallback() {
		err := f.Primary.Create(ctx, l)
		if !f.State.trip(err) {
			return err
		}
	}
	return f.Fallback.Create(ctx, l)
}

func (f *FailoverDeliveryLogStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, telnyxMessageID, errorMessage string) error {
	if !f.State.usingFallback() {
		err := f.Primary.UpdateStatus(ctx, id, status, telnyxMessageID, errorMessage)
		if !f.State.trip(err) {
			return err
		}
	}
	return f.Fallback.UpdateStatus(ctx, id, status, telnyxMessageID, errorMessage)
}

func (f *FailoverDeliveryLogStore) GetByID(ctx context.Context, id uuid.UUID) (*model.DeliveryLog, error) {
	if !f.State.usingFallback() {
		l, err := f.Primary.GetByID(ctx, id)
		if !f.State.trip(err) {
			return l, err
		}
	}
	return f.Fallback.GetByID(ctx, id)
}

func (f *FailoverDeliveryLogStore) GetByTelnyxID(ctx context.Context, telnyxMessageID string) (*model.DeliveryLog, error) {
	if !f.State.usingFallback() {
		l, err := f.Primary.GetByTelnyxID(ctx, telnyxMessageID)
		if !f.State.trip(err) {
			return l, err
		}
	}
	return f.Fallback.GetByTelnyxID(ctx, telnyxMessageID)
}

func (f *FailoverDeliveryLogStore) HasDelivered(ctx context.Context, messageID, subscriberID uuid.UUID) (bool, error) {
	if !f.State.usingFallback() {
		delivered, err := f.Primary.HasDelivered(ctx, messageID, subscriberID)
		if !f.State.trip(err) {
			return delivered, err
		}
	}
	return f.Fallback.HasDelivered(ctx, messageID, subscriberID)
}

func (f *FailoverDeliveryLogStore) CountsByMessage(ctx context.Context) (map[uuid.UUID]map[model.DeliveryStatus]int, error) {
	if !f.State.usingFallback() {
		counts, err := f.Primary.CountsByMessage(ctx)
		if !f.State.trip(err) {
			return counts, err
		}
	}
	return f.Fallback.CountsByMessage(ctx)
}

func (f *FailoverDeliveryLogStore) CountByMessageAndStatus(ctx context.Context, messageID uuid.UUID, status model.DeliveryStatus) (int, error) {
	if !f.State.usingFallback() {
		count, err := f.Primary.CountByMessageAndStatus(ctx, messageID, status)
		if !f.State.trip(err) {
			return count, err
		}
	}
	return f.Fallback.CountByMessageAndStatus(ctx, messageID, status)
}

func (f *FailoverDeliveryLogStore) List(ctx context.Context, filter LogFilter) ([]DeliveryLogWithSubscriber, int, error) {
	if !f.State.usingFallback() {
		logs, total, err := f.Primary.List(ctx, filter)
		if !f.State.trip(err) {
			return logs, total, err
		}
	}
	return f.Fallback.List(ctx, filter)
}
