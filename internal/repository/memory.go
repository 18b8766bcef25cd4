package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
)

// The in-memory stores back two things: the fallback storage backend when
// postgres is unreachable, and the store doubles in tests. Contents do not
// survive a restart and never reconcile back into the primary.

type MemoryMessageStore struct {
	mu       sync.Mutex
	messages map[uuid.UUID]model.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{messages: make(map[uuid.UUID]model.Message)}
}

func (m *MemoryMessageStore) Create(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = *msg
	return nil
}

func (m *MemoryMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func (m *MemoryMessageStore) List(ctx context.Context) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := make([]model.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].SentAt.After(messages[j].SentAt)
	})
	return messages, nil
}

type MemorySubscriberStore struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]model.Subscriber
}

func NewMemorySubscriberStore() *MemorySubscriberStore {
	return &MemorySubscriberStore{subscribers: make(map[uuid.UUID]model.Subscriber)}
}

func (m *MemorySubscriberStore) Upsert(ctx context.Context, s *model.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.subscribers {
		if existing.PhoneNumber == s.PhoneNumber {
			existing.Status = model.SubscriberActive
			if s.Name != "" {
				existing.Name = s.Name
			}
			m.subscribers[id] = existing
			*s = existing
			return nil
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.JoinedAt.IsZero() {
		s.JoinedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = model.SubscriberActive
	}
	m.subscribers[s.ID] = *s
	return nil
}

func (m *MemorySubscriberStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemorySubscriberStore) GetByPhone(ctx context.Context, phone string) (*model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.PhoneNumber == phone {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemorySubscriberStore) List(ctx context.Context) ([]model.Subscriber, error) {
	return m.list(false), nil
}

func (m *MemorySubscriberStore) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	return m.list(true), nil
}

func (m *MemorySubscriberStore) list(activeOnly bool) []model.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	subscribers := []model.Subscriber{}
	for _, s := range m.subscribers {
		if activeOnly && s.Status != model.SubscriberActive {
			continue
		}
		subscribers = append(subscribers, s)
	}
	sort.Slice(subscribers, func(i, j int) bool {
		return subscribers[i].JoinedAt.After(subscribers[j].JoinedAt)
	})
	return subscribers
}

func (m *MemorySubscriberStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubscriberStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return appErrors.NewSubscriberNotFound(id)
	}
	s.Status = status
	m.subscribers[id] = s
	return nil
}

// MemoryDeliveryLogStore holds a reference to the subscriber store only to
// join recipient identity into the log listing.
type MemoryDeliveryLogStore struct {
	mu          sync.Mutex
	logs        map[uuid.UUID]model.DeliveryLog
	Subscribers *MemorySubscriberStore
}

func NewMemoryDeliveryLogStore(subscribers *MemorySubscriberStore) *MemoryDeliveryLogStore {
	return &MemoryDeliveryLogStore{
		logs:        make(map[uuid.UUID]model.DeliveryLog),
		Subscribers: subscribers,
	}
}

func (m *MemoryDeliveryLogStore) Create(ctx context.Context, l *model.DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now()
	}
	m.logs[l.ID] = *l
	return nil
}

func (m *MemoryDeliveryLogStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, telnyxMessageID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return appErrors.NewDeliveryLogNotFound(id)
	}
	l.Status = status
	if telnyxMessageID != "" {
		l.TelnyxMessageID = telnyxMessageID
	}
	l.ErrorMessage = errorMessage
	l.UpdatedAt = time.Now()
	m.logs[id] = l
	return nil
}

func (m *MemoryDeliveryLogStore) GetByID(ctx context.Context, id uuid.UUID) (*model.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *MemoryDeliveryLogStore) GetByTelnyxID(ctx context.Context, telnyxMessageID string) (*model.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var match *model.DeliveryLog
	for _, l := range m.logs {
		if l.TelnyxMessageID != telnyxMessageID || telnyxMessageID == "" {
			continue
		}
		out := l
		if match == nil || out.UpdatedAt.After(match.UpdatedAt) {
			match = &out
		}
	}
	return match, nil
}

func (m *MemoryDeliveryLogStore) HasDelivered(ctx context.Context, messageID, subscriberID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.Status != model.StatusDelivered || l.MessageID == nil || l.SubscriberID == nil {
			continue
		}
		if *l.MessageID == messageID && *l.SubscriberID == subscriberID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryDeliveryLogStore) CountsByMessage(ctx context.Context) (map[uuid.UUID]map[model.DeliveryStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[uuid.UUID]map[model.DeliveryStatus]int{}
	for _, l := range m.logs {
		if l.Direction != model.DirectionOutbound || l.MessageID == nil {
			continue
		}
		if counts[*l.MessageID] == nil {
			counts[*l.MessageID] = map[model.DeliveryStatus]int{}
		}
		counts[*l.MessageID][l.Status]++
	}
	return counts, nil
}

func (m *MemoryDeliveryLogStore) CountByMessageAndStatus(ctx context.Context, messageID uuid.UUID, status model.DeliveryStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.logs {
		if l.Direction == model.DirectionOutbound && l.MessageID != nil && *l.MessageID == messageID && l.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MemoryDeliveryLogStore) List(ctx context.Context, f LogFilter) ([]DeliveryLogWithSubscriber, int, error) {
	m.mu.Lock()
	rows := make([]model.DeliveryLog, 0, len(m.logs))
	for _, l := range m.logs {
		rows = append(rows, l)
	}
	m.mu.Unlock()

	filtered := []DeliveryLogWithSubscriber{}
	for _, l := range rows {
		row := DeliveryLogWithSubscriber{DeliveryLog: l}
		if l.SubscriberID != nil && m.Subscribers != nil {
			if s, _ := m.Subscribers.GetByID(ctx, *l.SubscriberID); s != nil {
				row.SubscriberName = s.Name
				row.SubscriberPhone = s.PhoneNumber
			}
		}
		if !matchesFilter(row, f) {
			continue
		}
		filtered = append(filtered, row)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})

	total := len(filtered)
	start := f.Offset
	if start > total {
		return []DeliveryLogWithSubscriber{}, total, nil
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return filtered[start:end], total, nil
}

func matchesFilter(row DeliveryLogWithSubscriber, f LogFilter) bool {
	if f.Status != "" && row.Status != f.Status {
		return false
	}
	if f.From != nil && row.UpdatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && row.UpdatedAt.After(*f.To) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(row.SubscriberName), needle) &&
			!strings.Contains(strings.ToLower(row.SubscriberPhone), needle) &&
			!strings.Contains(strings.ToLower(row.MessageText), needle) {
			return false
		}
	}
	return true
}
