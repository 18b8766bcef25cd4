package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/beaconsms/broadcast-service/internal/handler"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

func newSubscriberRouter(store *repository.MemorySubscriberStore) http.Handler {
	h := &handler.SubscriberHandler{Subscribers: store}
	r := chi.NewRouter()
	r.Post("/subscribers", h.CreateSubscriber)
	r.Get("/subscribers", h.ListSubscribers)
	r.Patch("/subscribers/{id}/status", h.UpdateSubscriberStatus)
	return r
}

func TestCreateSubscriberNormalizesPhone(t *testing.T) {
	store := repository.NewMemorySubscriberStore()
	router := newSubscriberRouter(store)

	b, _ := json.Marshal(map[string]string{"phone_number": "+254 (700) 000-001", "name": "Alice"})
	req := httptest.NewRequest("POST", "/subscribers", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Result().StatusCode, w.Body.String())
	}

	var s model.Subscriber
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if s.PhoneNumber != "+254700000001" {
		t.Errorf("expected normalized phone +254700000001, got %q", s.PhoneNumber)
	}
	if s.Status != model.SubscriberActive {
		t.Errorf("expected active status, got %q", s.Status)
	}
}

func TestCreateSubscriberInvalidPhone(t *testing.T) {
	router := newSubscriberRouter(repository.NewMemorySubscriberStore())

	b, _ := json.Marshal(map[string]string{"phone_number": "0700000001"})
	req := httptest.NewRequest("POST", "/subscribers", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for phone without +, got %d", w.Result().StatusCode)
	}
}

func TestCreateSubscriberReactivates(t *testing.T) {
	store := repository.NewMemorySubscriberStore()
	existing := &model.Subscriber{PhoneNumber: "+254700000001", Name: "Alice"}
	if err := store.Upsert(context.Background(), existing); err != nil {
		t.Fatalf("failed to seed subscriber: %v", err)
	}
	if err := store.UpdateStatus(context.Background(), existing.ID, model.SubscriberInactive); err != nil {
		t.Fatalf("failed to deactivate subscriber: %v", err)
	}

	router := newSubscriberRouter(store)
	b, _ := json.Marshal(map[string]string{"phone_number": "+254700000001"})
	req := httptest.NewRequest("POST", "/subscribers", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}

	got, err := store.GetByID(context.Background(), existing.ID)
	if err != nil || got == nil {
		t.Fatalf("expected subscriber to survive reactivation, got %v, %v", got, err)
	}
	if got.Status != model.SubscriberActive {
		t.Errorf("expected reactivated subscriber, got status %q", got.Status)
	}
	if got.Name != "Alice" {
		t.Errorf("expected name preserved, got %q", got.Name)
	}
}

func TestUpdateSubscriberStatus(t *testing.T) {
	store := repository.NewMemorySubscriberStore()
	s := &model.Subscriber{PhoneNumber: "+254700000001"}
	if err := store.Upsert(context.Background(), s); err != nil {
		t.Fatalf("failed to seed subscriber: %v", err)
	}

	router := newSubscriberRouter(store)
	b, _ := json.Marshal(map[string]string{"status": "blocked"})
	req := httptest.NewRequest("PATCH", "/subscribers/"+s.ID.String()+"/status", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Result().StatusCode, w.Body.String())
	}

	got, _ := store.GetByID(context.Background(), s.ID)
	if got.Status != model.SubscriberBlocked {
		t.Errorf("expected blocked, got %q", got.Status)
	}
}

func TestUpdateSubscriberStatusRejectsUnknownValue(t *testing.T) {
	store := repository.NewMemorySubscriberStore()
	s := &model.Subscriber{PhoneNumber: "+254700000001"}
	if err := store.Upsert(context.Background(), s); err != nil {
		t.Fatalf("failed to seed subscriber: %v", err)
	}

	router := newSubscriberRouter(store)
	b, _ := json.Marshal(map[string]string{"status": "snoozed"})
	req := httptest.NewRequest("PATCH", "/subscribers/"+s.ID.String()+"/status", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Result().StatusCode)
	}
}

func TestUpdateSubscriberStatusNotFound(t *testing.T) {
	router := newSubscriberRouter(repository.NewMemorySubscriberStore())

	b, _ := json.Marshal(map[string]string{"status": "inactive"})
	req := httptest.NewRequest("PATCH", "/subscribers/11111111-2222-3333-4444-555555555555/status", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Result().StatusCode)
	}
}
