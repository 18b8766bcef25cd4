package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

// SubscriberHandler holds the dependencies for subscriber-management HTTP
// handlers.
type SubscriberHandler struct {
	Subscribers repository.SubscriberStore
}

// CreateSubscriber upserts by phone number: re-adding an existing number
// reactivates the subscriber instead of creating a duplicate.
func (h *SubscriberHandler) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PhoneNumber string `json:"phone_number"`
		Name        string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	phone, err := model.NormalizePhone(payload.PhoneNumber)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subscriber := &model.Subscriber{
		PhoneNumber: phone,
		Name:        payload.Name,
		Status:      model.SubscriberActive,
	}
	if err := h.Subscribers.Upsert(r.Context(), subscriber); err != nil {
		http.Error(w, "failed to save subscriber: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subscriber)
}

// ListSubscribers returns every subscriber regardless of status.
func (h *SubscriberHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subscribers, err := h.Subscribers.List(r.Context())
	if err != nil {
		http.Error(w, "failed to fetch subscribers: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": subscribers,
	})
}

// UpdateSubscriberStatus moves a subscriber between active, inactive, and
// blocked.
func (h *SubscriberHandler) UpdateSubscriberStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid subscriber id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Status model.SubscriberStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !payload.Status.Valid() {
		http.Error(w, "invalid status: "+string(payload.Status), http.StatusBadRequest)
		return
	}

	if err := h.Subscribers.UpdateStatus(r.Context(), id, payload.Status); err != nil {
		var notFoundErr *appErrors.SubscriberNotFoundError
		if errors.As(err, &notFoundErr) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update subscriber: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     id,
		"status": payload.Status,
	})
}
