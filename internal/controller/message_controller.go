package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
	"github.com/beaconsms/broadcast-service/internal/service"
)

type MessageController struct {
	Dispatcher *service.Dispatcher
	Aggregator *service.StatusAggregator
	Retry      *service.RetryCoordinator
}

// CreateMessage dispatches a broadcast to all active subscribers and returns
// the per-recipient summary. Individual send failures come back as counts,
// not as an error; only an operation that could not start fails the request.
func (c *MessageController) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	msg, summary, err := c.Dispatcher.Send(r.Context(), body.Body)
	if err != nil {
		var validationErr *appErrors.ValidationError
		var noRecipientsErr *appErrors.NoRecipientsError
		if errors.As(err, &validationErr) || errors.As(err, &noRecipientsErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  msg,
		"delivery": summary,
	})
}

// ListMessages returns all broadcasts annotated with delivered counts and
// the active-subscriber snapshot taken at send time.
func (c *MessageController) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := c.Aggregator.ListMessagesWithCounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": messages,
	})
}

// RetryDelivery re-sends one failed delivery, appending a new log row. A
// vendor failure still returns the fresh failed row, with the error
// alongside it.
func (c *MessageController) RetryDelivery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LogID string `json:"log_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	logID, err := uuid.Parse(body.LogID)
	if err != nil {
		http.Error(w, "invalid log_id", http.StatusBadRequest)
		return
	}

	logRow, err := c.Retry.Retry(r.Context(), logID)
	if err != nil {
		if logRow != nil {
			// The attempt happened and failed; the new row exists.
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"delivery_log": logRow,
				"error":        err.Error(),
			})
			return
		}
		var refusedErr *appErrors.RetryRefusedError
		var logNotFoundErr *appErrors.DeliveryLogNotFoundError
		var subNotFoundErr *appErrors.SubscriberNotFoundError
		switch {
		case errors.As(err, &refusedErr):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.As(err, &logNotFoundErr), errors.As(err, &subNotFoundErr):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"delivery_log": logRow,
	})
}
