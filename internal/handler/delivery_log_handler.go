package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
)

// DeliveryLogHandler serves the paginated delivery-log listing joined with
// subscriber identity.
type DeliveryLogHandler struct {
	Logs repository.DeliveryLogStore
}

// ListDeliveryLogs handles GET /delivery-logs?search=&status=&from=&to=&page=&limit=
func (h *DeliveryLogHandler) ListDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > 100 {
		limit = 100
	}

	filter := repository.LogFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := model.DeliveryStatus(status)
		if !s.Valid() {
			http.Error(w, "invalid status filter: "+status, http.StatusBadRequest)
			return
		}
		filter.Status = s
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			http.Error(w, "invalid from date, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			http.Error(w, "invalid to date, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.To = &t
	}

	logs, total, err := h.Logs.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "failed to fetch delivery logs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit
	response := map[string]interface{}{
		"data": logs,
		"pagination": map[string]int{
			"page":        page,
			"limit":       limit,
			"total_count": total,
			"total_pages": totalPages,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
