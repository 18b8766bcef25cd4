package controller

import (
	"encoding/json"
	"net/http"

	"github.com/beaconsms/broadcast-service/internal/repository"
	"github.com/beaconsms/broadcast-service/internal/service"
)

type HealthController struct {
	Storage    *repository.FailoverState
	Dispatcher *service.Dispatcher
}

// Health reports which storage backend is serving and the current fan-out
// depth.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          "ok",
		"storage_backend": c.Storage.Backend(),
		"sends_in_flight": c.Dispatcher.Depth(),
	})
}
