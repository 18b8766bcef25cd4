package controller

import (
	"log"
	"net/http"

	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/queue"
)

type WebhookController struct {
	Queue queue.Queue
}

// HandleGatewayWebhook accepts a vendor status callback. The gateway expects
// a 200 whenever the event was durably handed off or safely dropped;
// anything else makes it retry.
func (c *WebhookController) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	ev, err := gateway.ParseWebhook(r.Body)
	if err != nil {
		log.Println("dropping malformed gateway webhook:", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := c.Queue.Publish(queue.TopicGatewayEvents, ev); err != nil {
		http.Error(w, "failed to enqueue gateway event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
