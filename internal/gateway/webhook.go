package gateway

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event types we receive from the vendor. Only message.finalized advances a
// delivery log; message.received records an inbound reply; everything else
// is acknowledged and ignored.
const (
	EventMessageFinalized = "message.finalized"
	EventMessageReceived  = "message.received"
)

// WebhookEvent is the vendor's callback envelope.
type WebhookEvent struct {
	Data WebhookData `json:"data"`
}

type WebhookData struct {
	EventType string         `json:"event_type"`
	Payload   WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	ID             string `json:"id"`
	To             string `json:"to"`
	From           string `json:"from,omitempty"`
	Text           string `json:"text,omitempty"`
	DeliveryStatus string `json:"delivery_status,omitempty"`
}

// ParseWebhook decodes a vendor callback body.
func ParseWebhook(r io.Reader) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return WebhookEvent{}, fmt.Errorf("invalid webhook body: %w", err)
	}
	if ev.Data.EventType == "" {
		return WebhookEvent{}, fmt.Errorf("webhook body missing event_type")
	}
	return ev, nil
}
