package gateway

import "context"

// SendRequest is one outbound SMS handed to the vendor.
type SendRequest struct {
	From       string
	To         string
	Text       string
	WebhookURL string
}

// SendResponse carries the vendor correlation id used to match the later
// delivery-status webhook back to our delivery log row.
type SendResponse struct {
	MessageID string
}

// Client abstracts the external SMS send operation.
type Client interface {
	Send(ctx context.Context, req SendRequest) (SendResponse, error)
}
