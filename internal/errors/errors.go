package appErrors

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError rejects bad input before any state change.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func NewValidation(reason string) error {
	return &ValidationError{Reason: reason}
}

// NoRecipientsError means a broadcast found zero active subscribers. The
// Message row created before the check is kept on purpose.
type NoRecipientsError struct {
	MessageID uuid.UUID
}

func (e *NoRecipientsError) Error() string {
	return fmt.Sprintf("no active subscribers for message %s", e.MessageID)
}

func NewNoRecipients(messageID uuid.UUID) error {
	return &NoRecipientsError{MessageID: messageID}
}

// GatewayError is a rejection from the SMS vendor for a single send.
type GatewayError struct {
	Code   string
	Detail string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Detail)
}

func NewGateway(code, detail string) error {
	return &GatewayError{Code: code, Detail: detail}
}

// RetryRefusedError guards against duplicate delivery: once any attempt for
// a (message, subscriber) pair succeeded, further retries are refused.
type RetryRefusedError struct {
	LogID  uuid.UUID
	Reason string
}

func (e *RetryRefusedError) Error() string {
	return fmt.Sprintf("retry of delivery log %s refused: %s", e.LogID, e.Reason)
}

func NewRetryRefused(logID uuid.UUID, reason string) error {
	return &RetryRefusedError{LogID: logID, Reason: reason}
}

// StorageError wraps a datastore failure so the failover layer can tell it
// apart from a plain not-found.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// DeliveryLogNotFoundError is a sentinel error
type DeliveryLogNotFoundError struct {
	LogID uuid.UUID
}

func (e *DeliveryLogNotFoundError) Error() string {
	return fmt.Sprintf("delivery log %s not found", e.LogID)
}

func NewDeliveryLogNotFound(id uuid.UUID) error {
	return &DeliveryLogNotFoundError{LogID: id}
}

// SubscriberNotFoundError is a sentinel error
type SubscriberNotFoundError struct {
	SubscriberID uuid.UUID
}

func (e *SubscriberNotFoundError) Error() string {
	return fmt.Sprintf("subscriber %s not found", e.SubscriberID)
}

func NewSubscriberNotFound(id uuid.UUID) error {
	return &SubscriberNotFoundError{SubscriberID: id}
}

// WebhookMatchError means a vendor callback referenced a message id we never
// recorded. Logged and dropped, never surfaced to the gateway.
type WebhookMatchError struct {
	VendorMessageID string
}

func (e *WebhookMatchError) Error() string {
	return fmt.Sprintf("no delivery log matches vendor message id %q", e.VendorMessageID)
}

func NewWebhookMatch(vendorMessageID string) error {
	return &WebhookMatchError{VendorMessageID: vendorMessageID}
}
