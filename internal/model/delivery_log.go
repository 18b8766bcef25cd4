package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the lifecycle of one delivery attempt.
// Transitions only move forward: pending -> sent -> delivered on the success
// path, pending|sent -> failed on the failure path. delivered and failed are
// terminal; a retry appends a new row instead of resurrecting an old one.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// Valid reports whether s is one of the known delivery statuses.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is forward progress.
// Replayed or out-of-order events (a sent callback arriving after delivered
// was applied) come out false and are ignored by the reconciler.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s == StatusDelivered || s == StatusFailed {
		return false
	}
	switch next {
	case StatusSent:
		return s == StatusPending
	case StatusDelivered, StatusFailed:
		return s == StatusPending || s == StatusSent
	}
	return false
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// DeliveryLog is one row per delivery attempt, never mutated into a
// different attempt and never deleted. message_id and subscriber_id are nil
// only for inbound rows not tied to a broadcast. message_text is a snapshot
// of the message body at send time. telnyx_message_id is set if and only if
// the vendor accepted the send.
type DeliveryLog struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	MessageID       *uuid.UUID     `db:"message_id" json:"message_id,omitempty"`
	SubscriberID    *uuid.UUID     `db:"subscriber_id" json:"subscriber_id,omitempty"`
	Direction       Direction      `db:"direction" json:"direction"`
	Status          DeliveryStatus `db:"status" json:"status"`
	MessageText     string         `db:"message_text" json:"message_text"`
	TelnyxMessageID string         `db:"telnyx_message_id" json:"telnyx_message_id,omitempty"`
	ErrorMessage    string         `db:"error_message" json:"error_message,omitempty"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}
