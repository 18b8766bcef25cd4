package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one broadcast composed by an operator. Immutable after
// creation; current_active_subscribers is a snapshot stamped at send time.
type Message struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	Body                     string    `db:"body" json:"body"`
	SentAt                   time.Time `db:"sent_at" json:"sent_at"`
	CurrentActiveSubscribers int       `db:"current_active_subscribers" json:"current_active_subscribers"`
}
