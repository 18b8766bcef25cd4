package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SubscriberStatus string

const (
	SubscriberActive   SubscriberStatus = "active"
	SubscriberInactive SubscriberStatus = "inactive"
	SubscriberBlocked  SubscriberStatus = "blocked"
)

// Valid reports whether s is one of the known subscriber statuses.
func (s SubscriberStatus) Valid() bool {
	switch s {
	case SubscriberActive, SubscriberInactive, SubscriberBlocked:
		return true
	}
	return false
}

// Subscriber is an opt-in recipient. phone_number is the natural key:
// re-adding an existing number reactivates the row instead of duplicating.
type Subscriber struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	PhoneNumber string           `db:"phone_number" json:"phone_number"`
	Name        string           `db:"name" json:"name,omitempty"`
	Status      SubscriberStatus `db:"status" json:"status"`
	JoinedAt    time.Time        `db:"joined_at" json:"joined_at"`
}

// NormalizePhone strips formatting characters and validates the result as an
// E.164 number (leading +, 8-15 digits).
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting noise, dropped
		default:
			return "", fmt.Errorf("invalid character %q in phone number", r)
		}
	}
	phone := b.String()
	if !strings.HasPrefix(phone, "+") {
		return "", fmt.Errorf("phone number must start with +")
	}
	digits := len(phone) - 1
	if digits < 8 || digits > 15 {
		return "", fmt.Errorf("phone number must have 8-15 digits, got %d", digits)
	}
	return phone, nil
}
