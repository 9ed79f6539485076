package notify

import (
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the custody service.
const (
	EventParticipantRegistered = "participant.registered"
	EventEvidenceCreated       = "evidence.created"
	EventEvidenceTransferred   = "evidence.transferred"
	EventEvidenceDeactivated   = "evidence.deactivated"
	EventChainIntegrityAlarm   = "chain.integrity_alarm"
)

// Subscription represents an external system's subscription to custody events.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"` // never returned in API responses
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is dispatched to matching subscriptions.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	EventType      string    `json:"event_type"`
	StatusCode     int       `json:"status_code"`
	Attempt        int       `json:"attempt"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for creating a subscription.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Events []string `json:"events" binding:"required"`
}
