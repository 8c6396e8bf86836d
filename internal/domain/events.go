package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types published through the outbox.
type EventType string

const (
	EventUserCreated      EventType = "pluto.user.created"
	EventLedgerPosted     EventType = "pluto.ledger.posted"
	EventSessionExecuted  EventType = "pluto.session.executed"
	EventSessionSettled   EventType = "pluto.session.settled"
	EventSessionCancelled EventType = "pluto.session.cancelled"
	EventSessionExpired   EventType = "pluto.session.expired"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser    AggregateType = "user"
	AggregateLedger  AggregateType = "ledger"
	AggregateSession AggregateType = "session"
)

// OutboxDraft is the payload written to the event_outbox table within the
// same transaction as the state change it describes.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewUserCreatedEvent records first-login provisioning of a user.
func NewUserCreatedEvent(u *User) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"userId":      u.ID.String(),
		"displayName": u.DisplayName,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   u.ID.String(),
		EventType:     EventUserCreated,
		PartitionKey:  u.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewSessionEvent records a session lifecycle transition. The payload carries
// the session snapshot plus the game id so downstream consumers can route
// callbacks without a catalog lookup.
func NewSessionEvent(evtType EventType, session *GameSession, gameID uuid.UUID) OutboxDraft {
	payload, _ := json.Marshal(struct {
		*GameSession
		GameID uuid.UUID `json:"gameId"`
	}{session, gameID})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateSession,
		AggregateID:   session.ID.String(),
		EventType:     evtType,
		PartitionKey:  session.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewLedgerPostedEvent records an appended ledger entry.
func NewLedgerPostedEvent(entry *LedgerEntry) OutboxDraft {
	payload, _ := json.Marshal(entry)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLedger,
		AggregateID:   entry.UserID.String(),
		EventType:     EventLedgerPosted,
		PartitionKey:  entry.UserID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
