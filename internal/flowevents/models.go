package flowevents

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type names a purchase flow transition
type Type string

const (
	TypeSelected         Type = "purchase.selected"
	TypeConfirmed        Type = "purchase.confirmed"
	TypeConfirmFailed    Type = "purchase.confirm_failed"
	TypeCompletedFree    Type = "purchase.completed_free"
	TypePaymentRequested Type = "purchase.payment_requested"
	TypeApproved         Type = "purchase.gateway_approved"
	TypeDeclined         Type = "purchase.gateway_declined"
	TypeCancelled        Type = "purchase.cancelled"
	TypeVerified         Type = "purchase.verified"
	TypeUnconfirmed      Type = "purchase.unconfirmed"
)

// Event is one flow transition as published.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	FlowID     string                 `json:"flow_id"`
	EventID    int                    `json:"event_id"`
	Step       string                 `json:"step"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// New creates an event with a fresh id.
func New(t Type, flowID string, eventID int, step string, at time.Time) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       t,
		FlowID:     flowID,
		EventID:    eventID,
		Step:       step,
		OccurredAt: at,
	}
}

// With attaches a data field and returns the event
func (e *Event) With(key string, value interface{}) *Event {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// ToJSON serializes the event
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps every event of one flow on one partition, in order.
func (e *Event) PartitionKey() string {
	if e.FlowID != "" {
		return e.FlowID
	}
	return strconv.Itoa(e.EventID)
}
