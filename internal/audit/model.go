package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Event is a single audit log entry.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	EventID     uuid.UUID       `json:"event_id"` // idempotency key
	CompanyID   uuid.UUID       `json:"company_id"`
	ActorUserID *uuid.UUID      `json:"actor_user_id,omitempty"`
	Action      string          `json:"action"`
	TargetType  string          `json:"target_type,omitempty"`
	TargetID    string          `json:"target_id,omitempty"`
	Result      string          `json:"result"`
	ReasonCode  string          `json:"reason_code,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// spooledEvent is one JSONL line of the failover spool.
type spooledEvent struct {
	EventID   string    `json:"event_id"`
	CompanyID string    `json:"company_id"`
	Payload   Event     `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type Filter struct {
	CompanyID   uuid.UUID
	ActorUserID *uuid.UUID
	TargetID    string
	Result      string
	Limit       int
	Cursor      *time.Time
}

// Meta marshals v for Event.Metadata, dropping unmarshalable values.
func Meta(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
