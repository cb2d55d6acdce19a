package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// Message stores history entries for reliable publishing to the history
// log. Both legs of a transfer share one message so the pair is published
// together.
type Message struct {
	ID            int64               `json:"id"`
	ReferenceID   uuid.UUID           `json:"reference_id"`
	UserID        uuid.UUID           `json:"user_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(referenceID uuid.UUID, userID uuid.UUID, entries []*history.Entry) (*Message, error) {
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}

	return &Message{
		ReferenceID: referenceID,
		UserID:      userID,
		Payload:     payload,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Entries extracts the history entries from the payload
func (m *Message) Entries() ([]*history.Entry, error) {
	var entries []*history.Entry
	if err := json.Unmarshal(m.Payload, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
