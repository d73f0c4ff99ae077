package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatementCreatedType = "statement.created"

// StatementCreated is emitted once per committed statement.
type StatementCreated struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	StatementID string          `json:"statement_id"`
	UserID      string          `json:"user_id"`
	SenderID    string          `json:"sender_id,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
