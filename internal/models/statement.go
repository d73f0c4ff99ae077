package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts and balances are JSON numbers on the wire.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// OperationType is the kind of monetary event a Statement records.
type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
)

// Valid reports whether t is one of the known operation types.
func (t OperationType) Valid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw, OperationTransfer:
		return true
	}
	return false
}

// Statement is an immutable monetary event owned by exactly one user.
// A transfer shows up as a withdraw on the sender and a transfer (carrying
// SenderID) on the destination.
type Statement struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	SenderID    *string         `json:"sender_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        OperationType   `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewStatement is what a ledger operation asks the store to append. The store
// assigns ID and timestamps.
type NewStatement struct {
	UserID      string
	SenderID    *string
	Amount      decimal.Decimal
	Type        OperationType
	Description string
}

// Balance is derived from a user's statements, never stored.
type Balance struct {
	Balance    decimal.Decimal `json:"balance"`
	Statements []Statement     `json:"statement"`
}

// Transfer holds the two legs written by a single transfer.
type Transfer struct {
	Withdraw Statement `json:"withdraw"`
	Incoming Statement `json:"incoming"`
}
