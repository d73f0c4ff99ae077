package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrStatementNotFound = errors.New("statement not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferInsufficientFunds is the transfer flavour of ErrInsufficientFunds;
	// errors.Is matches both.
	ErrTransferInsufficientFunds = fmt.Errorf("transfer: %w", ErrInsufficientFunds)
	// ErrInvalidAmount rejects amounts that are not positive or carry more than
	// two decimal places.
	ErrInvalidAmount      = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidDescription = errors.New("description is too long")
)
