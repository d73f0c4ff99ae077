package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
)

var (
	// ErrNotFound is returned by stores when a user or statement is absent.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint (user email) is violated.
	ErrDuplicate = errors.New("record already exists")
	// ErrStoreUnavailable wraps infrastructure failures of the persistence layer.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StatementStore is the append-only record of monetary events per user.
type StatementStore interface {
	FindUserByID(ctx context.Context, id string) (models.User, error)
	CreateStatement(ctx context.Context, stmt models.NewStatement) (models.Statement, error)
	// ListStatementsForUser returns statements ordered by creation time ascending.
	ListStatementsForUser(ctx context.Context, userID string) ([]models.Statement, error)
	FindStatement(ctx context.Context, id string) (models.Statement, error)
}

// UserStore persists registered users.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
}

// LedgerStore is the full persistence layer.
//
// RunInTx runs fn against a transaction-bound StatementStore. While fn runs no
// other RunInTx touching any of userIDs may proceed, and the statements fn
// creates become visible together on success or not at all when fn returns an
// error.
type LedgerStore interface {
	StatementStore
	UserStore
	RunInTx(ctx context.Context, userIDs []string, fn func(tx StatementStore) error) error
}
