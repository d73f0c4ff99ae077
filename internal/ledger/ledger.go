package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
)

// Ledger applies deposits, withdrawals and transfers to users' statement
// histories and answers balance queries. Serialization of concurrent writers is
// delegated to the store's RunInTx.
type Ledger struct {
	store interfaces.LedgerStore
}

func New(store interfaces.LedgerStore) *Ledger {
	return &Ledger{store: store}
}

// ComputeBalance folds the user's statements into a balance. When
// includeHistory is set the statements are returned oldest first.
func (l *Ledger) ComputeBalance(ctx context.Context, userID string, includeHistory bool) (models.Balance, error) {
	return computeBalance(ctx, l.store, userID, includeHistory)
}

func computeBalance(ctx context.Context, store interfaces.StatementStore, userID string, includeHistory bool) (models.Balance, error) {
	if _, err := findUser(ctx, store, userID); err != nil {
		return models.Balance{}, err
	}

	statements, err := store.ListStatementsForUser(ctx, userID)
	if err != nil {
		return models.Balance{}, err
	}

	result := models.Balance{Balance: Fold(statements)}
	if includeHistory {
		if statements == nil {
			statements = []models.Statement{}
		}
		result.Statements = statements
	}
	return result, nil
}

// Deposit appends a deposit statement for the user.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (models.Statement, error) {
	if err := validateStatement(amount, description); err != nil {
		return models.Statement{}, err
	}

	var created models.Statement
	err := l.store.RunInTx(ctx, []string{userID}, func(tx interfaces.StatementStore) error {
		if _, err := findUser(ctx, tx, userID); err != nil {
			return err
		}

		var err error
		created, err = tx.CreateStatement(ctx, models.NewStatement{
			UserID:      userID,
			Amount:      amount,
			Type:        models.OperationDeposit,
			Description: description,
		})
		return err
	})
	if err != nil {
		return models.Statement{}, err
	}
	return created, nil
}

// Withdraw appends a withdraw statement if the user's balance covers amount.
// No partial withdrawals.
func (l *Ledger) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, description string) (models.Statement, error) {
	if err := validateStatement(amount, description); err != nil {
		return models.Statement{}, err
	}

	var created models.Statement
	err := l.store.RunInTx(ctx, []string{userID}, func(tx interfaces.StatementStore) error {
		current, err := computeBalance(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		if current.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		created, err = tx.CreateStatement(ctx, models.NewStatement{
			UserID:      userID,
			Amount:      amount,
			Type:        models.OperationWithdraw,
			Description: description,
		})
		return err
	})
	if err != nil {
		return models.Statement{}, err
	}
	return created, nil
}

// Transfer moves amount from sender to destination as two statements written
// in one transaction: a withdraw on the sender and a transfer carrying the
// sender's id on the destination.
func (l *Ledger) Transfer(ctx context.Context, senderID, destinationID string, amount decimal.Decimal, description string) (models.Transfer, error) {
	if err := validateStatement(amount, description); err != nil {
		return models.Transfer{}, err
	}

	var result models.Transfer
	err := l.store.RunInTx(ctx, []string{senderID, destinationID}, func(tx interfaces.StatementStore) error {
		if _, err := findUser(ctx, tx, senderID); err != nil {
			return err
		}
		destination, err := findUser(ctx, tx, destinationID)
		if err != nil {
			return err
		}

		current, err := computeBalance(ctx, tx, senderID, false)
		if err != nil {
			return err
		}
		if current.Balance.LessThan(amount) {
			return ErrTransferInsufficientFunds
		}

		result.Withdraw, err = tx.CreateStatement(ctx, models.NewStatement{
			UserID:      senderID,
			Amount:      amount,
			Type:        models.OperationWithdraw,
			Description: clip(fmt.Sprintf("Transfered to %s", destination.Name), MaxDescriptionLength),
		})
		if err != nil {
			return err
		}

		sender := senderID
		result.Incoming, err = tx.CreateStatement(ctx, models.NewStatement{
			UserID:      destinationID,
			SenderID:    &sender,
			Amount:      amount,
			Type:        models.OperationTransfer,
			Description: description,
		})
		return err
	})
	if err != nil {
		return models.Transfer{}, err
	}
	return result, nil
}

// GetBalance returns the user's current balance without history.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	b, err := l.ComputeBalance(ctx, userID, false)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Balance, nil
}

// GetStatement returns the balance together with the full history.
func (l *Ledger) GetStatement(ctx context.Context, userID string) (models.Balance, error) {
	return l.ComputeBalance(ctx, userID, true)
}

// GetStatementOperation fetches one of the user's own statements. A statement
// owned by someone else is reported exactly like a missing one.
func (l *Ledger) GetStatementOperation(ctx context.Context, userID, statementID string) (models.Statement, error) {
	if _, err := findUser(ctx, l.store, userID); err != nil {
		return models.Statement{}, err
	}

	stmt, err := l.store.FindStatement(ctx, statementID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.Statement{}, ErrStatementNotFound
	}
	if err != nil {
		return models.Statement{}, err
	}
	if stmt.UserID != userID {
		return models.Statement{}, ErrStatementNotFound
	}
	return stmt, nil
}

func findUser(ctx context.Context, store interfaces.StatementStore, userID string) (models.User, error) {
	user, err := store.FindUserByID(ctx, userID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
