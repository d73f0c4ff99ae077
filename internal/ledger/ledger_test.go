package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/ledger"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/storage/memory"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, amount(want).Equal(got), "want %s, got %s", want, got)
}

func newUser(t *testing.T, store interfaces.UserStore, name string) models.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return user
}

func balanceOf(t *testing.T, l *ledger.Ledger, userID string) decimal.Decimal {
	t.Helper()
	b, err := l.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func TestDepositsAndWithdrawal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")

	_, err := l.Deposit(ctx, a.ID, amount("100"), "salary")
	require.NoError(t, err)
	_, err = l.Deposit(ctx, a.ID, amount("70"), "refund")
	require.NoError(t, err)
	w, err := l.Withdraw(ctx, a.ID, amount("25"), "groceries")
	require.NoError(t, err)

	assert.Equal(t, models.OperationWithdraw, w.Type)
	assert.Equal(t, a.ID, w.UserID)
	assert.NotEmpty(t, w.ID)
	assert.False(t, w.CreatedAt.IsZero())
	assertAmount(t, "145", balanceOf(t, l, a.ID))
}

func TestDepositReturnsCreatedStatement(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")

	stmt, err := l.Deposit(ctx, a.ID, amount("12.50"), "cash")
	require.NoError(t, err)

	assert.Equal(t, models.OperationDeposit, stmt.Type)
	assert.Equal(t, "cash", stmt.Description)
	assert.Nil(t, stmt.SenderID)
	assertAmount(t, "12.5", stmt.Amount)

	found, err := store.FindStatement(ctx, stmt.ID)
	require.NoError(t, err)
	assert.Equal(t, stmt.ID, found.ID)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	b := newUser(t, store, "bob")

	_, err := l.Deposit(ctx, a.ID, amount("1000"), "")
	require.NoError(t, err)
	_, err = l.Deposit(ctx, b.ID, amount("1000"), "")
	require.NoError(t, err)

	result, err := l.Transfer(ctx, a.ID, b.ID, amount("500"), "PIX")
	require.NoError(t, err)

	assertAmount(t, "500", balanceOf(t, l, a.ID))
	assertAmount(t, "1500", balanceOf(t, l, b.ID))

	assert.Equal(t, models.OperationWithdraw, result.Withdraw.Type)
	assert.Equal(t, a.ID, result.Withdraw.UserID)
	assert.Equal(t, "Transfered to bob", result.Withdraw.Description)
	assert.Nil(t, result.Withdraw.SenderID)

	history, err := l.GetStatement(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history.Statements, 2)
	incoming := history.Statements[1]
	assert.Equal(t, models.OperationTransfer, incoming.Type)
	assert.Equal(t, "PIX", incoming.Description)
	require.NotNil(t, incoming.SenderID)
	assert.Equal(t, a.ID, *incoming.SenderID)
	assert.Equal(t, result.Incoming.ID, incoming.ID)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")

	_, err := l.Withdraw(ctx, a.ID, amount("100"), "rent")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assertAmount(t, "0", balanceOf(t, l, a.ID))

	_, err = l.Deposit(ctx, a.ID, amount("99.99"), "")
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, a.ID, amount("100"), "rent")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assertAmount(t, "99.99", balanceOf(t, l, a.ID))

	_, err = l.Withdraw(ctx, a.ID, amount("99.99"), "everything")
	require.NoError(t, err)
	assertAmount(t, "0", balanceOf(t, l, a.ID))
}

func TestTransferErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	b := newUser(t, store, "bob")
	_, err := l.Deposit(ctx, a.ID, amount("200"), "")
	require.NoError(t, err)

	tests := []struct {
		name        string
		sender      string
		destination string
		amount      string
		wantErr     error
	}{
		{name: "unknown sender", sender: uuid.NewString(), destination: b.ID, amount: "10", wantErr: ledger.ErrUserNotFound},
		{name: "unknown destination", sender: a.ID, destination: uuid.NewString(), amount: "10", wantErr: ledger.ErrUserNotFound},
		{name: "both unknown", sender: uuid.NewString(), destination: uuid.NewString(), amount: "10", wantErr: ledger.ErrUserNotFound},
		{name: "out of funds", sender: a.ID, destination: b.ID, amount: "300", wantErr: ledger.ErrTransferInsufficientFunds},
		{name: "zero amount", sender: a.ID, destination: b.ID, amount: "0", wantErr: ledger.ErrInvalidAmount},
		{name: "negative amount", sender: a.ID, destination: b.ID, amount: "-5", wantErr: ledger.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Transfer(ctx, tt.sender, tt.destination, amount(tt.amount), "Payment")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assertAmount(t, "200", balanceOf(t, l, a.ID))
	assertAmount(t, "0", balanceOf(t, l, b.ID))
}

func TestTransferInsufficientFundsMatchesWithdrawError(t *testing.T) {
	assert.True(t, errors.Is(ledger.ErrTransferInsufficientFunds, ledger.ErrInsufficientFunds))
	assert.NotEqual(t, ledger.ErrTransferInsufficientFunds.Error(), ledger.ErrInsufficientFunds.Error())
}

func TestSelfTransferIsNetZero(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	_, err := l.Deposit(ctx, a.ID, amount("50"), "")
	require.NoError(t, err)

	_, err = l.Transfer(ctx, a.ID, a.ID, amount("50"), "to myself")
	require.NoError(t, err)
	assertAmount(t, "50", balanceOf(t, l, a.ID))

	_, err = l.Transfer(ctx, a.ID, a.ID, amount("51"), "to myself")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestUnknownUser(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(memory.NewMemoryLedgerStore())
	ghost := uuid.NewString()

	_, err := l.Deposit(ctx, ghost, amount("1"), "")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = l.Withdraw(ctx, ghost, amount("1"), "")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = l.GetBalance(ctx, ghost)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = l.GetStatement(ctx, ghost)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = l.GetStatementOperation(ctx, ghost, uuid.NewString())
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestInvalidAmountIsRejectedBeforeTouchingStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")

	_, err := l.Deposit(ctx, a.ID, decimal.Zero, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = l.Withdraw(ctx, a.ID, amount("-1"), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	history, err := l.GetStatement(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, history.Statements)
}

func TestStatementInputRules(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	b := newUser(t, store, "bob")
	_, err := l.Deposit(ctx, a.ID, amount("100"), "")
	require.NoError(t, err)

	tests := []struct {
		name        string
		amount      string
		description string
		wantErr     error
	}{
		{name: "two decimals", amount: "0.01", wantErr: nil},
		{name: "trailing zeros are fine", amount: "1.500", wantErr: nil},
		{name: "three decimals", amount: "0.005", wantErr: ledger.ErrInvalidAmount},
		{name: "rounds to zero", amount: "0.001", wantErr: ledger.ErrInvalidAmount},
		{name: "description at limit", amount: "1", description: strings.Repeat("é", ledger.MaxDescriptionLength), wantErr: nil},
		{name: "description over limit", amount: "1", description: strings.Repeat("a", ledger.MaxDescriptionLength+1), wantErr: ledger.ErrInvalidDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := balanceOf(t, l, a.ID)

			_, depositErr := l.Deposit(ctx, a.ID, amount(tt.amount), tt.description)
			_, withdrawErr := l.Withdraw(ctx, a.ID, amount(tt.amount), tt.description)
			_, transferErr := l.Transfer(ctx, a.ID, b.ID, amount(tt.amount), tt.description)

			if tt.wantErr == nil {
				require.NoError(t, depositErr)
				require.NoError(t, withdrawErr)
				require.NoError(t, transferErr)
				assertAmount(t, before.Sub(amount(tt.amount)).String(), balanceOf(t, l, a.ID))
				return
			}
			assert.ErrorIs(t, depositErr, tt.wantErr)
			assert.ErrorIs(t, withdrawErr, tt.wantErr)
			assert.ErrorIs(t, transferErr, tt.wantErr)
			assertAmount(t, before.String(), balanceOf(t, l, a.ID))
		})
	}
}

func TestTransferDescriptionFitsForLongNames(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	long, err := store.CreateUser(ctx, models.User{
		Name:  strings.Repeat("n", ledger.MaxDescriptionLength),
		Email: "long@example.com",
	})
	require.NoError(t, err)
	_, err = l.Deposit(ctx, a.ID, amount("10"), "")
	require.NoError(t, err)

	result, err := l.Transfer(ctx, a.ID, long.ID, amount("1"), "")
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxDescriptionLength, utf8.RuneCountInString(result.Withdraw.Description))
	assert.True(t, strings.HasPrefix(result.Withdraw.Description, "Transfered to nnn"))
}

func TestGetStatementOperationOwnership(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	b := newUser(t, store, "bob")

	own, err := l.Deposit(ctx, a.ID, amount("10"), "mine")
	require.NoError(t, err)
	foreign, err := l.Deposit(ctx, b.ID, amount("10"), "theirs")
	require.NoError(t, err)

	got, err := l.GetStatementOperation(ctx, a.ID, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own, got)

	_, err = l.GetStatementOperation(ctx, a.ID, foreign.ID)
	assert.ErrorIs(t, err, ledger.ErrStatementNotFound)

	_, err = l.GetStatementOperation(ctx, a.ID, uuid.NewString())
	assert.ErrorIs(t, err, ledger.ErrStatementNotFound)
}

func TestComputeBalanceHistoryIsOrdered(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")

	for _, v := range []string{"5", "10", "15"} {
		_, err := l.Deposit(ctx, a.ID, amount(v), v)
		require.NoError(t, err)
	}

	withHistory, err := l.ComputeBalance(ctx, a.ID, true)
	require.NoError(t, err)
	require.Len(t, withHistory.Statements, 3)
	for i, want := range []string{"5", "10", "15"} {
		assert.Equal(t, want, withHistory.Statements[i].Description)
	}
	for i := 1; i < len(withHistory.Statements); i++ {
		assert.False(t, withHistory.Statements[i].CreatedAt.Before(withHistory.Statements[i-1].CreatedAt))
	}

	withoutHistory, err := l.ComputeBalance(ctx, a.ID, false)
	require.NoError(t, err)
	assert.Nil(t, withoutHistory.Statements)
	assertAmount(t, "30", withoutHistory.Balance)
}

func TestFreshUserHasEmptyHistory(t *testing.T) {
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")

	history, err := l.GetStatement(context.Background(), a.ID)
	require.NoError(t, err)
	assert.NotNil(t, history.Statements)
	assert.Empty(t, history.Statements)
	assertAmount(t, "0", history.Balance)
}

func TestGetBalanceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	_, err := l.Deposit(ctx, a.ID, amount("42"), "")
	require.NoError(t, err)

	first := balanceOf(t, l, a.ID)
	second := balanceOf(t, l, a.ID)
	assert.True(t, first.Equal(second))
}

func TestBalanceEqualsDepositsMinusWithdrawals(t *testing.T) {
	tests := []struct {
		name        string
		deposits    []string
		withdrawals []string
		want        string
	}{
		{name: "deposits only", deposits: []string{"1", "2", "3"}, want: "6"},
		{name: "exact drain", deposits: []string{"10"}, withdrawals: []string{"4", "6"}, want: "0"},
		{name: "cents", deposits: []string{"0.10", "0.20"}, withdrawals: []string{"0.05"}, want: "0.25"},
		{name: "large", deposits: []string{"1000000", "2500000.75"}, withdrawals: []string{"0.75"}, want: "3500000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewMemoryLedgerStore()
			l := ledger.New(store)
			u := newUser(t, store, "user")

			for _, d := range tt.deposits {
				_, err := l.Deposit(ctx, u.ID, amount(d), "")
				require.NoError(t, err)
			}
			for _, w := range tt.withdrawals {
				_, err := l.Withdraw(ctx, u.ID, amount(w), "")
				require.NoError(t, err)
			}
			assertAmount(t, tt.want, balanceOf(t, l, u.ID))
		})
	}
}

// failingStore makes the nth CreateStatement inside a transaction fail.
type failingStore struct {
	*memory.MemoryLedgerStore
	failOn int
}

var errDiskFull = fmt.Errorf("%w: disk full", interfaces.ErrStoreUnavailable)

func (f *failingStore) RunInTx(ctx context.Context, userIDs []string, fn func(tx interfaces.StatementStore) error) error {
	return f.MemoryLedgerStore.RunInTx(ctx, userIDs, func(tx interfaces.StatementStore) error {
		return fn(&failingTx{StatementStore: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	interfaces.StatementStore
	failOn int
	calls  int
}

func (t *failingTx) CreateStatement(ctx context.Context, stmt models.NewStatement) (models.Statement, error) {
	t.calls++
	if t.calls == t.failOn {
		return models.Statement{}, errDiskFull
	}
	return t.StatementStore.CreateStatement(ctx, stmt)
}

func TestTransferIsAtomicWhenSecondLegFails(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewMemoryLedgerStore()
	a := newUser(t, mem, "alice")
	b := newUser(t, mem, "bob")
	_, err := ledger.New(mem).Deposit(ctx, a.ID, amount("100"), "")
	require.NoError(t, err)

	l := ledger.New(&failingStore{MemoryLedgerStore: mem, failOn: 2})
	_, err = l.Transfer(ctx, a.ID, b.ID, amount("60"), "rent")
	require.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
	assert.Equal(t, errDiskFull, err)

	assertAmount(t, "100", balanceOf(t, l, a.ID))
	assertAmount(t, "0", balanceOf(t, l, b.ID))

	history, err := l.GetStatement(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, history.Statements, 1)
}

func TestConcurrentWithdrawalsOnlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	_, err := l.Deposit(ctx, a.ID, amount("100"), "")
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Withdraw(ctx, a.ID, amount("100"), "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ledger.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assertAmount(t, "0", balanceOf(t, l, a.ID))
}

func TestConcurrentCrossingTransfersConserveMoney(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := ledger.New(store)
	a := newUser(t, store, "alice")
	b := newUser(t, store, "bob")
	for _, u := range []models.User{a, b} {
		_, err := l.Deposit(ctx, u.ID, amount("100"), "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.Transfer(ctx, a.ID, b.ID, amount("30"), "a->b")
			if err != nil && !errors.Is(err, ledger.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := l.Transfer(ctx, b.ID, a.ID, amount("30"), "b->a")
			if err != nil && !errors.Is(err, ledger.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	balanceA := balanceOf(t, l, a.ID)
	balanceB := balanceOf(t, l, b.ID)
	assert.False(t, balanceA.IsNegative())
	assert.False(t, balanceB.IsNegative())
	assertAmount(t, "200", balanceA.Add(balanceB))
}
