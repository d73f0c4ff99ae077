package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
)

// Fold sums statements with their sign: deposits and incoming transfers add,
// withdrawals subtract. Unknown operation types contribute nothing.
func Fold(statements []models.Statement) decimal.Decimal {
	balance := decimal.Zero
	for _, s := range statements {
		switch s.Type {
		case models.OperationDeposit, models.OperationTransfer:
			balance = balance.Add(s.Amount)
		case models.OperationWithdraw:
			balance = balance.Sub(s.Amount)
		}
	}
	return balance
}
