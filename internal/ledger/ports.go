// Package ledger defines the ports report runs read snapshots from and
// ledger writers go through.
package ledger

import (
	"context"
	"errors"

	"talentdesk/internal/core"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrAlreadyPaid = errors.New("expense already paid")
)

type (
	// Source materialises one consistent snapshot of every ledger.
	Source interface {
		LoadLedger(ctx context.Context) (core.Ledger, error)
	}

	Writer interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		CreateTalent(ctx context.Context, t core.Talent) (core.Talent, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
		CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		// MarkExpensePaid sets the expense PAID and books its EXPENSE payment.
		MarkExpensePaid(ctx context.Context, expenseID int64, date core.Date) (core.Payment, error)
		// DeletePayment removes a payment and reverts its expense to PENDING.
		DeletePayment(ctx context.Context, id int64) error
		ImportLedger(ctx context.Context, l core.Ledger) error
	}

	Store interface {
		Source
		Writer
	}
)
