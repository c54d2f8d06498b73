package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"talentdesk/internal/core"
	"talentdesk/internal/ledger"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound    = ledger.ErrNotFound
	ErrAlreadyPaid = ledger.ErrAlreadyPaid
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LoadLedger reads every record into one snapshot, each list ordered by id.
func (r *SQLiteRepository) LoadLedger(ctx context.Context) (core.Ledger, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var l core.Ledger
	if l.Users, err = listUsers(ctx, tx); err != nil {
		return core.Ledger{}, err
	}
	if l.Talents, err = listTalents(ctx, tx); err != nil {
		return core.Ledger{}, err
	}
	if l.Expenses, err = listExpenses(ctx, tx); err != nil {
		return core.Ledger{}, err
	}
	if l.Payments, err = listPayments(ctx, tx); err != nil {
		return core.Ledger{}, err
	}
	if l.Incomes, err = listIncomes(ctx, tx); err != nil {
		return core.Ledger{}, err
	}
	return l, tx.Commit()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	id, err := insertUser(ctx, r.db, u)
	if err != nil {
		return core.User{}, err
	}
	u.ID = id
	slog.InfoContext(ctx, "User saved to SQLite", "id", id, "name", u.Name)
	return u, nil
}

func (r *SQLiteRepository) CreateTalent(ctx context.Context, t core.Talent) (core.Talent, error) {
	if err := t.Validate(); err != nil {
		return core.Talent{}, err
	}
	id, err := insertTalent(ctx, r.db, t)
	if err != nil {
		return core.Talent{}, err
	}
	t.ID = id
	slog.InfoContext(ctx, "Talent saved to SQLite", "id", id, "name", t.Name)
	return t, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.Status == "" {
		e.Status = core.StatusPending
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	id, err := insertExpense(ctx, r.db, e)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"amount", e.Amount.String(),
		"category", e.Category,
		"date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	id, err := insertIncome(ctx, r.db, in)
	if err != nil {
		return core.Income{}, err
	}
	in.ID = id
	slog.InfoContext(ctx, "Income saved to SQLite",
		"id", id,
		"talent_id", in.TalentID,
		"month", in.AccountingMonth.MonthKey(),
		"amount_usd", in.ActualValueUSD.String())
	return in, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	id, err := insertPayment(ctx, r.db, p)
	if err != nil {
		return core.Payment{}, err
	}
	p.ID = id
	slog.InfoContext(ctx, "Payment saved to SQLite", "id", id, "type", p.Type, "amount", p.Amount.String())
	return p, nil
}

// MarkExpensePaid flips a pending expense to PAID and books the EXPENSE
// payment that settles it, atomically.
func (r *SQLiteRepository) MarkExpensePaid(ctx context.Context, expenseID int64, date core.Date) (core.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	e, err := getExpense(ctx, tx, expenseID)
	if err != nil {
		return core.Payment{}, err
	}
	if e.Status == core.StatusPaid {
		return core.Payment{}, ErrAlreadyPaid
	}

	if _, err := tx.ExecContext(ctx, `UPDATE expenses SET status = ? WHERE id = ?`, core.StatusPaid, expenseID); err != nil {
		return core.Payment{}, fmt.Errorf("mark expense paid: %w", err)
	}

	p := core.Payment{
		Amount:      e.Amount,
		Type:        core.PaymentExpense,
		Description: e.Description,
		Date:        date,
		UserID:      e.UserID,
		ExpenseID:   core.ID(expenseID),
	}
	if p.Description == "" {
		p.Description = e.Category
	}
	if p.ID, err = insertPayment(ctx, tx, p); err != nil {
		return core.Payment{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Payment{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Expense marked as paid", "expense_id", expenseID, "payment_id", p.ID)
	return p, nil
}

// DeletePayment removes a payment; an EXPENSE payment puts its expense back to
// PENDING in the same transaction.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var expenseID sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT expense_id FROM payments WHERE id = ?`, id).Scan(&expenseID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get payment %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	if expenseID.Valid {
		if _, err := tx.ExecContext(ctx, `UPDATE expenses SET status = ? WHERE id = ?`, core.StatusPending, expenseID.Int64); err != nil {
			return fmt.Errorf("revert expense %d: %w", expenseID.Int64, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Payment deleted", "id", id, "reverted_expense", expenseID.Valid)
	return nil
}

// ImportLedger validates l and inserts every record with its own id in one
// transaction. Nothing is written when any record fails.
func (r *SQLiteRepository) ImportLedger(ctx context.Context, l core.Ledger) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("validate ledger: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, u := range l.Users {
		if _, err := insertUser(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, t := range l.Talents {
		if _, err := insertTalent(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, e := range l.Expenses {
		if _, err := insertExpense(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, p := range l.Payments {
		if _, err := insertPayment(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, in := range l.Incomes {
		if _, err := insertIncome(ctx, tx, in); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Ledger imported",
		"users", len(l.Users),
		"talents", len(l.Talents),
		"expenses", len(l.Expenses),
		"payments", len(l.Payments),
		"incomes", len(l.Incomes))
	return nil
}

// rowID passes 0 as NULL so SQLite assigns the id.
func rowID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullable(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return core.ID(n.Int64)
}

func insertUser(ctx context.Context, x execer, u core.User) (int64, error) {
	types := u.Types
	if types == nil {
		types = []string{}
	}
	raw, err := json.Marshal(types)
	if err != nil {
		return 0, fmt.Errorf("encode user types: %w", err)
	}
	res, err := x.ExecContext(ctx,
		`INSERT INTO users (id, name, salary, types) VALUES (?, ?, ?, ?)`,
		rowID(u.ID), u.Name, u.Salary.String(), string(raw))
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

func insertTalent(ctx context.Context, x execer, t core.Talent) (int64, error) {
	res, err := x.ExecContext(ctx,
		`INSERT INTO talents (id, name, contract_date, annual_budget, manager_id) VALUES (?, ?, ?, ?, ?)`,
		rowID(t.ID), t.Name, t.ContractDate.String(), t.AnnualBudget.String(), nullable(t.ManagerID))
	if err != nil {
		return 0, fmt.Errorf("insert talent: %w", err)
	}
	return res.LastInsertId()
}

func insertExpense(ctx context.Context, x execer, e core.Expense) (int64, error) {
	res, err := x.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, category, is_recurring, is_salary, status, date, user_id, talent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID(e.ID), e.Description, e.Amount.String(), e.Category, e.IsRecurring, e.IsSalary,
		string(e.Status), e.Date.String(), e.UserID, nullable(e.TalentID))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return res.LastInsertId()
}

func insertPayment(ctx context.Context, x execer, p core.Payment) (int64, error) {
	res, err := x.ExecContext(ctx,
		`INSERT INTO payments (id, amount, type, description, date, user_id, expense_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rowID(p.ID), p.Amount.String(), string(p.Type), p.Description, p.Date.String(), p.UserID, nullable(p.ExpenseID))
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return res.LastInsertId()
}

func insertIncome(ctx context.Context, x execer, in core.Income) (int64, error) {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	res, err := x.ExecContext(ctx,
		`INSERT INTO incomes (id, talent_id, accounting_month, platform, currency, reference_value, actual_value, actual_value_usd, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowID(in.ID), in.TalentID, in.AccountingMonth.String(), in.Platform, currency,
		in.ReferenceValue.String(), in.ActualValue.String(), in.ActualValueUSD.String(), in.Description)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	return res.LastInsertId()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDate(raw string, what string) (core.Date, error) {
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", what, err)
	}
	return d, nil
}

func scanAmount(raw string, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", what, err)
	}
	return d, nil
}

func listUsers(ctx context.Context, x execer) ([]core.User, error) {
	rows, err := x.QueryContext(ctx, `SELECT id, name, salary, types FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var (
			u             core.User
			salary, types string
		)
		if err := rows.Scan(&u.ID, &u.Name, &salary, &types); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if u.Salary, err = scanAmount(salary, "user salary"); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(types), &u.Types); err != nil {
			return nil, fmt.Errorf("decode user %d types: %w", u.ID, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func listTalents(ctx context.Context, x execer) ([]core.Talent, error) {
	rows, err := x.QueryContext(ctx, `SELECT id, name, contract_date, annual_budget, manager_id FROM talents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list talents: %w", err)
	}
	defer rows.Close()

	var out []core.Talent
	for rows.Next() {
		var (
			t                core.Talent
			contract, budget string
			manager          sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Name, &contract, &budget, &manager); err != nil {
			return nil, fmt.Errorf("scan talent: %w", err)
		}
		if t.ContractDate, err = scanDate(contract, "talent contract date"); err != nil {
			return nil, err
		}
		if t.AnnualBudget, err = scanAmount(budget, "talent annual budget"); err != nil {
			return nil, err
		}
		t.ManagerID = ptr(manager)
		out = append(out, t)
	}
	return out, rows.Err()
}

const expenseColumns = `id, description, amount, category, is_recurring, is_salary, status, date, user_id, talent_id`

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e            core.Expense
		amount, date string
		status       string
		talent       sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Description, &amount, &e.Category, &e.IsRecurring, &e.IsSalary, &status, &date, &e.UserID, &talent); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Amount, err = scanAmount(amount, "expense amount"); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = scanDate(date, "expense date"); err != nil {
		return core.Expense{}, err
	}
	e.Status = core.ExpenseStatus(status)
	e.TalentID = ptr(talent)
	return e, nil
}

func getExpense(ctx context.Context, x execer, id int64) (core.Expense, error) {
	e, err := scanExpense(x.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func listExpenses(ctx context.Context, x execer) ([]core.Expense, error) {
	rows, err := x.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func listPayments(ctx context.Context, x execer) ([]core.Payment, error) {
	rows, err := x.QueryContext(ctx, `SELECT id, amount, type, description, date, user_id, expense_id FROM payments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p                 core.Payment
			amount, typ, date string
			expense           sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &amount, &typ, &p.Description, &date, &p.UserID, &expense); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Amount, err = scanAmount(amount, "payment amount"); err != nil {
			return nil, err
		}
		if p.Date, err = scanDate(date, "payment date"); err != nil {
			return nil, err
		}
		p.Type = core.PaymentType(typ)
		p.ExpenseID = ptr(expense)
		out = append(out, p)
	}
	return out, rows.Err()
}

func listIncomes(ctx context.Context, x execer) ([]core.Income, error) {
	rows, err := x.QueryContext(ctx,
		`SELECT id, talent_id, accounting_month, platform, currency, reference_value, actual_value, actual_value_usd, description
		 FROM incomes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in                      core.Income
			month, ref, actual, usd string
		)
		if err := rows.Scan(&in.ID, &in.TalentID, &month, &in.Platform, &in.Currency, &ref, &actual, &usd, &in.Description); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.AccountingMonth, err = scanDate(month, "income accounting month"); err != nil {
			return nil, err
		}
		if in.ReferenceValue, err = scanAmount(ref, "income reference value"); err != nil {
			return nil, err
		}
		if in.ActualValue, err = scanAmount(actual, "income actual value"); err != nil {
			return nil, err
		}
		if in.ActualValueUSD, err = scanAmount(usd, "income usd value"); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
