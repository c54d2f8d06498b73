// Package memory keeps a ledger in process, optionally seeded from a JSON
// fixture file. It backs local development and handler tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"talentdesk/internal/core"
	"talentdesk/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu sync.Mutex
	l  core.Ledger
}

// New copies l so later writes never alias the caller's slices.
func New(l core.Ledger) *Store {
	return &Store{l: clone(l)}
}

// NewFromFile seeds the store from a JSON ledger. A missing file yields an
// empty store; a malformed or invalid one is an error.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(core.Ledger{}), nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(core.Ledger{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	l, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(l), nil
}

// Decode parses and validates a JSON ledger.
func Decode(raw []byte) (core.Ledger, error) {
	var l core.Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return core.Ledger{}, fmt.Errorf("decode ledger: %w", err)
	}
	for i := range l.Expenses {
		if l.Expenses[i].Status == "" {
			l.Expenses[i].Status = core.StatusPending
		}
	}
	if err := l.Validate(); err != nil {
		return core.Ledger{}, err
	}
	return l, nil
}

func (s *Store) LoadLedger(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.l), nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = nextID(s.l.Users, func(u core.User) int64 { return u.ID })
	u.Types = append([]string(nil), u.Types...)
	s.l.Users = append(s.l.Users, u)
	return u, nil
}

func (s *Store) CreateTalent(_ context.Context, t core.Talent) (core.Talent, error) {
	if err := t.Validate(); err != nil {
		return core.Talent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = nextID(s.l.Talents, func(t core.Talent) int64 { return t.ID })
	s.l.Talents = append(s.l.Talents, t)
	return t, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if e.Status == "" {
		e.Status = core.StatusPending
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = nextID(s.l.Expenses, func(e core.Expense) int64 { return e.ID })
	s.l.Expenses = append(s.l.Expenses, e)
	return e, nil
}

func (s *Store) CreateIncome(_ context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = nextID(s.l.Incomes, func(in core.Income) int64 { return in.ID })
	s.l.Incomes = append(s.l.Incomes, in)
	return in, nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = nextID(s.l.Payments, func(p core.Payment) int64 { return p.ID })
	s.l.Payments = append(s.l.Payments, p)
	return p, nil
}

func (s *Store) MarkExpensePaid(_ context.Context, expenseID int64, date core.Date) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.expenseIndex(expenseID)
	if i < 0 {
		return core.Payment{}, ledger.ErrNotFound
	}
	e := &s.l.Expenses[i]
	if e.Status == core.StatusPaid {
		return core.Payment{}, ledger.ErrAlreadyPaid
	}

	p := core.Payment{
		ID:          nextID(s.l.Payments, func(p core.Payment) int64 { return p.ID }),
		Amount:      e.Amount,
		Type:        core.PaymentExpense,
		Description: e.Description,
		Date:        date,
		UserID:      e.UserID,
		ExpenseID:   core.ID(expenseID),
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	e.Status = core.StatusPaid
	s.l.Payments = append(s.l.Payments, p)
	return p, nil
}

func (s *Store) DeletePayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.l.Payments {
		if p.ID != id {
			continue
		}
		s.l.Payments = append(s.l.Payments[:i:i], s.l.Payments[i+1:]...)
		if p.ExpenseID != nil {
			if j := s.expenseIndex(*p.ExpenseID); j >= 0 {
				s.l.Expenses[j].Status = core.StatusPending
			}
		}
		return nil
	}
	return ledger.ErrNotFound
}

// ImportLedger appends every record of l, keeping their ids.
func (s *Store) ImportLedger(_ context.Context, l core.Ledger) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("validate ledger: %w", err)
	}
	in := clone(l)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.l.Users = append(s.l.Users, in.Users...)
	s.l.Talents = append(s.l.Talents, in.Talents...)
	s.l.Expenses = append(s.l.Expenses, in.Expenses...)
	s.l.Payments = append(s.l.Payments, in.Payments...)
	s.l.Incomes = append(s.l.Incomes, in.Incomes...)
	return nil
}

func (s *Store) expenseIndex(id int64) int {
	for i, e := range s.l.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func nextID[T any](records []T, id func(T) int64) int64 {
	var highest int64
	for _, r := range records {
		if v := id(r); v > highest {
			highest = v
		}
	}
	return highest + 1
}

// clone copies every slice of l, including user types, so a snapshot never
// shares backing arrays with the store.
func clone(l core.Ledger) core.Ledger {
	out := core.Ledger{
		Expenses: append([]core.Expense(nil), l.Expenses...),
		Payments: append([]core.Payment(nil), l.Payments...),
		Incomes:  append([]core.Income(nil), l.Incomes...),
		Talents:  append([]core.Talent(nil), l.Talents...),
		Users:    append([]core.User(nil), l.Users...),
	}
	for i := range out.Users {
		out.Users[i].Types = append([]string(nil), out.Users[i].Types...)
	}
	return out
}
