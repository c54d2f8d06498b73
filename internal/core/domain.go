package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StatusPending ExpenseStatus = "PENDING"
	StatusPaid    ExpenseStatus = "PAID"
)

const (
	PaymentSalary  PaymentType = "SALARY"
	PaymentExpense PaymentType = "EXPENSE"
)

type (
	ExpenseStatus string
	PaymentType   string

	Expense struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		IsRecurring bool            `json:"isRecurring"`
		IsSalary    bool            `json:"isSalary"`
		Status      ExpenseStatus   `json:"status"`
		Date        Date            `json:"date"`
		UserID      int64           `json:"userId"`
		TalentID    *int64          `json:"talentId,omitempty"`
	}

	// Payment is money actually disbursed. An EXPENSE payment points at the
	// expense it settled.
	Payment struct {
		ID          int64           `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Type        PaymentType     `json:"type"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		UserID      int64           `json:"userId"`
		ExpenseID   *int64          `json:"expenseId,omitempty"`
	}

	// Income is platform revenue booked against a talent. Only ActualValueUSD
	// takes part in reporting.
	Income struct {
		ID              int64           `json:"id"`
		TalentID        int64           `json:"talentId"`
		AccountingMonth Date            `json:"accountingMonth"`
		Platform        string          `json:"platform"`
		Currency        string          `json:"currency"`
		ReferenceValue  decimal.Decimal `json:"referenceValue"`
		ActualValue     decimal.Decimal `json:"actualValue"`
		ActualValueUSD  decimal.Decimal `json:"actualValueUSD"`
		Description     string          `json:"description"`
	}

	Talent struct {
		ID           int64           `json:"id"`
		Name         string          `json:"name"`
		ContractDate Date            `json:"contractDate"`
		AnnualBudget decimal.Decimal `json:"annualBudget"`
		ManagerID    *int64          `json:"managerId,omitempty"`
	}

	// User salary is a flat monthly figure used for cost projections only.
	User struct {
		ID     int64           `json:"id"`
		Name   string          `json:"name"`
		Salary decimal.Decimal `json:"salary"`
		Types  []string        `json:"types"`
	}

	// Ledger is one materialised snapshot of every record a report run reads.
	Ledger struct {
		Expenses []Expense `json:"expenses"`
		Payments []Payment `json:"payments"`
		Incomes  []Income  `json:"incomes"`
		Talents  []Talent  `json:"talents"`
		Users    []User    `json:"users"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyPlatform    = errors.New("empty platform")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidStatus    = errors.New("invalid expense status")
	ErrInvalidType      = errors.New("invalid payment type")
	ErrNotFirstOfMonth  = errors.New("accounting month must be the first day of a month")
)

func (s ExpenseStatus) IsValid() bool {
	return s == StatusPending || s == StatusPaid
}

func (t PaymentType) IsValid() bool {
	return t == PaymentSalary || t == PaymentExpense
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if !e.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (p Payment) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.Type.IsValid() {
		return ErrInvalidType
	}
	if p.Type == PaymentExpense && p.ExpenseID == nil {
		return errors.New("expense payment without source expense")
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.AccountingMonth.Validate(); err != nil {
		return err
	}
	if i.AccountingMonth.Day() != 1 {
		return ErrNotFirstOfMonth
	}
	if strings.TrimSpace(i.Platform) == "" {
		return ErrEmptyPlatform
	}
	if i.ActualValueUSD.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (t Talent) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if err := t.ContractDate.Validate(); err != nil {
		return errors.New("invalid contract date: " + err.Error())
	}
	if t.AnnualBudget.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if u.Salary.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks every record and reports the first failure with its id.
func (l Ledger) Validate() error {
	for _, u := range l.Users {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	for _, t := range l.Talents {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("talent %d: %w", t.ID, err)
		}
	}
	for _, e := range l.Expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %d: %w", e.ID, err)
		}
	}
	for _, p := range l.Payments {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("payment %d: %w", p.ID, err)
		}
	}
	for _, i := range l.Incomes {
		if err := i.Validate(); err != nil {
			return fmt.Errorf("income %d: %w", i.ID, err)
		}
	}
	return nil
}

// ID returns a pointer to id, for the optional foreign keys.
func ID(id int64) *int64 {
	return &id
}
