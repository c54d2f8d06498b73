package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateKeys(t *testing.T) {
	d := NewDate(2025, 3, 9)
	if d.MonthKey() != "2025-03" {
		t.Errorf("MonthKey() = %q", d.MonthKey())
	}
	if d.YearKey() != "2025" {
		t.Errorf("YearKey() = %q", d.YearKey())
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 6, 10))
	if err != nil || string(b) != `"2025-06-10"` {
		t.Fatalf("marshal = %s, %v", b, err)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-15"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.Equal(NewDate(2024, 3, 15).Time) {
		t.Fatalf("unmarshal = %v", d)
	}

	if err := json.Unmarshal([]byte(`"2024-03-15T22:10:00Z"`), &d); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if d.String() != "2024-03-15" {
		t.Fatalf("timestamp day = %s", d)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Description: "flight",
		Amount:      decimal.NewFromInt(100),
		Category:    "Travel",
		Status:      StatusPending,
		Date:        NewDate(2025, 6, 10),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []func(e *Expense){
		func(e *Expense) { e.Date = Date{} },
		func(e *Expense) { e.Description = " " },
		func(e *Expense) { e.Amount = decimal.Zero },
		func(e *Expense) { e.Category = "" },
		func(e *Expense) { e.Status = "LOST" },
	}
	for i, mutate := range bads {
		e := good
		mutate(&e)
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentValidate(t *testing.T) {
	p := Payment{Amount: decimal.NewFromInt(10), Type: PaymentExpense, Date: NewDate(2025, 1, 2)}
	if err := p.Validate(); err == nil {
		t.Fatal("expense payment without expense id should fail")
	}
	p.ExpenseID = ID(4)
	if err := p.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	p.Type = "BONUS"
	if err := p.Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestIncomeValidate(t *testing.T) {
	in := Income{AccountingMonth: NewDate(2025, 6, 1), Platform: "YouTube", ActualValueUSD: decimal.NewFromInt(5)}
	if err := in.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	in.AccountingMonth = NewDate(2025, 6, 2)
	if err := in.Validate(); !errors.Is(err, ErrNotFirstOfMonth) {
		t.Fatalf("expected ErrNotFirstOfMonth, got %v", err)
	}
}

func TestLedgerValidateNamesRecord(t *testing.T) {
	l := Ledger{Users: []User{{ID: 7, Name: ""}}}
	err := l.Validate()
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err.Error() != "user 7: empty name" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
