package services

import (
	"context"
	"fmt"

	"talentdesk/internal/amqp"
	"talentdesk/internal/core"
	"talentdesk/internal/ledger"
	applog "talentdesk/internal/log"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Invalidator drops cached reports. *ReportService satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// EventCounter counts ledger changes. *metrics.Metrics satisfies it.
type EventCounter interface {
	LedgerEvent(entity, action string)
}

// LedgerService writes to the store, then invalidates local reports and
// publishes a change event. Publishing is best effort: the write has already
// succeeded when it fails.
type LedgerService struct {
	writer      ledger.Writer
	publisher   Publisher
	invalidator Invalidator
	events      EventCounter
}

// NewLedgerService accepts nil publisher, invalidator and events.
func NewLedgerService(writer ledger.Writer, publisher Publisher, invalidator Invalidator, events EventCounter) *LedgerService {
	return &LedgerService{
		writer:      writer,
		publisher:   publisher,
		invalidator: invalidator,
		events:      events,
	}
}

func (s *LedgerService) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	out, err := s.writer.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.changed(ctx, amqp.EntityUser, out.ID, amqp.ActionCreated)
	return out, nil
}

func (s *LedgerService) CreateTalent(ctx context.Context, t core.Talent) (core.Talent, error) {
	out, err := s.writer.CreateTalent(ctx, t)
	if err != nil {
		return core.Talent{}, fmt.Errorf("create talent: %w", err)
	}
	s.changed(ctx, amqp.EntityTalent, out.ID, amqp.ActionCreated)
	return out, nil
}

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	out, err := s.writer.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.changed(ctx, amqp.EntityExpense, out.ID, amqp.ActionCreated)
	return out, nil
}

func (s *LedgerService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	out, err := s.writer.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	s.changed(ctx, amqp.EntityIncome, out.ID, amqp.ActionCreated)
	return out, nil
}

func (s *LedgerService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	out, err := s.writer.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	s.changed(ctx, amqp.EntityPayment, out.ID, amqp.ActionCreated)
	return out, nil
}

// MarkExpensePaid settles an expense and records its EXPENSE payment.
func (s *LedgerService) MarkExpensePaid(ctx context.Context, expenseID int64, date core.Date) (core.Payment, error) {
	p, err := s.writer.MarkExpensePaid(ctx, expenseID, date)
	if err != nil {
		return core.Payment{}, fmt.Errorf("mark expense %d paid: %w", expenseID, err)
	}
	s.changed(ctx, amqp.EntityExpense, expenseID, amqp.ActionPaid)
	return p, nil
}

// DeletePayment removes a payment; an expense it settled goes back to PENDING.
func (s *LedgerService) DeletePayment(ctx context.Context, id int64) error {
	if err := s.writer.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	s.changed(ctx, amqp.EntityPayment, id, amqp.ActionDeleted)
	return nil
}

// ImportLedger writes every record of l or none of them.
func (s *LedgerService) ImportLedger(ctx context.Context, l core.Ledger) error {
	if err := s.writer.ImportLedger(ctx, l); err != nil {
		return fmt.Errorf("import ledger: %w", err)
	}
	s.changed(ctx, amqp.EntityLedger, 0, amqp.ActionImported)
	return nil
}

func (s *LedgerService) changed(ctx context.Context, entity string, id int64, action string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.events != nil {
		s.events.LedgerEvent(entity, action)
	}

	msg := amqp.NewLedgerChangedMessage(entity, id, action)
	logger := applog.FromContext(ctx)
	applog.NewStructuredLogger(logger).LogLedgerChange(ctx, msg.EventID, entity, id, action)

	if s.publisher == nil {
		logger.DebugContext(ctx, "AMQP publisher not configured, skipping ledger changed message",
			applog.FieldComponent, applog.ComponentLedger)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		applog.NewStructuredLogger(logger).LogError(ctx, "Failed to publish ledger changed message", err,
			applog.ComponentLedger, applog.OpPublish,
			applog.NewFields().WithLedgerChange(msg.EventID, entity, id, action))
	}
}
