package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entities that can change in the ledger.
const (
	EntityUser    = "user"
	EntityTalent  = "talent"
	EntityExpense = "expense"
	EntityPayment = "payment"
	EntityIncome  = "income"
	EntityLedger  = "ledger"
)

const (
	ActionCreated  = "created"
	ActionPaid     = "paid"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
)

var ErrInvalidMessage = errors.New("invalid ledger changed message")

// LedgerChangedMessage tells consumers that cached reports are stale. It
// carries no record data; consumers reload the ledger.
type LedgerChangedMessage struct {
	EventID   string    `json:"eventId"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entityId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(entity string, entityID int64, action string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		EventID:   uuid.NewString(),
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) Validate() error {
	if _, err := uuid.Parse(m.EventID); err != nil {
		return fmt.Errorf("%w: event id %q", ErrInvalidMessage, m.EventID)
	}
	switch m.Entity {
	case EntityUser, EntityTalent, EntityExpense, EntityPayment, EntityIncome, EntityLedger:
	default:
		return fmt.Errorf("%w: entity %q", ErrInvalidMessage, m.Entity)
	}
	switch m.Action {
	case ActionCreated, ActionPaid, ActionDeleted, ActionImported:
	default:
		return fmt.Errorf("%w: action %q", ErrInvalidMessage, m.Action)
	}
	return nil
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
