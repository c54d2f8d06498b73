package backend

import (
	"context"

	"talentdesk/internal/amqp"
	"talentdesk/internal/ledger"
)

// Backend is the ledger store every binary reads reports from.
type Backend = ledger.Store

// Publisher announces ledger changes. Nil when AMQP is not configured.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend   Backend
	Publisher Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
