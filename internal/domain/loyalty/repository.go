package loyalty

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists loyalty ledgers. Entries are write-once.
type Repository interface {
	// PersistLedger bulk-writes a customer's complete, ordered ledger.
	// Returns ErrLedgerExists if the customer already has entries.
	PersistLedger(ctx context.Context, customerID uuid.UUID, entries []Entry) error

	// Append adds a single entry to an existing ledger.
	// Returns ErrLedgerChanged if the entry's sequence is already taken.
	Append(ctx context.Context, entry *Entry) error

	// GetByCustomerID returns the customer's entries in ledger order
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Entry, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)
}
