package loyalty

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrDataUnavailable marks failures to read customers or purchases
	ErrDataUnavailable = errors.New("ledger source data unavailable")
	// ErrPersistenceFailure marks failures to write a customer's ledger
	ErrPersistenceFailure = errors.New("ledger persistence failed")
	// ErrLedgerChanged marks an append that lost a race for the next sequence
	ErrLedgerChanged = errors.New("ledger changed by a concurrent writer")
)

// ErrLedgerExists indicates the customer already has persisted ledger entries
type ErrLedgerExists struct {
	CustomerID uuid.UUID
}

func (e ErrLedgerExists) Error() string {
	return "loyalty ledger already exists for customer: " + e.CustomerID.String()
}

// Is implements the errors.Is interface for ErrLedgerExists
func (e ErrLedgerExists) Is(target error) bool {
	t, ok := target.(ErrLedgerExists)
	if !ok {
		return false
	}
	// A target without a customer ID matches any ErrLedgerExists
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}
