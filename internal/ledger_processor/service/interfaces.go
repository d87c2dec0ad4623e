package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
)

// LedgerService runs the per-customer ledger pipeline.
type LedgerService interface {
	// GenerateLedger loads the customer and generates its ledger.
	GenerateLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error)
	// GenerateForCustomer generates a ledger for an already loaded customer.
	GenerateForCustomer(ctx context.Context, c *customer.Customer) (*Outcome, error)
	// ReconcileLedger brings a stored ledger back in line with the customer's snapshot.
	ReconcileLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error)
}

// LedgerBuilder produces a customer's ordered ledger from its purchases
type LedgerBuilder interface {
	Build(c *customer.Customer, purchases []*customer.Purchase, rnd loyalty.RandomSource) []loyalty.Entry
}

// LedgerReconciler appends the adjustment needed to match the snapshot
type LedgerReconciler interface {
	Reconcile(c *customer.Customer, entries []loyalty.Entry) ([]loyalty.Entry, *loyalty.Entry)
}

// SourceFactory hands out an independent random source per customer
type SourceFactory func(customerID uuid.UUID) loyalty.RandomSource

// Outcome describes what a single pipeline run did for one customer
type Outcome struct {
	CustomerID uuid.UUID
	// EntriesWritten counts entries persisted by this run, adjustment included
	EntriesWritten int
	Adjustment     *loyalty.Entry
	// Skipped is set when there was nothing to do: the ledger already
	// existed for a generate run, or did not exist for a reconcile run.
	Skipped bool
}

// Adjusted reports whether a reconciliation entry was written
func (o *Outcome) Adjusted() bool {
	return o != nil && o.Adjustment != nil
}
