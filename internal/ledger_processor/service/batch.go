package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
)

// CustomerFailure records one customer the batch could not process
type CustomerFailure struct {
	CustomerID uuid.UUID
	Err        error
}

// BatchReport summarises a batch run over all customers
type BatchReport struct {
	Operation          shared.LedgerOperation
	CustomersProcessed int
	EntriesWritten     int
	Adjusted           int
	Skipped            int
	Failures           []CustomerFailure
}

func (r *BatchReport) record(customerID uuid.UUID, outcome *Outcome, err error) {
	r.CustomersProcessed++
	if err != nil {
		r.Failures = append(r.Failures, CustomerFailure{CustomerID: customerID, Err: err})
		return
	}
	if outcome == nil {
		return
	}
	if outcome.Skipped {
		r.Skipped++
		return
	}
	r.EntriesWritten += outcome.EntriesWritten
	if outcome.Adjusted() {
		r.Adjusted++
	}
}

// Failed reports whether any customer failed
func (r *BatchReport) Failed() bool {
	return len(r.Failures) > 0
}

// BatchExecutor runs one operation over a set of customers
type BatchExecutor interface {
	RunBatch(ctx context.Context, customers []*customer.Customer, op shared.LedgerOperation) (*BatchReport, error)
}

// BatchRunner loads every customer and hands them to the executor
type BatchRunner struct {
	customers customer.Repository
	executor  BatchExecutor
	logger    *slog.Logger
}

func NewBatchRunner(customers customer.Repository, executor BatchExecutor, logger *slog.Logger) *BatchRunner {
	return &BatchRunner{
		customers: customers,
		executor:  executor,
		logger:    logger.With("component", "batch_runner"),
	}
}

// Run processes all customers with op. Failing to list customers aborts the
// run; per-customer failures end up in the report.
func (r *BatchRunner) Run(ctx context.Context, op shared.LedgerOperation) (*BatchReport, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidLedgerOperation, op)
	}

	customers, err := r.customers.List(ctx)
	if err != nil {
		r.logger.Error("Failed to list customers", "error", err)
		return nil, fmt.Errorf("%w: listing customers: %w", loyalty.ErrDataUnavailable, err)
	}

	if len(customers) == 0 {
		r.logger.Info("No customers to process", "operation", op)
		return &BatchReport{Operation: op}, nil
	}

	return r.executor.RunBatch(ctx, customers, op)
}
