package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
)

// GenerationService builds, reconciles and stores loyalty ledgers
type GenerationService struct {
	customers  customer.Repository
	ledgers    loyalty.Repository
	builder    LedgerBuilder
	reconciler LedgerReconciler
	sources    SourceFactory
	logger     *slog.Logger
}

// NewGenerationService creates a ledger service over the given repositories
func NewGenerationService(
	customers customer.Repository,
	ledgers loyalty.Repository,
	builder LedgerBuilder,
	reconciler LedgerReconciler,
	sources SourceFactory,
	logger *slog.Logger,
) LedgerService {
	return &GenerationService{
		customers:  customers,
		ledgers:    ledgers,
		builder:    builder,
		reconciler: reconciler,
		sources:    sources,
		logger:     logger.With("component", "generation_service"),
	}
}

// GenerateLedger loads the customer and delegates to GenerateForCustomer.
func (s *GenerationService) GenerateLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading customer %s: %w", loyalty.ErrDataUnavailable, customerID, err)
	}
	return s.GenerateForCustomer(ctx, c)
}

// GenerateForCustomer builds, reconciles and persists the customer's ledger in
// one write. An already generated ledger is left untouched and reported as skipped.
func (s *GenerationService) GenerateForCustomer(ctx context.Context, c *customer.Customer) (*Outcome, error) {
	logger := s.logger.With("customer_id", c.ID.String())

	purchases, err := s.customers.GetPurchases(ctx, c.ID)
	if err != nil {
		logger.Error("Failed to load purchases", "error", err)
		return nil, fmt.Errorf("%w: loading purchases for %s: %w", loyalty.ErrDataUnavailable, c.ID, err)
	}

	// 1. Build from purchases plus synthetic activity
	entries := s.builder.Build(c, purchases, s.sources(c.ID))
	built := loyalty.FinalBalance(entries)

	// 2. Force the final balance onto the snapshot
	entries, adjustment := s.reconciler.Reconcile(c, entries)

	// 3. Persist the whole ledger at once
	if err := s.ledgers.PersistLedger(ctx, c.ID, entries); err != nil {
		if errors.Is(err, loyalty.ErrLedgerExists{CustomerID: c.ID}) {
			logger.Info("Ledger already exists, skipping")
			return &Outcome{CustomerID: c.ID, Skipped: true}, nil
		}
		logger.Error("Failed to persist ledger", "entries", len(entries), "error", err)
		return nil, fmt.Errorf("%w: %w", loyalty.ErrPersistenceFailure, err)
	}

	logger.Info("Ledger generated",
		"purchases", len(purchases),
		"entries", len(entries),
		"built_balance", built,
		"snapshot", c.LoyaltyPoints,
		"adjusted", adjustment != nil,
	)

	return &Outcome{
		CustomerID:     c.ID,
		EntriesWritten: len(entries),
		Adjustment:     adjustment,
	}, nil
}

// reconcileAttempts bounds how often a reconcile reloads the ledger after
// losing the next sequence to a concurrent writer.
const reconcileAttempts = 3

// ReconcileLedger appends at most one adjustment to a stored ledger. Running it
// again without a snapshot change writes nothing. When another writer appends
// first, the ledger is reloaded and the drift recomputed against it.
func (s *GenerationService) ReconcileLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	logger := s.logger.With("customer_id", customerID.String())

	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading customer %s: %w", loyalty.ErrDataUnavailable, customerID, err)
	}

	for attempt := 1; ; attempt++ {
		entries, err := s.ledgers.GetByCustomerID(ctx, customerID)
		if err != nil {
			logger.Error("Failed to load stored ledger", "error", err)
			return nil, fmt.Errorf("%w: loading ledger for %s: %w", loyalty.ErrDataUnavailable, customerID, err)
		}
		if len(entries) == 0 {
			logger.Debug("No stored ledger to reconcile")
			return &Outcome{CustomerID: customerID, Skipped: true}, nil
		}

		_, adjustment := s.reconciler.Reconcile(c, entries)
		if adjustment == nil {
			return &Outcome{CustomerID: customerID}, nil
		}

		err = s.ledgers.Append(ctx, adjustment)
		if err == nil {
			logger.Info("Stored ledger reconciled", "drift", adjustment.Points, "snapshot", c.LoyaltyPoints)
			return &Outcome{
				CustomerID:     customerID,
				EntriesWritten: 1,
				Adjustment:     adjustment,
			}, nil
		}

		if errors.Is(err, loyalty.ErrLedgerChanged) && attempt < reconcileAttempts {
			logger.Info("Ledger changed during reconcile, reloading", "attempt", attempt)
			continue
		}
		logger.Error("Failed to append reconciliation entry", "drift", adjustment.Points, "error", err)
		return nil, fmt.Errorf("%w: %w", loyalty.ErrPersistenceFailure, err)
	}
}
