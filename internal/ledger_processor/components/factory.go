package components

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/config"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/service"
)

// GenerationPolicy maps the ledger configuration onto the builder's policy.
// Amount ranges keep their defaults; only tier bounds and the window are configurable.
func GenerationPolicy(cfg config.LedgerConfig) (loyalty.GenerationPolicy, error) {
	policy := loyalty.DefaultGenerationPolicy()
	policy.Premium = loyalty.Range{Min: cfg.PremiumMin, Max: cfg.PremiumMax}
	policy.Regular = loyalty.Range{Min: cfg.RegularMin, Max: cfg.RegularMax}
	policy.New = loyalty.Range{Min: cfg.NewMin, Max: cfg.NewMax}
	if cfg.SyntheticWindow > 0 {
		policy.Window = cfg.SyntheticWindow
	}

	if err := policy.Validate(); err != nil {
		return loyalty.GenerationPolicy{}, fmt.Errorf("invalid generation policy: %w", err)
	}
	return policy, nil
}

// SeededSources returns a per-customer source factory. Seed 0 draws a fresh
// seed, which is logged so the run can be reproduced.
func SeededSources(seed uint64, logger *slog.Logger) service.SourceFactory {
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger.Info("Using ledger random seed", "seed", seed)

	return func(customerID uuid.UUID) loyalty.RandomSource {
		return loyalty.NewSeededSource(seed, customerID)
	}
}

// CreateLedgerService creates a LedgerService with all its dependencies.
// The returned pool service must be shut down by the caller.
func CreateLedgerService(
	customerRepo customer.Repository,
	ledgerRepo loyalty.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) (*service.WorkerPoolLedgerService, error) {
	policy, err := GenerationPolicy(cfg.Ledger)
	if err != nil {
		return nil, err
	}

	baseService := service.NewGenerationService(
		customerRepo,
		ledgerRepo,
		loyalty.NewBuilder(policy, time.Now),
		loyalty.NewReconciler(time.Now),
		SeededSources(cfg.Ledger.RandomSeed, logger),
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolLedgerService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	logger.Info("Created worker pool ledger service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, nil
}
