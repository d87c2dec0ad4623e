package reconcile_sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petropulse-loyalty-ledger/internal/config"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/service"
)

// BatchRunner runs one ledger operation over every customer
type BatchRunner interface {
	Run(ctx context.Context, op shared.LedgerOperation) (*service.BatchReport, error)
}

// Sweeper periodically reconciles every stored ledger against the current
// customer snapshots, so snapshot changes made after generation are picked up.
type Sweeper struct {
	runner   BatchRunner
	logger   *slog.Logger
	interval time.Duration
}

func NewSweeper(cfg *config.ReconcileConfig, runner BatchRunner, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		runner:   runner,
		logger:   logger.With("component", "reconcile_sweeper"),
		interval: cfg.Interval,
	}
}

// Start sweeps on every tick until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting reconciliation sweeper", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one reconciliation pass. Per-customer failures are logged and
// reported but do not fail the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (*service.BatchReport, error) {
	started := time.Now()

	report, err := s.runner.Run(ctx, shared.LedgerOperationReconcile)
	if report == nil {
		if err == nil {
			err = fmt.Errorf("sweep produced no report")
		}
		return nil, err
	}

	for _, f := range report.Failures {
		s.logger.Warn("Customer failed reconciliation",
			"customer_id", f.CustomerID.String(),
			"error", f.Err,
		)
	}

	s.logger.Info("Reconciliation sweep finished",
		"customers", report.CustomersProcessed,
		"adjusted", report.Adjusted,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
		"duration", time.Since(started).String(),
	)
	return report, err
}
