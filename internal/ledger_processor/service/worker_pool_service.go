package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
)

// WorkerPoolLedgerService runs the base service on a bounded pool of workers.
// Each customer is one task, so a customer's ledger is always built by a single worker.
type WorkerPoolLedgerService struct {
	baseService LedgerService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolLedgerService(
	baseService LedgerService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolLedgerService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolLedgerService{
		baseService: baseService,
		pool:        pool,
		logger:      logger.With("component", "worker_pool"),
	}, nil
}

type result struct {
	outcome *Outcome
	err     error
}

// submit runs task on the pool and waits for it to finish
func (s *WorkerPoolLedgerService) submit(customerID uuid.UUID, task func() (*Outcome, error)) (*Outcome, error) {
	resultChan := make(chan result, 1)

	err := s.pool.Submit(func() {
		outcome, err := task()
		resultChan <- result{outcome: outcome, err: err}
	})
	if err != nil {
		s.logger.Error("Failed to submit customer to worker pool",
			"customer_id", customerID.String(),
			"error", err,
		)
		return nil, err
	}

	r := <-resultChan
	return r.outcome, r.err
}

func (s *WorkerPoolLedgerService) GenerateLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	return s.submit(customerID, func() (*Outcome, error) {
		return s.baseService.GenerateLedger(ctx, customerID)
	})
}

func (s *WorkerPoolLedgerService) GenerateForCustomer(ctx context.Context, c *customer.Customer) (*Outcome, error) {
	return s.submit(c.ID, func() (*Outcome, error) {
		return s.baseService.GenerateForCustomer(ctx, c)
	})
}

func (s *WorkerPoolLedgerService) ReconcileLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	return s.submit(customerID, func() (*Outcome, error) {
		return s.baseService.ReconcileLedger(ctx, customerID)
	})
}

// RunBatch fans the customers out over the pool and collects a report. A
// failing customer is recorded and does not stop the batch. Submission stops
// when ctx is cancelled; customers already submitted still finish.
func (s *WorkerPoolLedgerService) RunBatch(ctx context.Context, customers []*customer.Customer, op shared.LedgerOperation) (*BatchReport, error) {
	report := &BatchReport{Operation: op}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	s.logger.Info("Starting batch", "operation", op, "customers", len(customers), "workers", s.pool.Cap())

	var submitErr error
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			submitErr = err
			break
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			var (
				outcome *Outcome
				err     error
			)
			switch op {
			case shared.LedgerOperationReconcile:
				outcome, err = s.baseService.ReconcileLedger(ctx, c.ID)
			default:
				outcome, err = s.baseService.GenerateForCustomer(ctx, c)
			}

			mu.Lock()
			report.record(c.ID, outcome, err)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			submitErr = err
			s.logger.Error("Failed to submit customer to worker pool", "customer_id", c.ID.String(), "error", err)
			break
		}
	}

	wg.Wait()

	s.logger.Info("Batch finished",
		"operation", op,
		"processed", report.CustomersProcessed,
		"entries_written", report.EntriesWritten,
		"adjusted", report.Adjusted,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
	)

	return report, submitErr
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolLedgerService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolLedgerService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolLedgerService) Capacity() int {
	return s.pool.Cap()
}
