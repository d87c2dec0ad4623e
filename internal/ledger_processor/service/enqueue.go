package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
)

// RequestPublisher publishes one ledger request
type RequestPublisher interface {
	PublishRequest(ctx context.Context, request *shared.LedgerRequest) error
}

// RequestEnqueuer hands a batch to the ledger processor instead of running it locally
type RequestEnqueuer struct {
	customers customer.Repository
	publisher RequestPublisher
	logger    *slog.Logger
}

func NewRequestEnqueuer(customers customer.Repository, publisher RequestPublisher, logger *slog.Logger) *RequestEnqueuer {
	return &RequestEnqueuer{
		customers: customers,
		publisher: publisher,
		logger:    logger.With("component", "request_enqueuer"),
	}
}

// Enqueue publishes one op request per customer, all sharing correlationID.
// It stops at the first publish failure and returns how many were published.
func (e *RequestEnqueuer) Enqueue(ctx context.Context, op shared.LedgerOperation, correlationID string) (int, error) {
	if !op.Valid() {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidLedgerOperation, op)
	}

	customers, err := e.customers.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: listing customers: %w", loyalty.ErrDataUnavailable, err)
	}

	published := 0
	for _, c := range customers {
		request := shared.NewLedgerRequest(c.ID, op, correlationID)
		if err := e.publisher.PublishRequest(ctx, request); err != nil {
			e.logger.Error("Failed to enqueue ledger request",
				"customer_id", c.ID.String(),
				"published", published,
				"error", err,
			)
			return published, err
		}
		published++
	}

	e.logger.Info("Ledger requests enqueued",
		"operation", op,
		"published", published,
		"correlation_id", correlationID,
	)
	return published, nil
}
