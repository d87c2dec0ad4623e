package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/service"
	"github.com/petropulse-loyalty-ledger/internal/platform/messaging/producers"
)

// LedgerRequestHandler handles incoming ledger request messages from Kafka
type LedgerRequestHandler struct {
	ledgerService service.LedgerService
	producer      producers.DeadLetterPublisher
	logger        *slog.Logger
}

// NewLedgerRequestHandler creates a new handler. producer may be nil when the DLQ is disabled.
func NewLedgerRequestHandler(
	logger *slog.Logger,
	ledgerService service.LedgerService,
	producer producers.DeadLetterPublisher,
) *LedgerRequestHandler {
	return &LedgerRequestHandler{
		ledgerService: ledgerService,
		producer:      producer,
		logger:        logger.With("component", "ledger_request_handler"),
	}
}

// HandleMessage processes one Kafka message. A nil return commits the offset.
func (h *LedgerRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.LedgerRequest
	if err := json.Unmarshal(value, &request); err != nil {
		return h.deadLetter(ctx, h.logger, key, value, "undecodable ledger request", err)
	}
	if err := request.Validate(); err != nil {
		return h.deadLetter(ctx, h.logger, key, value, "invalid ledger request", err)
	}

	logger := h.logger.With("customer_id", request.CustomerID.String(), "operation", request.Operation)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received ledger request", "request_id", request.RequestID.String())

	var (
		outcome *service.Outcome
		err     error
	)
	switch request.Operation {
	case shared.LedgerOperationReconcile:
		outcome, err = h.ledgerService.ReconcileLedger(ctx, request.CustomerID)
	default:
		outcome, err = h.ledgerService.GenerateLedger(ctx, request.CustomerID)
	}

	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound{}) {
			return h.deadLetter(ctx, logger, key, value, "unknown customer", err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("processing %s for customer %s interrupted: %w", request.Operation, request.CustomerID, err)
		}
		logger.Error("Failed to process ledger request", "error", err)
		return h.deadLetter(ctx, logger, key, value, fmt.Sprintf("processing %s failed", request.Operation), err)
	}

	if outcome.Skipped {
		logger.Info("Ledger request was a no-op")
		return nil
	}

	logger.Info("Processed ledger request",
		"entries_written", outcome.EntriesWritten,
		"adjusted", outcome.Adjusted(),
	)
	return nil
}

// deadLetter parks a failed message on the DLQ with its cause, where it can
// be inspected and replayed. The message is acknowledged once the DLQ write
// succeeds; otherwise cause is returned and the offset is not committed.
func (h *LedgerRequestHandler) deadLetter(ctx context.Context, logger *slog.Logger, key, value []byte, reason string, cause error) error {
	logger.Error("Routing ledger request to DLQ", "reason", reason, "error", cause, "message_key", string(key))

	if h.producer == nil {
		return fmt.Errorf("%s: %w", reason, cause)
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); err != nil {
		logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("%s: %w", reason, cause)
	}

	return nil
}
