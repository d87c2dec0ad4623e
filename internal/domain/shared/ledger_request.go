package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidLedgerOperation = errors.New("invalid ledger operation")

// LedgerOperation defines what a ledger request asks for
type LedgerOperation string

const (
	// LedgerOperationGenerate builds, reconciles and persists a customer's ledger
	LedgerOperationGenerate LedgerOperation = "GENERATE"
	// LedgerOperationReconcile reconciles an already persisted ledger
	LedgerOperationReconcile LedgerOperation = "RECONCILE"
)

// Valid reports whether the operation is known
func (o LedgerOperation) Valid() bool {
	return o == LedgerOperationGenerate || o == LedgerOperationReconcile
}

// LedgerRequest defines a Kafka message for per-customer ledger processing
type LedgerRequest struct {
	RequestID     uuid.UUID       `json:"request_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Operation     LedgerOperation `json:"operation"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewLedgerRequest creates a request for one customer
func NewLedgerRequest(customerID uuid.UUID, operation LedgerOperation, correlationID string) *LedgerRequest {
	return &LedgerRequest{
		RequestID:     uuid.New(),
		CustomerID:    customerID,
		Operation:     operation,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}
}

// Validate checks that the request can be processed
func (r *LedgerRequest) Validate() error {
	if r.CustomerID == uuid.Nil {
		return errors.New("customer id is required")
	}
	if !r.Operation.Valid() {
		return ErrInvalidLedgerOperation
	}
	return nil
}
