package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLedgerRequest_Validate(t *testing.T) {
	customerID := uuid.New()

	valid := NewLedgerRequest(customerID, LedgerOperationGenerate, "corr-1")
	assert.NoError(t, valid.Validate())
	assert.NotEqual(t, uuid.Nil, valid.RequestID)
	assert.Equal(t, customerID, valid.CustomerID)

	missingCustomer := NewLedgerRequest(uuid.Nil, LedgerOperationReconcile, "")
	assert.EqualError(t, missingCustomer.Validate(), "customer id is required")

	badOperation := NewLedgerRequest(customerID, LedgerOperation("DELETE"), "")
	assert.ErrorIs(t, badOperation.Validate(), ErrInvalidLedgerOperation)
}
