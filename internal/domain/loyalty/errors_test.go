package loyalty

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrLedgerExists_Is(t *testing.T) {
	id := uuid.New()
	err := fmt.Errorf("persist: %w", ErrLedgerExists{CustomerID: id})

	assert.True(t, errors.Is(err, ErrLedgerExists{}))
	assert.True(t, errors.Is(err, ErrLedgerExists{CustomerID: id}))
	assert.False(t, errors.Is(err, ErrLedgerExists{CustomerID: uuid.New()}))
	assert.False(t, errors.Is(err, ErrPersistenceFailure))
}
