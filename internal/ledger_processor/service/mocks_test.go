package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) List(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetPurchases(ctx context.Context, customerID uuid.UUID) ([]*customer.Purchase, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*customer.Purchase), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) PersistLedger(ctx context.Context, customerID uuid.UUID, entries []loyalty.Entry) error {
	args := m.Called(ctx, customerID, entries)
	return args.Error(0)
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *loyalty.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]loyalty.Entry, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]loyalty.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockLedgerService mocks the LedgerService interface
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GenerateLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}

func (m *MockLedgerService) GenerateForCustomer(ctx context.Context, c *customer.Customer) (*Outcome, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}

func (m *MockLedgerService) ReconcileLedger(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}

type MockBatchExecutor struct {
	mock.Mock
}

func (m *MockBatchExecutor) RunBatch(ctx context.Context, customers []*customer.Customer, op shared.LedgerOperation) (*BatchReport, error) {
	args := m.Called(ctx, customers, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchReport), args.Error(1)
}

// zeroSource always draws the lowest value
type zeroSource struct{}

func (zeroSource) IntN(int) int { return 0 }

func zeroSources(uuid.UUID) loyalty.RandomSource { return zeroSource{} }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
