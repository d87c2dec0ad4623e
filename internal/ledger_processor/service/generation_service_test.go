package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestService(customers *MockCustomerRepository, ledgers *MockLedgerRepository) LedgerService {
	return NewGenerationService(
		customers,
		ledgers,
		loyalty.NewBuilder(loyalty.DefaultGenerationPolicy(), clock),
		loyalty.NewReconciler(clock),
		zeroSources,
		testLogger(),
	)
}

func newCustomer(points int64) *customer.Customer {
	return &customer.Customer{
		ID:            uuid.New(),
		Name:          "Ana Ruiz",
		Status:        customer.StatusNew,
		LoyaltyPoints: points,
		CreatedAt:     fixedNow.AddDate(-1, 0, 0),
	}
}

func purchase(customerID uuid.UUID, daysAgo int, points int64) *customer.Purchase {
	return &customer.Purchase{
		ID:           uuid.New(),
		CustomerID:   customerID,
		Date:         fixedNow.AddDate(0, 0, -daysAgo),
		FuelType:     "diesel",
		Liters:       decimal.NewFromInt(40),
		Amount:       decimal.NewFromInt(points),
		PointsEarned: points,
	}
}

func TestGenerationService_GenerateForCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("persists reconciled ledger", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(500)
		purchases := []*customer.Purchase{purchase(c.ID, 10, 150), purchase(c.ID, 20, 100)}
		customers.On("GetPurchases", ctx, c.ID).Return(purchases, nil)

		var persisted []loyalty.Entry
		ledgers.On("PersistLedger", ctx, c.ID, mock.Anything).Run(func(args mock.Arguments) {
			persisted = args.Get(2).([]loyalty.Entry)
		}).Return(nil)

		outcome, err := svc.GenerateForCustomer(ctx, c)
		require.NoError(t, err)

		require.Len(t, persisted, 3)
		assert.Equal(t, int64(100), persisted[0].Balance)
		assert.Equal(t, int64(250), persisted[1].Balance)
		assert.Equal(t, loyalty.EntryTypeAdjust, persisted[2].Type)
		assert.Equal(t, int64(250), persisted[2].Points)
		assert.Equal(t, int64(500), loyalty.FinalBalance(persisted))

		assert.Equal(t, 3, outcome.EntriesWritten)
		assert.True(t, outcome.Adjusted())
		assert.False(t, outcome.Skipped)
		customers.AssertExpectations(t)
		ledgers.AssertExpectations(t)
	})

	t.Run("no drift writes no adjustment", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(80)
		customers.On("GetPurchases", ctx, c.ID).Return([]*customer.Purchase{purchase(c.ID, 3, 80)}, nil)
		ledgers.On("PersistLedger", ctx, c.ID, mock.MatchedBy(func(entries []loyalty.Entry) bool {
			return len(entries) == 1 && entries[0].Source == loyalty.SourcePurchase
		})).Return(nil)

		outcome, err := svc.GenerateForCustomer(ctx, c)
		require.NoError(t, err)
		assert.False(t, outcome.Adjusted())
		assert.Equal(t, 1, outcome.EntriesWritten)
	})

	t.Run("existing ledger is skipped", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(0)
		customers.On("GetPurchases", ctx, c.ID).Return([]*customer.Purchase{}, nil)
		ledgers.On("PersistLedger", ctx, c.ID, mock.Anything).Return(loyalty.ErrLedgerExists{CustomerID: c.ID})

		outcome, err := svc.GenerateForCustomer(ctx, c)
		require.NoError(t, err)
		assert.True(t, outcome.Skipped)
		assert.Zero(t, outcome.EntriesWritten)
	})

	t.Run("purchase read failure", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(10)
		customers.On("GetPurchases", ctx, c.ID).Return(nil, errors.New("connection reset"))

		outcome, err := svc.GenerateForCustomer(ctx, c)
		require.Error(t, err)
		assert.Nil(t, outcome)
		assert.ErrorIs(t, err, loyalty.ErrDataUnavailable)
		ledgers.AssertNotCalled(t, "PersistLedger", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("write failure", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(10)
		customers.On("GetPurchases", ctx, c.ID).Return([]*customer.Purchase{}, nil)
		ledgers.On("PersistLedger", ctx, c.ID, mock.Anything).Return(errors.New("write concern timeout"))

		_, err := svc.GenerateForCustomer(ctx, c)
		require.Error(t, err)
		assert.ErrorIs(t, err, loyalty.ErrPersistenceFailure)
	})
}

func TestGenerationService_GenerateLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown customer", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		id := uuid.New()
		customers.On("GetByID", ctx, id).Return(nil, customer.ErrCustomerNotFound{CustomerID: id})

		_, err := svc.GenerateLedger(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, loyalty.ErrDataUnavailable)
		assert.ErrorIs(t, err, customer.ErrCustomerNotFound{})
	})

	t.Run("loads customer then generates", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(0)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		customers.On("GetPurchases", ctx, c.ID).Return([]*customer.Purchase{}, nil)
		ledgers.On("PersistLedger", ctx, c.ID, mock.MatchedBy(func(entries []loyalty.Entry) bool {
			return len(entries) == 0
		})).Return(nil)

		outcome, err := svc.GenerateLedger(ctx, c.ID)
		require.NoError(t, err)
		assert.Zero(t, outcome.EntriesWritten)
		customers.AssertExpectations(t)
		ledgers.AssertExpectations(t)
	})
}

func TestGenerationService_ReconcileLedger(t *testing.T) {
	ctx := context.Background()

	stored := func(customerID uuid.UUID) []loyalty.Entry {
		return []loyalty.Entry{
			{ID: uuid.New(), CustomerID: customerID, Date: fixedNow.AddDate(0, 0, -5), Sequence: 0, Type: loyalty.EntryTypeEarn, Points: 120, Source: loyalty.SourcePurchase, Balance: 120},
			{ID: uuid.New(), CustomerID: customerID, Date: fixedNow.AddDate(0, 0, -2), Sequence: 1, Type: loyalty.EntryTypeRedeem, Points: -100, Source: loyalty.SourceReward, Balance: 20},
		}
	}

	t.Run("appends adjustment for drift", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(5)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(stored(c.ID), nil)
		ledgers.On("Append", ctx, mock.MatchedBy(func(e *loyalty.Entry) bool {
			return e.Points == -15 && e.Balance == 5 && e.Sequence == 2 && e.Source == loyalty.SourceAdmin
		})).Return(nil)

		outcome, err := svc.ReconcileLedger(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, outcome.Adjusted())
		assert.Equal(t, 1, outcome.EntriesWritten)
		ledgers.AssertExpectations(t)
	})

	t.Run("balanced ledger writes nothing", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(20)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(stored(c.ID), nil)

		outcome, err := svc.ReconcileLedger(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, outcome.Adjusted())
		assert.False(t, outcome.Skipped)
		ledgers.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("missing ledger is skipped", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(20)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return([]loyalty.Entry{}, nil)

		outcome, err := svc.ReconcileLedger(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, outcome.Skipped)
	})

	t.Run("append failure", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(0)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(stored(c.ID), nil)
		ledgers.On("Append", ctx, mock.Anything).Return(errors.New("not primary"))

		_, err := svc.ReconcileLedger(ctx, c.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, loyalty.ErrPersistenceFailure)
	})

	t.Run("lost sequence race reloads ledger", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(5)
		before := stored(c.ID)
		after := append(stored(c.ID), loyalty.Entry{
			ID: uuid.New(), CustomerID: c.ID, Date: fixedNow, Sequence: 2,
			Type: loyalty.EntryTypeAdjust, Points: -15, Source: loyalty.SourceAdmin, Balance: 5,
		})

		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(before, nil).Once()
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(after, nil).Once()
		ledgers.On("Append", ctx, mock.Anything).Return(fmt.Errorf("%w: sequence 2", loyalty.ErrLedgerChanged)).Once()

		outcome, err := svc.ReconcileLedger(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, outcome.Adjusted())
		assert.Equal(t, 0, outcome.EntriesWritten)
		ledgers.AssertExpectations(t)
	})

	t.Run("repeated sequence conflicts fail", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(5)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(stored(c.ID), nil)
		ledgers.On("Append", ctx, mock.Anything).Return(loyalty.ErrLedgerChanged)

		_, err := svc.ReconcileLedger(ctx, c.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, loyalty.ErrPersistenceFailure)
		assert.ErrorIs(t, err, loyalty.ErrLedgerChanged)
		ledgers.AssertNumberOfCalls(t, "Append", reconcileAttempts)
	})

	t.Run("ledger read failure", func(t *testing.T) {
		customers := &MockCustomerRepository{}
		ledgers := &MockLedgerRepository{}
		svc := newTestService(customers, ledgers)

		c := newCustomer(0)
		customers.On("GetByID", ctx, c.ID).Return(c, nil)
		ledgers.On("GetByCustomerID", ctx, c.ID).Return(nil, errors.New("timeout"))

		_, err := svc.ReconcileLedger(ctx, c.ID)
		assert.ErrorIs(t, err, loyalty.ErrDataUnavailable)
	})
}

// sequencedLedgerRepository keeps one ledger in memory and rejects a second
// entry at an already used sequence, like the unique index in MongoDB. The
// first two reads wait for each other so both see the same ledger.
type sequencedLedgerRepository struct {
	MockLedgerRepository

	mu      sync.Mutex
	entries []loyalty.Entry
	reads   int
	barrier sync.WaitGroup
}

func (r *sequencedLedgerRepository) GetByCustomerID(_ context.Context, _ uuid.UUID) ([]loyalty.Entry, error) {
	r.mu.Lock()
	r.reads++
	wait := r.reads <= 2
	snapshot := append([]loyalty.Entry(nil), r.entries...)
	r.mu.Unlock()

	if wait {
		r.barrier.Done()
		r.barrier.Wait()
	}
	return snapshot, nil
}

func (r *sequencedLedgerRepository) Append(_ context.Context, entry *loyalty.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Sequence == entry.Sequence {
			return fmt.Errorf("%w: sequence %d", loyalty.ErrLedgerChanged, entry.Sequence)
		}
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func TestGenerationService_ConcurrentReconcileWritesOneAdjustment(t *testing.T) {
	ctx := context.Background()
	c := newCustomer(500)

	customers := &MockCustomerRepository{}
	customers.On("GetByID", mock.Anything, c.ID).Return(c, nil)

	ledgers := &sequencedLedgerRepository{entries: []loyalty.Entry{
		{ID: uuid.New(), CustomerID: c.ID, Date: fixedNow.AddDate(0, 0, -3), Sequence: 0, Type: loyalty.EntryTypeEarn, Points: 100, Source: loyalty.SourcePromotion, Balance: 100},
	}}
	ledgers.barrier.Add(2)

	svc := NewGenerationService(customers, ledgers,
		loyalty.NewBuilder(loyalty.DefaultGenerationPolicy(), clock),
		loyalty.NewReconciler(clock),
		zeroSources,
		testLogger(),
	)

	outcomes := make([]*Outcome, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], errs[i] = svc.ReconcileLedger(ctx, c.ID)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, outcomes[0].Adjusted(), outcomes[1].Adjusted(), "exactly one run should adjust")

	require.Len(t, ledgers.entries, 2)
	var sum int64
	for _, e := range ledgers.entries {
		sum += e.Points
	}
	assert.Equal(t, c.LoyaltyPoints, sum)
	assert.Equal(t, c.LoyaltyPoints, loyalty.FinalBalance(ledgers.entries))
	assert.Equal(t, int64(400), ledgers.entries[1].Points)
}
