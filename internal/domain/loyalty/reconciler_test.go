package loyalty

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerOf(customerID uuid.UUID, dates []time.Time, points ...int64) []Entry {
	drafts := make([]Entry, len(points))
	for i, p := range points {
		drafts[i] = Entry{ID: uuid.New(), CustomerID: customerID, Date: dates[i], Type: EntryTypeEarn, Source: SourcePromotion, Points: p}
	}
	return replay(drafts)
}

func TestReconciler_NegativeDriftIsNotCapped(t *testing.T) {
	c := &customer.Customer{ID: uuid.New(), LoyaltyPoints: 10}
	entries := ledgerOf(c.ID, []time.Time{testNow.Add(-time.Hour), testNow.Add(-time.Minute)}, 400, 300)

	reconciled, adjustment := NewReconciler(fixedClock).Reconcile(c, entries)

	require.NotNil(t, adjustment)
	assert.Equal(t, int64(-690), adjustment.Points)
	assert.Equal(t, int64(10), adjustment.Balance)
	assert.Equal(t, 2, adjustment.Sequence)
	assert.Equal(t, testNow, adjustment.Date)
	assert.Len(t, reconciled, 3)
	assert.Len(t, entries, 2, "input ledger must not be modified")
}

func TestReconciler_NoDrift(t *testing.T) {
	c := &customer.Customer{ID: uuid.New(), LoyaltyPoints: 120}
	entries := ledgerOf(c.ID, []time.Time{testNow.Add(-time.Hour)}, 120)

	reconciled, adjustment := NewReconciler(fixedClock).Reconcile(c, entries)

	assert.Nil(t, adjustment)
	assert.Equal(t, entries, reconciled)
	assert.Equal(t, int64(0), Drift(c, entries))
}

func TestReconciler_EmptyLedgerWithSnapshot(t *testing.T) {
	c := &customer.Customer{ID: uuid.New(), LoyaltyPoints: 75}

	reconciled, adjustment := NewReconciler(fixedClock).Reconcile(c, nil)

	require.NotNil(t, adjustment)
	require.Len(t, reconciled, 1)
	assert.Equal(t, int64(75), adjustment.Points)
	assert.Equal(t, 0, adjustment.Sequence)
	assert.Equal(t, c.ID, adjustment.CustomerID)
}

func TestReconciler_FutureDatedLedgerKeepsOrder(t *testing.T) {
	c := &customer.Customer{ID: uuid.New(), LoyaltyPoints: 0}
	future := testNow.Add(72 * time.Hour)
	entries := ledgerOf(c.ID, []time.Time{future}, 60)

	reconciled, adjustment := NewReconciler(fixedClock).Reconcile(c, entries)

	require.NotNil(t, adjustment)
	assert.Equal(t, future, adjustment.Date)
	assert.Equal(t, int64(-60), adjustment.Points)
	assert.Equal(t, int64(0), FinalBalance(reconciled))
}

func TestReconciler_Idempotent(t *testing.T) {
	c := &customer.Customer{ID: uuid.New(), LoyaltyPoints: 333}
	entries := ledgerOf(c.ID, []time.Time{testNow.Add(-time.Hour)}, 33)
	reconciler := NewReconciler(fixedClock)

	once, first := reconciler.Reconcile(c, entries)
	twice, second := reconciler.Reconcile(c, once)

	require.NotNil(t, first)
	assert.Nil(t, second)
	assert.Equal(t, once, twice)
}
