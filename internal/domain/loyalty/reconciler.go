package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
)

// Reconciler forces a ledger's final balance onto the customer's snapshot
type Reconciler struct {
	now func() time.Time
}

// NewReconciler creates a Reconciler. A nil clock defaults to time.Now.
func NewReconciler(now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{now: now}
}

// Drift is the signed difference between the snapshot and the ledger's final balance
func Drift(c *customer.Customer, entries []Entry) int64 {
	return c.LoyaltyPoints - FinalBalance(entries)
}

// Reconcile appends at most one admin adjustment so that the last entry's
// balance equals c.LoyaltyPoints. It returns the resulting ledger and the
// adjustment, or nil when there was no drift.
//
// The adjustment is not capped like synthetic debits: it always lands exactly
// on the snapshot, so its points may exceed what an ordinary redemption could
// take. Its date is never earlier than the last entry's.
func (r *Reconciler) Reconcile(c *customer.Customer, entries []Entry) ([]Entry, *Entry) {
	drift := Drift(c, entries)
	if drift == 0 {
		return entries, nil
	}

	now := r.now()
	date := now
	sequence := 0
	if n := len(entries); n > 0 {
		last := entries[n-1]
		if last.Date.After(date) {
			date = last.Date
		}
		sequence = last.Sequence + 1
	}

	adjustment := Entry{
		ID:         uuid.New(),
		CustomerID: c.ID,
		Date:       date,
		Sequence:   sequence,
		Type:       EntryTypeAdjust,
		Points:     drift,
		Source:     SourceAdmin,
		Balance:    c.LoyaltyPoints,
		CreatedAt:  now,
	}

	reconciled := make([]Entry, 0, len(entries)+1)
	reconciled = append(reconciled, entries...)
	reconciled = append(reconciled, adjustment)
	return reconciled, &adjustment
}
