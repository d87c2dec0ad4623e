package loyalty

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
)

// Builder turns a customer's purchase history into a loyalty ledger.
//
// Building runs in three phases: draft entries are generated with provisional
// deltas only, drafts are stably sorted by date, and a fold over the sorted
// drafts assigns sequence numbers and running balances. Synthetic entries
// carry random dates that interleave with purchase entries, so balances are
// never computed during generation.
type Builder struct {
	policy GenerationPolicy
	now    func() time.Time
}

// NewBuilder creates a Builder. A nil clock defaults to time.Now.
func NewBuilder(policy GenerationPolicy, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		policy: policy,
		now:    now,
	}
}

// Build produces the customer's ledger in (Date, Sequence) order. No entry
// drives the running balance below zero. Purchases may be passed in any order.
func (b *Builder) Build(c *customer.Customer, purchases []*customer.Purchase, rnd RandomSource) []Entry {
	createdAt := b.now()

	drafts := b.purchaseDrafts(c.ID, purchases, createdAt)

	var provisional int64
	for _, d := range drafts {
		provisional += d.Points
	}
	drafts = append(drafts, b.syntheticDrafts(c, provisional, rnd, createdAt)...)

	// ties keep generation order: purchases first, then synthetic entries
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].Date.Before(drafts[j].Date)
	})

	return replay(drafts)
}

func (b *Builder) purchaseDrafts(customerID uuid.UUID, purchases []*customer.Purchase, createdAt time.Time) []Entry {
	ordered := make([]*customer.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	drafts := make([]Entry, 0, len(ordered))
	for _, p := range ordered {
		purchaseID := p.ID
		drafts = append(drafts, Entry{
			ID:                uuid.New(),
			CustomerID:        customerID,
			Date:              p.Date,
			Type:              EntryTypeEarn,
			Points:            p.PointsEarned,
			Source:            SourcePurchase,
			RelatedPurchaseID: &purchaseID,
			CreatedAt:         createdAt,
		})
	}
	return drafts
}

// syntheticDrafts generates promotions, referrals, redemptions, admin
// adjustments and expirations. balance is the provisional balance in
// generation order; it gates redemptions and caps debits.
func (b *Builder) syntheticDrafts(c *customer.Customer, balance int64, rnd RandomSource, createdAt time.Time) []Entry {
	bounds := b.policy.countRange(c.Status)
	count := between(rnd, bounds.Min, bounds.Max)
	if count == 0 {
		return nil
	}

	windowMinutes := int(b.policy.Window / time.Minute)
	drafts := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		date := createdAt.Add(-time.Duration(between(rnd, 0, windowMinutes)) * time.Minute)
		entry := b.syntheticDraft(balance, rnd)
		entry.ID = uuid.New()
		entry.CustomerID = c.ID
		entry.Date = date
		entry.CreatedAt = createdAt

		balance += entry.Points
		drafts = append(drafts, entry)
	}
	return drafts
}

// syntheticDraft picks a type from the 60/30/5/5 earn/redeem/adjust/expire
// bands. Below the redeem threshold the roll covers only the earn, adjust and
// expire bands, keeping their relative weights.
func (b *Builder) syntheticDraft(balance int64, rnd RandomSource) Entry {
	var entry Entry

	canRedeem := balance >= b.policy.RedeemThreshold
	var roll int
	if canRedeem {
		roll = rnd.IntN(100)
	} else {
		roll = rnd.IntN(70)
		if roll >= 60 {
			roll += 30
		}
	}

	switch {
	case roll < 60:
		entry.Type = EntryTypeEarn
		entry.Points = int64(between(rnd, b.policy.EarnPoints.Min, b.policy.EarnPoints.Max))
		entry.Source = SourcePromotion
		if rnd.IntN(2) == 1 {
			entry.Source = SourceReferral
		}
	case roll < 90 && canRedeem:
		entry.Type = EntryTypeRedeem
		entry.Points = -min(balance, int64(between(rnd, b.policy.RedeemPoints.Min, b.policy.RedeemPoints.Max)))
		entry.Source = SourceReward
	case roll < 95:
		entry.Type = EntryTypeAdjust
		entry.Points = int64(between(rnd, -b.policy.AdjustSpread, b.policy.AdjustSpread))
		entry.Source = SourceAdmin
	default:
		entry.Type = EntryTypeExpire
		entry.Points = -min(balance, int64(between(rnd, b.policy.ExpirePoints.Min, b.policy.ExpirePoints.Max)))
		entry.Source = SourceExpiration
	}

	if balance+entry.Points < 0 {
		entry.Points = -balance
	}
	return entry
}

// replay folds drafts in their given order, assigning sequence numbers and
// running balances. A debit larger than the balance at its position is capped
// to that balance. Debits that end up moving no points are dropped.
func replay(drafts []Entry) []Entry {
	entries := make([]Entry, 0, len(drafts))
	var balance int64
	for _, e := range drafts {
		if e.Points < 0 && balance+e.Points < 0 {
			e.Points = -balance
			if e.Points == 0 {
				continue
			}
		}
		if e.Points == 0 && (e.Type == EntryTypeRedeem || e.Type == EntryTypeExpire) {
			continue
		}
		balance += e.Points
		e.Sequence = len(entries)
		e.Balance = balance
		entries = append(entries, e)
	}
	return entries
}
