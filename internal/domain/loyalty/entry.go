package loyalty

import (
	"time"

	"github.com/google/uuid"
)

// EntryType classifies a points movement
type EntryType string

const (
	EntryTypeEarn   EntryType = "earn"
	EntryTypeRedeem EntryType = "redeem"
	EntryTypeAdjust EntryType = "adjust"
	EntryTypeExpire EntryType = "expire"
)

// Source records where a points movement came from. Descriptive only.
type Source string

const (
	SourcePurchase   Source = "purchase"
	SourcePromotion  Source = "promotion"
	SourceReferral   Source = "referral"
	SourceAdmin      Source = "admin"
	SourceExpiration Source = "expiration"
	SourceReward     Source = "reward"
)

// Entry is one immutable record of a points change for a customer.
// Balance is the running total for the customer up to and including this
// entry, in (Date, Sequence) order.
type Entry struct {
	ID                uuid.UUID  `json:"id" bson:"entry_id"`
	CustomerID        uuid.UUID  `json:"customer_id" bson:"customer_id"`
	Date              time.Time  `json:"date" bson:"date"`
	Sequence          int        `json:"sequence" bson:"sequence"`
	Type              EntryType  `json:"type" bson:"type"`
	Points            int64      `json:"points" bson:"points"`
	Source            Source     `json:"source" bson:"source"`
	RelatedPurchaseID *uuid.UUID `json:"related_purchase_id,omitempty" bson:"related_purchase_id,omitempty"`
	Balance           int64      `json:"balance" bson:"balance"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
}

// FinalBalance returns the balance of the chronologically last entry, or 0
// for an empty ledger. Entries must already be in ledger order.
func FinalBalance(entries []Entry) int64 {
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].Balance
}
