package customer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the loyalty tier of a customer
type Status string

const (
	StatusNew     Status = "new"
	StatusRegular Status = "regular"
	StatusPremium Status = "premium"
)

// ParseStatus normalizes a stored status value. Unknown values are kept as-is
// so that callers can decide how to treat them.
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

// Customer represents a fuel-station customer profile.
// LoyaltyPoints is the authoritative snapshot the loyalty ledger reconciles to.
type Customer struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Status        Status    `json:"status"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
}

// Purchase is a single fuel purchase made by a customer
type Purchase struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	Date         time.Time       `json:"date"`
	FuelType     string          `json:"fuel_type"`
	Liters       decimal.Decimal `json:"liters"`
	Amount       decimal.Decimal `json:"amount"`
	PointsEarned int64           `json:"points_earned"`
}

// PointsForAmount returns the points earned for a purchase amount:
// one point per currency unit, rounded half away from zero.
func PointsForAmount(amount decimal.Decimal) int64 {
	if amount.IsNegative() {
		return 0
	}
	return amount.Round(0).IntPart()
}
