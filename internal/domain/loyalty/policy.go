package loyalty

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
)

// Range is an inclusive integer range
type Range struct {
	Min int
	Max int
}

func (r Range) valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

// GenerationPolicy bounds the synthetic activity added to a customer's ledger
type GenerationPolicy struct {
	// Synthetic entry counts per status tier
	Premium Range
	Regular Range
	New     Range

	// Synthetic entries are dated within Window before now
	Window time.Duration

	EarnPoints   Range
	RedeemPoints Range
	ExpirePoints Range
	// AdjustSpread is the symmetric bound of admin adjustments: [-AdjustSpread, AdjustSpread]
	AdjustSpread int

	// RedeemThreshold is the minimum balance for a redemption to be generated
	RedeemThreshold int64
}

// DefaultGenerationPolicy returns the standard seeding policy
func DefaultGenerationPolicy() GenerationPolicy {
	return GenerationPolicy{
		Premium:         Range{Min: 3, Max: 10},
		Regular:         Range{Min: 1, Max: 5},
		New:             Range{Min: 0, Max: 2},
		Window:          90 * 24 * time.Hour,
		EarnPoints:      Range{Min: 10, Max: 100},
		RedeemPoints:    Range{Min: 100, Max: 500},
		ExpirePoints:    Range{Min: 10, Max: 100},
		AdjustSpread:    50,
		RedeemThreshold: 100,
	}
}

// Validate checks the policy bounds, including tier ordering premium >= regular >= new
func (p GenerationPolicy) Validate() error {
	var problems []string

	ranges := []struct {
		name string
		r    Range
	}{
		{"premium", p.Premium},
		{"regular", p.Regular},
		{"new", p.New},
		{"earn points", p.EarnPoints},
		{"redeem points", p.RedeemPoints},
		{"expire points", p.ExpirePoints},
	}
	for _, nr := range ranges {
		if !nr.r.valid() {
			problems = append(problems, fmt.Sprintf("%s range [%d,%d] is invalid", nr.name, nr.r.Min, nr.r.Max))
		}
	}
	if p.Premium.Min < p.Regular.Min || p.Premium.Max < p.Regular.Max {
		problems = append(problems, "premium range must not be below regular range")
	}
	if p.Regular.Min < p.New.Min || p.Regular.Max < p.New.Max {
		problems = append(problems, "regular range must not be below new range")
	}
	if p.Window <= 0 {
		problems = append(problems, "window must be greater than 0")
	}
	if p.AdjustSpread < 0 {
		problems = append(problems, "adjust spread must not be negative")
	}
	if p.RedeemThreshold < 0 {
		problems = append(problems, "redeem threshold must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}

// countRange returns the synthetic entry count bounds for a status.
// Unknown statuses get the new-customer bounds.
func (p GenerationPolicy) countRange(status customer.Status) Range {
	switch status {
	case customer.StatusPremium:
		return p.Premium
	case customer.StatusRegular:
		return p.Regular
	default:
		return p.New
	}
}
