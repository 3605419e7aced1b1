package reservation

import (
	"fmt"
	"time"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/space"
)

// RoundingMode selects how fractional-hour totals are brought down to the
// currency's smallest unit. The floor mode matches the truncation the web
// client previews; nearest is kept as a policy switch until the rule is
// confirmed against billing.
type RoundingMode string

const (
	RoundFloor   RoundingMode = "floor"
	RoundNearest RoundingMode = "nearest"
)

// ParseRoundingMode converts a string to a RoundingMode, returning an error if invalid.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch RoundingMode(s) {
	case RoundFloor, RoundNearest:
		return RoundingMode(s), nil
	default:
		return "", fmt.Errorf("invalid rounding mode: %s", s)
	}
}

// PricingPolicy defines the interface for resolving a reservation's total
// price from a product's rate plan and the requested interval.
type PricingPolicy interface {
	// Quote returns the total price in the currency's smallest unit, or a
	// domain error when the interval does not match the product's
	// granularity rules. Quote is pure: no clock, no side effects.
	Quote(product *space.Product, ivl Interval) (int64, error)
}

const (
	hourlyStep  = 30 * time.Minute
	dayPassSpan = 24 * time.Hour
)

// StandardPricingPolicy implements the published rate plans: hourly billing
// in 30-minute steps and flat 24-hour day passes.
type StandardPricingPolicy struct {
	rounding RoundingMode
}

// NewStandardPricingPolicy creates a StandardPricingPolicy with the given
// rounding mode.
func NewStandardPricingPolicy(rounding RoundingMode) *StandardPricingPolicy {
	return &StandardPricingPolicy{rounding: rounding}
}

// Quote computes the total price for the interval under the product's plan.
func (p *StandardPricingPolicy) Quote(product *space.Product, ivl Interval) (int64, error) {
	if !ivl.IsValid() {
		return 0, domain.NewInvalidIntervalError("end time must be after start time")
	}

	switch product.Type() {
	case space.ProductHourly:
		d := ivl.Duration()
		if d%hourlyStep != 0 {
			return 0, domain.NewInvalidIntervalError("hourly reservations must be in 30-minute increments")
		}
		return p.hourlyTotal(product.Price(), d), nil

	case space.ProductDayPass:
		if ivl.Duration() != dayPassSpan {
			return 0, domain.NewInvalidIntervalError("day passes must span exactly 24 hours")
		}
		return product.Price(), nil

	default:
		return 0, domain.NewValidationError(fmt.Sprintf("unknown product type for pricing: %s", product.Type()))
	}
}

// hourlyTotal multiplies the unit price by the duration in hours and
// resolves the fractional remainder per the rounding mode. Durations are
// validated to whole minutes before this point, so integer arithmetic on
// minutes is exact.
func (p *StandardPricingPolicy) hourlyTotal(unitPrice int64, d time.Duration) int64 {
	minutes := int64(d / time.Minute)
	raw := unitPrice * minutes

	switch p.rounding {
	case RoundNearest:
		return (raw + 30) / 60
	default:
		return raw / 60
	}
}
