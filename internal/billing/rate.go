// Package billing owns SMS pricing and the settlement of dispatched
// batches against tenant credit and gateway float.
package billing

import "github.com/shopspring/decimal"

// rateTier maps a lifetime sent-volume threshold to the per-SMS rate that
// applies once the tenant crosses it. Tiers must be listed in ascending
// volume order; RateForVolume picks the last threshold at or below the
// tenant's total.
type rateTier struct {
	MinVolume int64
	Rate      decimal.Decimal
}

var rateTiers = []rateTier{
	{MinVolume: 0, Rate: decimal.RequireFromString("0.25")},
	{MinVolume: 100, Rate: decimal.RequireFromString("0.22")},
	{MinVolume: 500, Rate: decimal.RequireFromString("0.20")},
	{MinVolume: 1000, Rate: decimal.RequireFromString("0.18")},
	{MinVolume: 5000, Rate: decimal.RequireFromString("0.16")},
	{MinVolume: 10000, Rate: decimal.RequireFromString("0.14")},
}

// MinimumRate is the floor a tenant rate can ever reach through volume
// discounts.
var MinimumRate = decimal.RequireFromString("0.14")

// RateForVolume returns the per-SMS rate earned by a tenant's lifetime sent
// volume. Rates are non-increasing with volume and never drop below
// MinimumRate.
func RateForVolume(totalSent int64) decimal.Decimal {
	rate := rateTiers[0].Rate
	for _, tier := range rateTiers {
		if totalSent < tier.MinVolume {
			break
		}
		rate = tier.Rate
	}
	if rate.LessThan(MinimumRate) {
		return MinimumRate
	}
	return rate
}

// BatchCost is the tenant-facing cost of sending to n recipients at the
// given rate.
func BatchCost(rate decimal.Decimal, recipients int64) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(recipients))
}

// CanCover reports whether a balance covers the cost of n recipients at the
// given per-SMS rate.
func CanCover(balance, rate decimal.Decimal, recipients int64) bool {
	return balance.GreaterThanOrEqual(BatchCost(rate, recipients))
}
