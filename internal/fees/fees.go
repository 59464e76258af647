package fees

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/shopspring/decimal"
)

var feeKeys = []domain.ConfigurationKey{
	domain.PlatformModeEnabled,
	domain.PlatformFixedFee,
	domain.PlatformPercentageFee,
	domain.PlatformMinimumFee,
}

type Calculator struct {
	config domain.ConfigurationResolver
}

func NewCalculator(config domain.ConfigurationResolver) *Calculator {
	return &Calculator{config: config}
}

// PlatformFee returns the fee in cents owed to the platform for a reservation
// of itemCount items costing priceCts.
func (c *Calculator) PlatformFee(ctx context.Context, pc domain.PurchaseContext, itemCount int, priceCts int64) (int64, error) {
	values, err := c.config.GetFor(ctx, feeKeys, pc.ConfigurationLevel())
	if err != nil {
		return 0, errors.Wrap(err, "load platform fee configuration")
	}
	if !values.Get(domain.PlatformModeEnabled).AsBoolOrDefault() || priceCts <= 0 {
		return 0, nil
	}
	fixed, err := parse(values.Get(domain.PlatformFixedFee))
	if err != nil {
		return 0, err
	}
	pct, err := parse(values.Get(domain.PlatformPercentageFee))
	if err != nil {
		return 0, err
	}
	minimum, err := parse(values.Get(domain.PlatformMinimumFee))
	if err != nil {
		return 0, err
	}
	return Compute(itemCount, priceCts, fixed, pct, minimum), nil
}

// Compute is fixed × items + price × pct / 100, rounded half-up to cents and floored at minimum.
func Compute(itemCount int, priceCts int64, fixedCts, percentage, minimumCts decimal.Decimal) int64 {
	fee := fixedCts.Mul(decimal.NewFromInt(int64(itemCount))).
		Add(decimal.NewFromInt(priceCts).Mul(percentage).Div(decimal.NewFromInt(100))).
		Round(0)
	if fee.LessThan(minimumCts) {
		fee = minimumCts.Round(0)
	}
	return fee.IntPart()
}

func parse(v domain.ConfigurationValue) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.AsStringOrDefault())
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Mark(errors.Wrapf(err, "configuration %s", v.Key), domain.ErrInvalidInput)
	}
	return d, nil
}
