package fees

import (
	"context"
	"testing"

	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/shopspring/decimal"
)

type staticConfig map[domain.ConfigurationKey]string

func (s staticConfig) GetFor(ctx context.Context, keys []domain.ConfigurationKey, level domain.ConfigurationLevel) (domain.ConfigurationValues, error) {
	out := domain.ConfigurationValues{}
	for _, k := range keys {
		v, ok := s[k]
		out[k] = domain.ConfigurationValue{Key: k, Value: v, Present: ok}
	}
	return out, nil
}

func TestCompute(t *testing.T) {
	cases := []struct {
		name    string
		items   int
		price   int64
		fixed   string
		pct     string
		minimum string
		want    int64
	}{
		{"percentage only", 1, 10000, "0", "2.5", "0", 250},
		{"fixed per item", 3, 10000, "50", "0", "0", 150},
		{"rounded half up", 1, 1010, "0", "5", "0", 51},
		{"minimum applies", 1, 100, "0", "1", "30", 30},
		{"combined", 2, 5000, "25", "1.5", "0", 125},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Compute(c.items, c.price, decimal.RequireFromString(c.fixed), decimal.RequireFromString(c.pct), decimal.RequireFromString(c.minimum))
			if got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestPlatformFee_DisabledPlatformMode(t *testing.T) {
	calc := NewCalculator(staticConfig{domain.PlatformPercentageFee: "10"})
	fee, err := calc.PlatformFee(context.Background(), domain.Event{}, 1, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if fee != 0 {
		t.Errorf("expected no fee when platform mode is off, got %d", fee)
	}
}

func TestPlatformFee_Enabled(t *testing.T) {
	calc := NewCalculator(staticConfig{
		domain.PlatformModeEnabled:   "true",
		domain.PlatformPercentageFee: "2",
		domain.PlatformFixedFee:      "10",
	})
	fee, err := calc.PlatformFee(context.Background(), domain.Event{}, 2, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if fee != 220 {
		t.Errorf("expected 220, got %d", fee)
	}
}

func TestPlatformFee_InvalidConfiguration(t *testing.T) {
	calc := NewCalculator(staticConfig{
		domain.PlatformModeEnabled:   "true",
		domain.PlatformPercentageFee: "two",
	})
	if _, err := calc.PlatformFee(context.Background(), domain.Event{}, 1, 100); err == nil {
		t.Fatal("expected error for unparsable percentage")
	}
}
