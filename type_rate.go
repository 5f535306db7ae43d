package fundtrade

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10000)
)

// Rate is a fee rate expressed as a fraction: 0.01 is 1 %.
type Rate struct {
	value decimal.Decimal
}

// RateFromBps converts basis points (1/10000) to a Rate.
func RateFromBps[T number](bps T) Rate { return Rate{value: newDecimal(bps).Div(tenThousand)} }

// RateFromPercent converts a percentage to a Rate.
func RateFromPercent[T number](pct T) Rate { return Rate{value: newDecimal(pct).Div(hundred)} }

// RateFromFraction returns the Rate for a fraction, 0.001 is 0.1 %.
func RateFromFraction[T number](f T) Rate { return Rate{value: newDecimal(f)} }

// FlatRedemptionEstimate is the fixed 0.1 % client-side redemption fee estimate.
var FlatRedemptionEstimate = RateFromPercent(decimal.RequireFromString("0.1"))

func (r Rate) Decimal() decimal.Decimal { return r.value }
func (r Rate) IsZero() bool             { return r.value.IsZero() }
func (r Rate) Equal(s Rate) bool        { return r.value.Equal(s.value) }
func (r Rate) Percent() Percent         { return Percent(r.value.Mul(hundred).InexactFloat64()) }
func (r Rate) Bps() decimal.Decimal     { return r.value.Mul(tenThousand) }
func (r Rate) String() string           { return r.value.Mul(hundred).String() + "%" }

// Validate checks that the rate lies in [0, 1).
func (r Rate) Validate() error {
	if r.value.IsNegative() || r.value.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("rate %s outside [0%%, 100%%)", r)
	}
	return nil
}
