package fundtrade

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a display ratio in percent units: 5 means 5 %.
type Percent float64

// percentOf returns num / den as a Percent, 0 when den is zero.
func percentOf(num, den decimal.Decimal) Percent {
	if den.IsZero() {
		return 0
	}
	return Percent(num.Div(den).Mul(hundred).Round(4).InexactFloat64())
}

// Equal compares with a precision of 1/10000 of a percent.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}
