package fundtrade

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UnitsPrecision is the number of decimals fund units are kept with.
const UnitsPrecision = 6

type number interface {
	float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal
}

// newDecimal is a convenient factory for decimal.Decimal.
func newDecimal[T number](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Units is a divisible quantity of fund ownership.
type Units struct {
	value decimal.Decimal
}

// U returns Units for value, without truncation.
func U[T number](value T) Units { return Units{value: newDecimal(value)} }

// ParseUnits parses a decimal string into Units.
func ParseUnits(s string) (Units, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Units{}, fmt.Errorf("invalid units %q: %w", s, err)
	}
	return Units{value: d}, nil
}

// Truncate drops digits beyond UnitsPrecision, never rounding up, so that
// units × nav never exceeds the cash that bought them.
func (u Units) Truncate() Units { return Units{value: u.value.Truncate(UnitsPrecision)} }

func (u Units) Decimal() decimal.Decimal             { return u.value }
func (u Units) Equal(v Units) bool                   { return u.value.Equal(v.value) }
func (u Units) LessThan(v Units) bool                { return u.value.LessThan(v.value) }
func (u Units) GreaterThan(v Units) bool             { return u.value.GreaterThan(v.value) }
func (u Units) Add(v Units) Units                    { return Units{value: u.value.Add(v.value)} }
func (u Units) Sub(v Units) Units                    { return Units{value: u.value.Sub(v.value)} }
func (u Units) Mul(d decimal.Decimal) Units          { return Units{value: u.value.Mul(d)} }
func (u Units) Div(v Units) decimal.Decimal          { return u.value.Div(v.value) }
func (u Units) IsZero() bool                         { return u.value.IsZero() }
func (u Units) IsPositive() bool                     { return u.value.IsPositive() }
func (u Units) IsNegative() bool                     { return u.value.IsNegative() }
func (u Units) String() string                       { return u.value.StringFixed(UnitsPrecision) }
func (u Units) MarshalJSON() ([]byte, error)         { return []byte(u.value.String()), nil }
func (u *Units) UnmarshalJSON(decimalBytes []byte) error { return u.value.UnmarshalJSON(decimalBytes) }
