package fundtrade

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when neither the fund nor the configuration
// names one.
const DefaultCurrency = "KRW"

// Money is an exact amount in a currency, expressed in major units.
type Money struct {
	value decimal.Decimal
	cur   string
}

// M returns Money for value in currency, without rounding.
func M[T number](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: strings.ToUpper(currency)}
}

// ParseMoney parses an amount as typed by a user: thousands separators,
// spaces and the currency symbol are ignored.
func ParseMoney(s, currency string) (Money, error) {
	d, ok := ParseAmount(s)
	if !ok {
		return Money{}, fmt.Errorf("invalid amount %q", s)
	}
	return M(d, currency), nil
}

// ParseAmount extracts a decimal from user input. It reports false for empty
// or non-numeric input.
func ParseAmount(s string) (decimal.Decimal, bool) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ',', r == ' ', r == '_', r == '\u00a0':
			return -1
		case r > 127: // currency graphemes like ₩ or €
			return -1
		default:
			return 'x'
		}
	}, strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// currency returns the go-money definition of m's currency. Unknown codes
// get a definition with no minor unit.
func (m Money) currency() *money.Currency {
	return money.New(0, m.cur).Currency()
}

// Fraction returns the number of minor-unit digits of the currency (0 for KRW, 2 for EUR).
func (m Money) Fraction() int32 { return int32(m.currency().Fraction) }

// Round rounds m to the minor unit of its currency.
func (m Money) Round() Money { return Money{value: m.value.Round(m.Fraction()), cur: m.cur} }

// String formats the rounded amount with the currency template, e.g. "₩100,000".
func (m Money) String() string {
	cur := m.currency()
	minor := m.value.Shift(int32(cur.Fraction)).Round(0)
	if cur.Template == "" {
		return m.value.StringFixed(int32(cur.Fraction)) + " " + m.cur
	}
	return cur.Formatter().Format(minor.IntPart())
}

// SignedString is String with an explicit sign, zero is rendered as "-".
func (m Money) SignedString() string {
	if m.value.Round(m.Fraction()).IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

func (m Money) Currency() string                { return m.cur }
func (m Money) Decimal() decimal.Decimal        { return m.value }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) MulUnits(u Units) Money          { return Money{value: m.value.Mul(u.value), cur: m.cur} }
func (m Money) MulRate(r Rate) Money            { return Money{value: m.value.Mul(r.value), cur: m.cur} }
func (m Money) DivUnits(u Units) Money          { return Money{value: m.value.Div(u.value), cur: m.cur} }

// DivPrice returns how many units of price m buys, untruncated.
func (m Money) DivPrice(price Money) Units { return Units{value: m.value.Div(price.value)} }

// Ratio returns m / n as a plain decimal.
func (m Money) Ratio(n Money) decimal.Decimal { return m.value.Div(n.value) }

func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// cur makes the "" currency weak: it adopts the other operand's currency.
// Mixing two real currencies is a programming error, callers check
// currencies at the boundary.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// SameCurrency reports whether a and b can be added together.
func SameCurrency(a, b Money) bool { return a.cur == "" || b.cur == "" || a.cur == b.cur }
