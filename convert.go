package fundtrade

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PurchaseQuote is the estimated outcome of buying a fund with cash.
type PurchaseQuote struct {
	Amount  Money // cash paid
	FeeRate Rate
	Fee     Money
	Net     Money // cash converted to units
	NAV     Money
	Units   Units
}

// RedemptionQuote is the estimated outcome of selling units.
type RedemptionQuote struct {
	Units        Units
	NAV          Money
	AveragePrice Money
	FeeRate      Rate
	Gross        Money
	Fee          Money
	Net          Money // cash received
	Profit       Money // realized gain net of fee
	ProfitRate   Percent
	Remaining    Units
}

// QuotePurchase converts amount into units at nav, net of the purchase fee.
// The fee is rounded to the currency minor unit and units are truncated, so
// that units × nav never exceeds amount.
func QuotePurchase(amount, nav Money, rate Rate) (PurchaseQuote, error) {
	const op = "quote purchase"
	if !amount.IsPositive() {
		return PurchaseQuote{}, invalid(op, ErrNonPositiveAmount, "amount must be positive, got %s", amount)
	}
	if !nav.IsPositive() {
		return PurchaseQuote{}, invalid(op, ErrNavUnavailable, "no usable NAV (%s)", nav)
	}
	if !SameCurrency(amount, nav) {
		return PurchaseQuote{}, invalid(op, ErrCurrencyMismatch, "amount in %s, NAV in %s", amount.Currency(), nav.Currency())
	}
	if err := rate.Validate(); err != nil {
		return PurchaseQuote{}, invalid(op, ErrInvalidFees, "purchase fee: %v", err)
	}
	fee := amount.MulRate(rate).Round()
	net := amount.Sub(fee)
	return PurchaseQuote{
		Amount:  amount,
		FeeRate: rate,
		Fee:     fee,
		Net:     net,
		NAV:     nav,
		Units:   net.DivPrice(nav).Truncate(),
	}, nil
}

// EstimatePurchase is the display path of QuotePurchase: input is the raw
// amount as typed. It reports false, without error, when the amount is empty,
// non-numeric or not positive, or when no NAV is available.
func EstimatePurchase(input string, nav NAV, rate Rate) (PurchaseQuote, bool) {
	d, ok := ParseAmount(input)
	if !ok || !d.IsPositive() || !nav.Available() {
		return PurchaseQuote{}, false
	}
	q, err := QuotePurchase(M(d, nav.Value.Currency()), nav.Value, rate)
	if err != nil {
		return PurchaseQuote{}, false
	}
	return q, true
}

// QuoteRedemption computes the proceeds and realized profit of selling units
// out of held, valued at nav against the average purchase price avg.
func QuoteRedemption(units, held Units, nav, avg Money, rate Rate) (RedemptionQuote, error) {
	const op = "quote redemption"
	if !units.IsPositive() || units.GreaterThan(held) {
		return RedemptionQuote{}, invalid(op, ErrUnitsOutOfRange, "units must be within (0, %s], got %s", held, units)
	}
	if !nav.IsPositive() {
		return RedemptionQuote{}, invalid(op, ErrNavUnavailable, "no usable NAV (%s)", nav)
	}
	if !SameCurrency(avg, nav) {
		return RedemptionQuote{}, invalid(op, ErrCurrencyMismatch, "cost in %s, NAV in %s", avg.Currency(), nav.Currency())
	}
	if err := rate.Validate(); err != nil {
		return RedemptionQuote{}, invalid(op, ErrInvalidFees, "redemption fee: %v", err)
	}
	gross := nav.MulUnits(units)
	fee := gross.MulRate(rate).Round()
	cost := avg.MulUnits(units)
	profit := nav.Sub(avg).MulUnits(units).Sub(fee).Round()
	return RedemptionQuote{
		Units:        units,
		NAV:          nav,
		AveragePrice: avg,
		FeeRate:      rate,
		Gross:        gross.Round(),
		Fee:          fee,
		Net:          gross.Sub(fee).Round(),
		Profit:       profit,
		ProfitRate:   percentOf(profit.Decimal(), cost.Decimal()),
		Remaining:    held.Sub(units),
	}, nil
}

// UnitsForPercent returns pct percent of held, truncated. 100 % is exactly held
// so that a full redemption never leaves dust behind.
func UnitsForPercent(held Units, pct decimal.Decimal) (Units, error) {
	if !pct.IsPositive() || pct.GreaterThan(hundred) {
		return Units{}, invalid("redeem", ErrUnitsOutOfRange, "percentage must be within (0, 100], got %s", pct)
	}
	if pct.Equal(hundred) {
		return held, nil
	}
	return held.Mul(pct.Div(hundred)).Truncate(), nil
}

func (q PurchaseQuote) String() string {
	return fmt.Sprintf("%s - fee %s (%s) = %s at NAV %s: %s units", q.Amount, q.Fee, q.FeeRate, q.Net, q.NAV, q.Units)
}

func (q RedemptionQuote) String() string {
	return fmt.Sprintf("%s units at NAV %s = %s - fee %s = %s, profit %s", q.Units, q.NAV, q.Gross, q.Fee, q.Net, q.Profit.SignedString())
}
