package fundtrade

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is a customer's request to buy a fund with cash.
type PurchaseOrder struct {
	Customer           string
	Fund               FundID
	Amount             Money
	DisclosureAccepted bool // the risk disclosure was read and accepted
}

// Validate checks the order against the fund rules before anything is sent.
// existing is the customer's open position in the fund, nil if none; a
// fully sold position is never topped up, a new one is opened instead.
// Every failure is reported at once.
func (o PurchaseOrder) Validate(fund Fund, existing *Position) error {
	const op = "purchase"
	var errs error
	if !fund.Class.Active || !fund.Class.OnSale {
		errs = errors.Join(errs, invalid(op, ErrFundNotFound, "fund %s is not on sale", fund.ID()))
	}
	if o.Fund != fund.ID() {
		errs = errors.Join(errs, invalid(op, ErrFundNotFound, "order for %s priced with fund %s", o.Fund, fund.ID()))
	}
	if !o.Amount.IsPositive() {
		errs = errors.Join(errs, invalid(op, ErrNonPositiveAmount, "amount must be positive"))
	} else if o.Amount.Currency() != fund.Currency() {
		errs = errors.Join(errs, invalid(op, ErrCurrencyMismatch, "fund %s trades in %s, not %s", fund.ID(), fund.Currency(), o.Amount.Currency()))
	} else if min := fund.Rules.MinimumFor(existing != nil); o.Amount.LessThan(min) {
		errs = errors.Join(errs, invalid(op, ErrBelowMinimum, "minimum purchase is %s, got %s", min, o.Amount))
	}
	if !o.DisclosureAccepted {
		errs = errors.Join(errs, invalid(op, ErrDisclosureRequired, "the risk disclosure must be accepted"))
	}
	return errs
}

// RedemptionOrder is a request to sell units of a position. Exactly one of
// Units, Percent or All is set.
type RedemptionOrder struct {
	PositionID string
	Units      Units
	Percent    decimal.Decimal // 0 < Percent <= 100
	All        bool
}

// Resolve returns the units the order sells out of p.
func (o RedemptionOrder) Resolve(p Position) (Units, error) {
	const op = "redeem"
	if !p.IsOpen() {
		return Units{}, invalid(op, ErrPositionClosed, "position %s is fully sold", p.ID)
	}
	set := 0
	for _, b := range []bool{!o.Units.IsZero(), !o.Percent.IsZero(), o.All} {
		if b {
			set++
		}
	}
	if set != 1 {
		return Units{}, invalid(op, ErrUnitsOutOfRange, "exactly one of units, percent or all must be given")
	}
	switch {
	case o.All:
		return p.Units, nil
	case !o.Percent.IsZero():
		return UnitsForPercent(p.Units, o.Percent)
	}
	if !o.Units.IsPositive() || o.Units.GreaterThan(p.Units) {
		return Units{}, invalid(op, ErrUnitsOutOfRange, "units must be within (0, %s], got %s", p.Units, o.Units)
	}
	return o.Units, nil
}
