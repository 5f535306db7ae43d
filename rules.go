package fundtrade

import "errors"

// TradeRules are the per-fund trading constraints.
type TradeRules struct {
	MinInitial    Money
	MinAdditional Money
	PurchaseLag   int // business days from trade to settlement
	RedemptionLag int
}

// MinimumFor returns the minimum purchase: the additional minimum when the
// customer already holds an open position, the initial one otherwise.
func (r TradeRules) MinimumFor(hasPosition bool) Money {
	if hasPosition {
		return r.MinAdditional
	}
	return r.MinInitial
}

// Validate checks the lags and minimums are not negative.
func (r TradeRules) Validate() error {
	var errs error
	if r.MinInitial.IsNegative() || r.MinAdditional.IsNegative() {
		errs = errors.Join(errs, invalid("rules", ErrBelowMinimum, "minimum amounts must not be negative"))
	}
	if r.PurchaseLag < 0 || r.RedemptionLag < 0 {
		errs = errors.Join(errs, invalid("rules", ErrInvalidSettlement, "settlement lags must not be negative, got T+%d/T+%d", r.PurchaseLag, r.RedemptionLag))
	}
	return errs
}
