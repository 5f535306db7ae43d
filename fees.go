package fundtrade

import (
	"errors"
	"fmt"

	"github.com/etnz/fundtrade/date"
	"github.com/shopspring/decimal"
)

// FeeSchedule is the static fee table of a fund class. Annual fees are in
// basis points; they are informational for trade pricing.
type FeeSchedule struct {
	SalesBps      decimal.Decimal
	ManagementBps decimal.Decimal
	TrusteeBps    decimal.Decimal
	AdminBps      decimal.Decimal
	TotalBps      decimal.Decimal // as published, may be zero

	// FrontLoad, when set, is deducted from purchases instead of SalesBps.
	FrontLoad *Rate

	// RedemptionFee applies to redemptions within RedemptionDays of the first purchase.
	RedemptionFee  *Rate
	RedemptionDays int
}

// PurchaseFeeRate returns the rate deducted from a purchase amount. The
// front-load percentage wins over the sales fee when both are published.
func (s FeeSchedule) PurchaseFeeRate() Rate {
	if s.FrontLoad != nil {
		return *s.FrontLoad
	}
	return RateFromBps(s.SalesBps)
}

// TotalFeeBps returns the published total, or the sum of the four annual fees.
func (s FeeSchedule) TotalFeeBps() decimal.Decimal {
	if !s.TotalBps.IsZero() {
		return s.TotalBps
	}
	return s.SalesBps.Add(s.ManagementBps).Add(s.TrusteeBps).Add(s.AdminBps)
}

// RedemptionFeeRate returns the scheduled redemption fee for units first
// bought on held and sold on on. The fee applies while the holding period is
// strictly shorter than RedemptionDays.
func (s FeeSchedule) RedemptionFeeRate(held, on date.Date) Rate {
	if s.RedemptionFee == nil || s.RedemptionDays <= 0 {
		return Rate{}
	}
	if on.DaysSince(held) < s.RedemptionDays {
		return *s.RedemptionFee
	}
	return Rate{}
}

// Validate reports every inconsistency of the schedule at once.
func (s FeeSchedule) Validate() error {
	var errs error
	check := func(name string, bps decimal.Decimal) {
		if bps.IsNegative() {
			errs = errors.Join(errs, invalid("fees", ErrInvalidFees, "%s must not be negative, got %s bps", name, bps))
		}
	}
	check("sales fee", s.SalesBps)
	check("management fee", s.ManagementBps)
	check("trustee fee", s.TrusteeBps)
	check("admin fee", s.AdminBps)
	check("total fee", s.TotalBps)
	if err := RateFromBps(s.SalesBps).Validate(); err != nil {
		errs = errors.Join(errs, invalid("fees", ErrInvalidFees, "sales fee: %v", err))
	}
	if s.FrontLoad != nil {
		if err := s.FrontLoad.Validate(); err != nil {
			errs = errors.Join(errs, invalid("fees", ErrInvalidFees, "front-load: %v", err))
		}
	}
	if s.RedemptionFee != nil {
		if err := s.RedemptionFee.Validate(); err != nil {
			errs = errors.Join(errs, invalid("fees", ErrInvalidFees, "redemption fee: %v", err))
		}
	}
	if s.RedemptionDays < 0 {
		errs = errors.Join(errs, invalid("fees", ErrInvalidFees, "redemption holding period must not be negative, got %d days", s.RedemptionDays))
	}
	return errs
}

// Describe summarizes the purchase side of the schedule, e.g. "front-load 1%".
func (s FeeSchedule) Describe() string {
	if s.FrontLoad != nil {
		return fmt.Sprintf("front-load %s", s.FrontLoad)
	}
	return fmt.Sprintf("sales %s bps", s.SalesBps)
}
