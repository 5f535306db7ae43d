package fundtrade

import (
	"context"
	"errors"

	"github.com/etnz/fundtrade/date"
)

// FundID identifies a fund class, the backend's child fund code.
type FundID string

// NAV is a fund's published per-unit price on a date.
type NAV struct {
	Value Money
	AsOf  date.Date
}

// Available reports whether the NAV can be used to convert cash and units.
func (n NAV) Available() bool { return n.Value.IsPositive() }

// FundClass is the identity and latest NAV of a fund class. It is replaced
// wholesale when a new NAV is published.
type FundClass struct {
	ID        FundID
	FundCode  string
	ClassCode string
	Name      string
	Currency  string
	NAV       NAV
	Active    bool
	OnSale    bool
}

// Fund bundles what is needed to price a trade on a fund class.
type Fund struct {
	Class FundClass
	Fees  FeeSchedule
	Rules TradeRules
}

func (f Fund) ID() FundID { return f.Class.ID }

// Currency returns the fund currency, DefaultCurrency if unset.
func (f Fund) Currency() string {
	if f.Class.Currency == "" {
		return DefaultCurrency
	}
	return f.Class.Currency
}

// Validate checks the fund definition is usable for pricing.
func (f Fund) Validate() error {
	var errs error
	if f.Class.ID == "" {
		errs = errors.Join(errs, invalid("fund", ErrFundNotFound, "fund class has no code"))
	}
	if err := f.Fees.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	if err := f.Rules.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	return errs
}

// NavSource returns the latest published NAV of a fund class.
type NavSource interface {
	LatestNAV(ctx context.Context, id FundID) (NAV, error)
}

// NavLookup resolves the NAV used to value a position.
type NavLookup func(FundID) (NAV, bool)

// NavMap adapts a map to a NavLookup.
func NavMap(m map[FundID]NAV) NavLookup {
	return func(id FundID) (NAV, bool) {
		n, ok := m[id]
		return n, ok
	}
}

// CollectNAVs fetches the latest NAV of every fund held by positions, once per fund.
func CollectNAVs(ctx context.Context, src NavSource, positions []Position) (map[FundID]NAV, error) {
	navs := make(map[FundID]NAV)
	var errs error
	for _, p := range positions {
		if _, done := navs[p.Fund]; done {
			continue
		}
		nav, err := src.LatestNAV(ctx, p.Fund)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		navs[p.Fund] = nav
	}
	return navs, errs
}
