package fundtrade

import "github.com/etnz/fundtrade/date"

// Status is the lifecycle stage of a position.
type Status string

const (
	Active      Status = "ACTIVE"
	PartialSold Status = "PARTIAL_SOLD"
	FullySold   Status = "FULLY_SOLD"
)

// ParseStatus accepts the backend status names.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case Active, PartialSold, FullySold:
		return st, nil
	default:
		return "", invalid("status", ErrInvalidEntry, "unknown position status %q", s)
	}
}

// Position is a customer's holding in one fund class, from the first purchase
// until it is fully redeemed. Positions are never deleted.
type Position struct {
	ID       string
	Customer string
	Fund     FundID
	Currency string
	OpenedOn date.Date

	PurchaseAmount Money // cumulative cash paid, never reduced
	PurchaseFees   Money // cumulative purchase fees
	CostBasis      Money // cash paid for the units still held
	UnitsPurchased Units // all-time
	Units          Units // currently held
	RealizedProfit Money
	Status         Status
}

// IsOpen reports whether the position still accepts trades.
func (p Position) IsOpen() bool { return p.Status != FullySold }

// AveragePrice returns the average purchase price of the units held, zero
// once the position is fully sold.
func (p Position) AveragePrice(method CostBasisMethod) Money {
	if !p.Units.IsPositive() {
		return M(0, p.Currency)
	}
	return p.Invested(method).DivUnits(p.Units)
}

// Invested returns the principal the position is measured against.
func (p Position) Invested(method CostBasisMethod) Money {
	if method == WeightedAverage {
		return p.CostBasis
	}
	return p.PurchaseAmount
}

// Value returns the current value of the units held at nav.
func (p Position) Value(nav Money) Money { return nav.MulUnits(p.Units).Round() }

// UnrealizedGain returns the value at nav minus the invested principal.
func (p Position) UnrealizedGain(nav Money, method CostBasisMethod) Money {
	return p.Value(nav).Sub(p.Invested(method))
}

// open creates the position a first purchase starts.
func open(tx Transaction) Position {
	cur := tx.Amount.Currency()
	return Position{
		ID:             tx.PositionID,
		Customer:       tx.Customer,
		Fund:           tx.Fund,
		Currency:       cur,
		OpenedOn:       tx.TradeDate,
		PurchaseAmount: M(0, cur),
		PurchaseFees:   M(0, cur),
		CostBasis:      M(0, cur),
		RealizedProfit: M(0, cur),
		Status:         Active,
	}
}

// apply returns the position after tx. p is left untouched.
func (p Position) apply(tx Transaction) (Position, error) {
	if !p.IsOpen() {
		return p, invalid(string(tx.Type), ErrPositionClosed, "position %s is fully sold", p.ID)
	}
	if tx.Fund != p.Fund {
		return p, invalid(string(tx.Type), ErrFundNotFound, "position %s holds %s, not %s", p.ID, p.Fund, tx.Fund)
	}
	if tx.Amount.Currency() != p.Currency {
		return p, invalid(string(tx.Type), ErrCurrencyMismatch, "position %s is in %s, transaction in %s", p.ID, p.Currency, tx.Amount.Currency())
	}
	switch tx.Type {
	case Buy:
		p.Units = p.Units.Add(tx.Units)
		p.UnitsPurchased = p.UnitsPurchased.Add(tx.Units)
		p.PurchaseAmount = p.PurchaseAmount.Add(tx.Amount)
		p.PurchaseFees = p.PurchaseFees.Add(tx.Fee)
		p.CostBasis = p.CostBasis.Add(tx.Amount)
	case Sell:
		if tx.Units.GreaterThan(p.Units) {
			return p, invalid("sell", ErrUnitsOutOfRange, "units must be within (0, %s], got %s", p.Units, tx.Units)
		}
		if tx.Units.Equal(p.Units) {
			p.CostBasis = M(0, p.Currency)
		} else {
			sold := p.CostBasis.MulUnits(U(tx.Units.Div(p.Units))).Round()
			p.CostBasis = p.CostBasis.Sub(sold)
		}
		p.Units = p.Units.Sub(tx.Units)
		p.RealizedProfit = p.RealizedProfit.Add(tx.Profit)
		next := PartialSold
		if p.Units.IsZero() {
			next = FullySold
		}
		p.Status = next
	default:
		return p, invalid("record", ErrInvalidEntry, "unknown transaction type %q", tx.Type)
	}
	return p, nil
}
