package fundtrade

// Holding is one open position valued at its fund's latest NAV.
type Holding struct {
	Position   Position
	NAV        NAV
	Average    Money
	Invested   Money
	Value      Money
	Gain       Money
	ReturnRate Percent
}

// Summary is the portfolio view of a set of positions.
type Summary struct {
	Currency        string
	Holdings        []Holding
	TotalInvestment Money
	TotalValue      Money
	TotalReturn     Money
	TotalReturnRate Percent
}

// Aggregate folds the open positions into portfolio totals. Fully sold
// positions are skipped. It has no side effects, so folding the same
// positions twice yields the same Summary.
//
// A position whose NAV is unknown is an error, as is a position in another
// currency than the first one.
func Aggregate(positions []Position, navs NavLookup, method CostBasisMethod) (Summary, error) {
	const op = "aggregate"
	s := Summary{}
	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		if s.Currency == "" {
			s.Currency = p.Currency
			s.TotalInvestment = M(0, p.Currency)
			s.TotalValue = M(0, p.Currency)
		}
		if p.Currency != s.Currency {
			return Summary{}, invalid(op, ErrCurrencyMismatch, "position %s is in %s, portfolio in %s", p.ID, p.Currency, s.Currency)
		}
		nav, ok := navs(p.Fund)
		if !ok || !nav.Available() {
			return Summary{}, notFound(op, ErrNavUnavailable, "no NAV for %s", p.Fund)
		}
		if nav.Value.Currency() != s.Currency {
			return Summary{}, invalid(op, ErrCurrencyMismatch, "NAV of %s is in %s, portfolio in %s", p.Fund, nav.Value.Currency(), s.Currency)
		}
		invested := p.Invested(method)
		value := p.Value(nav.Value)
		gain := value.Sub(invested)
		s.Holdings = append(s.Holdings, Holding{
			Position:   p,
			NAV:        nav,
			Average:    p.AveragePrice(method),
			Invested:   invested,
			Value:      value,
			Gain:       gain,
			ReturnRate: percentOf(gain.Decimal(), invested.Decimal()),
		})
		s.TotalInvestment = s.TotalInvestment.Add(invested)
		s.TotalValue = s.TotalValue.Add(value)
	}
	if s.Currency == "" {
		s.Currency = DefaultCurrency
		s.TotalInvestment = M(0, DefaultCurrency)
		s.TotalValue = M(0, DefaultCurrency)
	}
	s.TotalReturn = s.TotalValue.Sub(s.TotalInvestment)
	s.TotalReturnRate = percentOf(s.TotalReturn.Decimal(), s.TotalInvestment.Decimal())
	return s, nil
}
