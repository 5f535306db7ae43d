package fundtrade

import (
	"errors"
	"testing"
)

func position(id string, fund FundID, invested, units float64, status Status) Position {
	return Position{
		ID:             id,
		Customer:       "alice",
		Fund:           fund,
		Currency:       "KRW",
		PurchaseAmount: KRW(invested),
		CostBasis:      KRW(invested),
		Units:          U(units),
		Status:         status,
	}
}

func TestAggregate(t *testing.T) {
	positions := []Position{
		position("p1", "A", 1000000, 1000, Active),
		position("p2", "B", 500000, 400, PartialSold),
		position("p3", "A", 300000, 0, FullySold),
	}
	navs := NavMap(map[FundID]NAV{
		"A": {Value: KRW(1100)},
		"B": {Value: KRW(1200)},
	})

	s, err := Aggregate(positions, navs, AsRecorded)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(s.Holdings) != 2 {
		t.Fatalf("len(Holdings) = %d, want 2 (fully sold skipped)", len(s.Holdings))
	}
	assertMoney(t, "TotalInvestment", s.TotalInvestment, KRW(1500000))
	assertMoney(t, "TotalValue", s.TotalValue, KRW(1580000))
	assertMoney(t, "TotalReturn", s.TotalReturn, KRW(80000))
	if !s.TotalReturnRate.Equal(5.3333) {
		t.Errorf("TotalReturnRate = %v, want 5.3333", s.TotalReturnRate)
	}
	assertMoney(t, "p2 gain", s.Holdings[1].Gain, KRW(-20000))
	if !s.Holdings[1].ReturnRate.Equal(-4) {
		t.Errorf("p2 ReturnRate = %v, want -4", s.Holdings[1].ReturnRate)
	}

	again, err := Aggregate(positions, navs, AsRecorded)
	if err != nil {
		t.Fatalf("Aggregate() second fold error = %v", err)
	}
	if !again.TotalValue.Equal(s.TotalValue) || !again.TotalInvestment.Equal(s.TotalInvestment) || again.TotalReturnRate != s.TotalReturnRate {
		t.Errorf("second fold = %+v, want %+v", again, s)
	}
}

func TestAggregate_WeightedAverage(t *testing.T) {
	p := position("p1", "A", 1000000, 900, PartialSold)
	p.CostBasis = KRW(900000)
	s, err := Aggregate([]Position{p}, NavMap(map[FundID]NAV{"A": {Value: KRW(1000)}}), WeightedAverage)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	assertMoney(t, "TotalInvestment", s.TotalInvestment, KRW(900000))
	if !s.TotalReturn.IsZero() {
		t.Errorf("TotalReturn = %v, want 0", s.TotalReturn)
	}
}

func TestAggregate_Empty(t *testing.T) {
	s, err := Aggregate(nil, NavMap(nil), AsRecorded)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !s.TotalInvestment.IsZero() || !s.TotalValue.IsZero() || s.TotalReturnRate != 0 {
		t.Errorf("Aggregate(nil) = %+v, want zero totals", s)
	}

	// Zero invested cash must not divide by zero.
	s, err = Aggregate([]Position{position("p1", "A", 0, 10, Active)}, NavMap(map[FundID]NAV{"A": {Value: KRW(100)}}), AsRecorded)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if s.TotalReturnRate != 0 {
		t.Errorf("TotalReturnRate = %v, want 0", s.TotalReturnRate)
	}
}

func TestAggregate_Errors(t *testing.T) {
	eur := position("p2", "B", 1000, 10, Active)
	eur.Currency = "EUR"
	eur.PurchaseAmount = EUR(1000)
	navs := NavMap(map[FundID]NAV{"A": {Value: KRW(1000)}, "B": {Value: EUR(100)}})

	_, err := Aggregate([]Position{position("p1", "A", 1000, 1, Active), eur}, navs, AsRecorded)
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Aggregate(mixed currencies) error = %v, want ErrCurrencyMismatch", err)
	}

	_, err = Aggregate([]Position{position("p1", "C", 1000, 1, Active)}, navs, AsRecorded)
	if !errors.Is(err, ErrNavUnavailable) {
		t.Errorf("Aggregate(unknown NAV) error = %v, want ErrNavUnavailable", err)
	}
}
