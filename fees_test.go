package fundtrade

import (
	"errors"
	"strings"
	"testing"

	"github.com/etnz/fundtrade/date"
)

func TestFeeSchedule_PurchaseFeeRate(t *testing.T) {
	front := RateFromPercent(1)
	tests := []struct {
		name string
		fees FeeSchedule
		want Rate
	}{
		{"sales bps only", FeeSchedule{SalesBps: D("50")}, RateFromFraction(D("0.005"))},
		{"front-load only", FeeSchedule{FrontLoad: &front}, RateFromFraction(D("0.01"))},
		{"front-load wins", FeeSchedule{SalesBps: D("50"), FrontLoad: &front}, RateFromFraction(D("0.01"))},
		{"no fee", FeeSchedule{}, Rate{}},
	}
	for _, tt := range tests {
		if got := tt.fees.PurchaseFeeRate(); !got.Equal(tt.want) {
			t.Errorf("%s: PurchaseFeeRate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFeeSchedule_RedemptionFeeRate(t *testing.T) {
	rate := RateFromPercent(D("0.5"))
	fees := FeeSchedule{RedemptionFee: &rate, RedemptionDays: 90}
	bought := date.New(2025, 1, 1)

	tests := []struct {
		on   date.Date
		want Rate
	}{
		{bought, rate},
		{bought.Add(89), rate},
		{bought.Add(90), Rate{}},
		{bought.Add(365), Rate{}},
	}
	for _, tt := range tests {
		if got := fees.RedemptionFeeRate(bought, tt.on); !got.Equal(tt.want) {
			t.Errorf("RedemptionFeeRate(%s) = %v, want %v", tt.on, got, tt.want)
		}
	}

	if got := (FeeSchedule{}).RedemptionFeeRate(bought, bought); !got.IsZero() {
		t.Errorf("RedemptionFeeRate() without schedule = %v, want 0", got)
	}
}

func TestFeeSchedule_TotalFeeBps(t *testing.T) {
	fees := FeeSchedule{SalesBps: D("50"), ManagementBps: D("80"), TrusteeBps: D("3"), AdminBps: D("2")}
	if got := fees.TotalFeeBps(); !got.Equal(D("135")) {
		t.Errorf("TotalFeeBps() = %v, want 135", got)
	}
	fees.TotalBps = D("140")
	if got := fees.TotalFeeBps(); !got.Equal(D("140")) {
		t.Errorf("TotalFeeBps() = %v, want published 140", got)
	}
}

func TestFeeSchedule_Validate(t *testing.T) {
	bad := RateFromPercent(120)
	fees := FeeSchedule{SalesBps: D("-1"), FrontLoad: &bad, RedemptionDays: -3}
	err := fees.Validate()
	if !errors.Is(err, ErrInvalidFees) {
		t.Fatalf("Validate() = %v, want ErrInvalidFees", err)
	}
	for _, want := range []string{"sales fee must not be negative", "front-load", "holding period"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %q, want it to mention %q", err, want)
		}
	}

	if err := testFund(1000).Fees.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTradeRules_MinimumFor(t *testing.T) {
	rules := TradeRules{MinInitial: KRW(10000), MinAdditional: KRW(1000)}
	assertMoney(t, "MinimumFor(false)", rules.MinimumFor(false), KRW(10000))
	assertMoney(t, "MinimumFor(true)", rules.MinimumFor(true), KRW(1000))

	if err := (TradeRules{PurchaseLag: -1}).Validate(); err == nil {
		t.Error("Validate() with negative lag = nil, want error")
	}
}

func TestSettlementCalculator(t *testing.T) {
	friday := date.New(2025, 3, 7)
	saturday := date.New(2025, 3, 8)
	holidays := date.NewHolidayCalendar(date.New(2025, 3, 10))

	tests := []struct {
		name  string
		cal   date.Calendar
		trade date.Date
		lag   int
		want  date.Date
	}{
		{"T+0 weekday", nil, friday, 0, friday},
		{"T+2 over weekend", nil, friday, 2, date.New(2025, 3, 11)},
		{"T+0 on saturday", nil, saturday, 0, date.New(2025, 3, 10)},
		{"T+1 on saturday", nil, saturday, 1, date.New(2025, 3, 11)},
		{"T+2 over holiday", holidays, friday, 2, date.New(2025, 3, 12)},
		{"T+0 on holiday", holidays, date.New(2025, 3, 10), 0, date.New(2025, 3, 11)},
	}
	for _, tt := range tests {
		s := SettlementCalculator{Calendar: tt.cal}
		got, err := s.Settle(tt.trade, tt.lag)
		if err != nil {
			t.Errorf("%s: Settle() error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: Settle(%s, %s) = %s, want %s", tt.name, tt.trade, SettlementLabel(tt.lag), got, tt.want)
		}
	}

	rules := TradeRules{PurchaseLag: 2, RedemptionLag: 3}
	s := SettlementCalculator{}
	if got, _ := s.PurchaseSettlement(friday, rules); got != date.New(2025, 3, 11) {
		t.Errorf("PurchaseSettlement() = %s, want 2025-03-11", got)
	}
	if got, _ := s.RedemptionSettlement(friday, rules); got != date.New(2025, 3, 12) {
		t.Errorf("RedemptionSettlement() = %s, want 2025-03-12", got)
	}
	if _, err := s.Settle(friday, -1); err == nil {
		t.Error("Settle() with negative lag = nil, want error")
	}
	if got := SettlementLabel(3); got != "T+3" {
		t.Errorf("SettlementLabel(3) = %q, want T+3", got)
	}
}
