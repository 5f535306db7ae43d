package fundtrade

import (
	"testing"

	"github.com/etnz/fundtrade/date"
	"github.com/shopspring/decimal"
)

// KRW is a helper for test to create won money from const
func KRW(v float64) Money { return M(v, "KRW") }

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// D parses a decimal, for exact test constants.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// sequentialIDs returns an ID generator yielding "id-1", "id-2", ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + decimal.NewFromInt(int64(n)).String()
	}
}

// testFund is a KRW fund with a 1% front-load, T+2/T+3 settlement and a
// 0.5% redemption fee during the first 90 days.
func testFund(nav float64) Fund {
	front := RateFromPercent(1)
	redemption := RateFromPercent(decimal.RequireFromString("0.5"))
	return Fund{
		Class: FundClass{
			ID:       "K55101",
			Name:     "Test Equity Fund A",
			Currency: "KRW",
			NAV:      NAV{Value: KRW(nav), AsOf: date.New(2025, 3, 3)},
			Active:   true,
			OnSale:   true,
		},
		Fees: FeeSchedule{
			SalesBps:       D("50"),
			ManagementBps:  D("80"),
			FrontLoad:      &front,
			RedemptionFee:  &redemption,
			RedemptionDays: 90,
		},
		Rules: TradeRules{
			MinInitial:    KRW(10000),
			MinAdditional: KRW(1000),
			PurchaseLag:   2,
			RedemptionLag: 3,
		},
	}
}

func assertMoney(t *testing.T, name string, got, want Money) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v (%s), want %v (%s)", name, got.Decimal(), got.Currency(), want.Decimal(), want.Currency())
	}
}

func assertUnits(t *testing.T, name string, got, want Units) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}
