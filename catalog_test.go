package fundtrade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/etnz/fundtrade/date"
)

const testCatalog = `
currency = "KRW"

[[fund]]
code = "K55101"
fund_code = "K551"
class_code = "A"
name = "Growth Equity A"

[fund.fees]
sales_bps = "50"
management_bps = "80"
front_load_pct = "1"
redemption_fee_pct = "0.5"
redemption_days = 90

[fund.rules]
min_initial = "10,000"
min_additional = "1,000"
purchase_lag = 2
redemption_lag = 3

[[fund.nav]]
date = "2025-03-04"
value = "1012.5"

[[fund.nav]]
date = "2025-03-03"
value = "1000"

[[fund]]
code = "K55102"
name = "Bond Income C"
on_sale = false

[fund.fees]
sales_bps = "0"
`

func TestDecodeCatalog(t *testing.T) {
	c, err := DecodeCatalog(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("DecodeCatalog() error = %v", err)
	}
	funds := c.Funds()
	if len(funds) != 2 {
		t.Fatalf("len(Funds()) = %d, want 2", len(funds))
	}

	f, err := c.Fund("K55101")
	if err != nil {
		t.Fatalf("Fund() error = %v", err)
	}
	if !f.Fees.PurchaseFeeRate().Equal(RateFromPercent(1)) {
		t.Errorf("PurchaseFeeRate() = %v, want 1%%", f.Fees.PurchaseFeeRate())
	}
	assertMoney(t, "MinInitial", f.Rules.MinInitial, KRW(10000))
	if f.Rules.RedemptionLag != 3 {
		t.Errorf("RedemptionLag = %d, want 3", f.Rules.RedemptionLag)
	}
	if !f.Class.Active || !f.Class.OnSale {
		t.Errorf("Active, OnSale = %v, %v, want true, true", f.Class.Active, f.Class.OnSale)
	}

	nav, err := c.LatestNAV(context.Background(), "K55101")
	if err != nil {
		t.Fatalf("LatestNAV() error = %v", err)
	}
	assertMoney(t, "LatestNAV", nav.Value, KRW(1012.5))
	if nav.AsOf != date.New(2025, 3, 4) {
		t.Errorf("LatestNAV().AsOf = %s, want 2025-03-04", nav.AsOf)
	}

	nav, err = c.NAVAsOf("K55101", date.New(2025, 3, 3))
	if err != nil {
		t.Fatalf("NAVAsOf() error = %v", err)
	}
	assertMoney(t, "NAVAsOf", nav.Value, KRW(1000))

	if _, err := c.NAVAsOf("K55101", date.New(2025, 1, 1)); !errors.Is(err, ErrNavUnavailable) {
		t.Errorf("NAVAsOf(before history) error = %v, want ErrNavUnavailable", err)
	}
	if _, err := c.LatestNAV(context.Background(), "K55102"); !errors.Is(err, ErrNavUnavailable) {
		t.Errorf("LatestNAV(no history) error = %v, want ErrNavUnavailable", err)
	}
	if _, err := c.Fund("nope"); KindOf(err) != KindNotFound {
		t.Errorf("Fund(unknown) kind = %v, want not found", KindOf(err))
	}

	bond, _ := c.Fund("K55102")
	if bond.Class.OnSale {
		t.Error("K55102 OnSale = true, want false")
	}
	if bond.Currency() != "KRW" {
		t.Errorf("K55102 currency = %s, want catalog default KRW", bond.Currency())
	}
}

func TestDecodeCatalog_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad number", "[[fund]]\ncode = \"F\"\n[fund.fees]\nsales_bps = \"fifty\"\n", "sales_bps"},
		{"negative nav", "[[fund]]\ncode = \"F\"\n[[fund.nav]]\ndate = \"2025-01-01\"\nvalue = \"-1\"\n", "must be positive"},
		{"bad date", "[[fund]]\ncode = \"F\"\n[[fund.nav]]\ndate = \"01/02/2025\"\nvalue = \"1\"\n", "invalid date"},
		{"duplicate", "[[fund]]\ncode = \"F\"\n[[fund]]\ncode = \"F\"\n", "duplicate"},
		{"unknown field", "[[fund]]\ncode = \"F\"\nprice = 3\n", "strict mode"},
	}
	for _, tt := range tests {
		_, err := DecodeCatalog(strings.NewReader(tt.input))
		if err == nil {
			t.Errorf("%s: DecodeCatalog() = nil error, want error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: DecodeCatalog() error = %q, want it to mention %q", tt.name, err, tt.want)
		}
	}
}
