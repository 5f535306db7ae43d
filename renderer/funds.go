package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/fundtrade"
	md "github.com/nao1215/markdown"
)

// FundsMarkdown renders the fund list with NAV, fees and settlement lags.
func FundsMarkdown(funds []fundtrade.Fund) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Funds")
	if len(funds) == 0 {
		doc.PlainText("No fund on offer.")
		return doc.String()
	}

	rows := make([][]string, 0, len(funds))
	for _, f := range funds {
		asOf := "-"
		if !f.Class.NAV.AsOf.IsZero() {
			asOf = f.Class.NAV.AsOf.String()
		}
		rows = append(rows, []string{
			string(f.ID()),
			f.Class.Name,
			price(f.Class.NAV.Value),
			asOf,
			f.Fees.PurchaseFeeRate().String(),
			fmt.Sprintf("%s bps", f.Fees.TotalFeeBps()),
			f.Rules.MinInitial.String(),
			fundtrade.SettlementLabel(f.Rules.PurchaseLag) + " / " + fundtrade.SettlementLabel(f.Rules.RedemptionLag),
			yesNo(f.Class.Active && f.Class.OnSale),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Code", "Name", "NAV", "As of", "Purchase fee", "Annual fees", "Minimum", "Settlement", "On sale"},
		Rows:   rows,
	})
	return doc.String()
}

// FundMarkdown renders the detail of one fund.
func FundMarkdown(f fundtrade.Fund) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("%s %s", f.ID(), f.Class.Name))
	doc.H2("Fees")
	rows := [][]string{
		{"Purchase", f.Fees.Describe()},
		{"Sales", fmt.Sprintf("%s bps", f.Fees.SalesBps)},
		{"Management", fmt.Sprintf("%s bps", f.Fees.ManagementBps)},
		{"Trustee", fmt.Sprintf("%s bps", f.Fees.TrusteeBps)},
		{"Administration", fmt.Sprintf("%s bps", f.Fees.AdminBps)},
		{"Total", fmt.Sprintf("%s bps", f.Fees.TotalFeeBps())},
	}
	if f.Fees.RedemptionFee != nil && f.Fees.RedemptionDays > 0 {
		rows = append(rows, []string{"Redemption", fmt.Sprintf("%s within %d days", f.Fees.RedemptionFee, f.Fees.RedemptionDays)})
	}
	doc.Table(md.TableSet{Header: []string{"Fee", "Rate"}, Rows: rows})

	doc.H2("Rules")
	doc.Table(md.TableSet{
		Header: []string{"Rule", "Value"},
		Rows: [][]string{
			{"First purchase minimum", f.Rules.MinInitial.String()},
			{"Additional purchase minimum", f.Rules.MinAdditional.String()},
			{"Purchase settlement", fundtrade.SettlementLabel(f.Rules.PurchaseLag)},
			{"Redemption settlement", fundtrade.SettlementLabel(f.Rules.RedemptionLag)},
		},
	})
	return doc.String()
}
