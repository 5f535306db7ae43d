package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/fundtrade"
	md "github.com/nao1215/markdown"
)

const estimateNote = "Estimate at the latest published NAV. The executed trade uses the NAV of the trade date and may differ."

// PurchaseQuoteMarkdown renders a purchase estimate.
func PurchaseQuoteMarkdown(plan fundtrade.PurchasePlan, fund fundtrade.Fund) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	q := plan.Quote

	doc.H2(fmt.Sprintf("Purchase of %s %s", fund.ID(), fund.Class.Name))
	doc.Table(md.TableSet{
		Header: []string{"Item", "Value"},
		Rows: [][]string{
			{"Amount", q.Amount.String()},
			{"Purchase fee", fmt.Sprintf("%s (%s)", q.Fee, q.FeeRate)},
			{"Invested", q.Net.String()},
			{"NAV", price(q.NAV)},
			{"Units", q.Units.String()},
			{"Settlement", fmt.Sprintf("%s (%s)", plan.Settlement, fundtrade.SettlementLabel(fund.Rules.PurchaseLag))},
		},
	})
	doc.PlainText(estimateNote)
	return doc.String()
}

// RedemptionQuoteMarkdown renders a redemption estimate.
func RedemptionQuoteMarkdown(plan fundtrade.RedemptionPlan, fund fundtrade.Fund) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	q := plan.Quote

	doc.H2(fmt.Sprintf("Redemption of %s from %s", plan.Position.ID, fund.ID()))
	doc.Table(md.TableSet{
		Header: []string{"Item", "Value"},
		Rows: [][]string{
			{"Units", q.Units.String()},
			{"NAV", price(q.NAV)},
			{"Gross amount", q.Gross.String()},
			{"Redemption fee", fmt.Sprintf("%s (%s)", q.Fee, q.FeeRate)},
			{"Net amount", q.Net.String()},
			{"Average price", price(q.AveragePrice)},
			{"Profit", q.Profit.SignedString()},
			{"Return", q.ProfitRate.SignedString()},
			{"Remaining units", q.Remaining.String()},
			{"Settlement", fmt.Sprintf("%s (%s)", plan.Settlement, fundtrade.SettlementLabel(fund.Rules.RedemptionLag))},
		},
	})
	doc.PlainText(estimateNote)
	return doc.String()
}

// ConfirmationMarkdown renders a recorded trade and, when it was confirmed
// by the backend, how far the estimate was off.
func ConfirmationMarkdown(tx fundtrade.Transaction, drift *fundtrade.Drift) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	status := "recorded locally"
	if tx.Confirmed {
		status = "confirmed"
	}
	doc.H2(fmt.Sprintf("%s %s", tx.Type, status))
	doc.PlainText(Transaction(tx))
	if drift != nil && !drift.IsZero() {
		doc.H3("Difference with the estimate")
		doc.Table(md.TableSet{
			Header: []string{"Item", "Difference"},
			Rows: [][]string{
				{"Units", drift.Units.String()},
				{"Amount", drift.Amount.SignedString()},
				{"Fee", drift.Fee.SignedString()},
				{"Profit", drift.Profit.SignedString()},
			},
		})
	}
	return doc.String()
}
