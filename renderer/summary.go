package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/fundtrade"
	md "github.com/nao1215/markdown"
)

// PositionsMarkdown renders each open position valued at its latest NAV.
func PositionsMarkdown(s fundtrade.Summary, method fundtrade.CostBasisMethod) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Positions")
	if len(s.Holdings) == 0 {
		doc.PlainText("No open position.")
		return doc.String()
	}
	rows := make([][]string, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		rows = append(rows, []string{
			h.Position.ID,
			string(h.Position.Fund),
			h.Position.Units.String(),
			price(h.Average),
			price(h.NAV.Value),
			h.Invested.String(),
			h.Value.String(),
			h.Gain.SignedString(),
			h.ReturnRate.SignedString(),
			string(h.Position.Status),
		})
	}
	doc.PlainText(fmt.Sprintf("Average prices use the %s cost basis.", method))
	doc.Table(md.TableSet{
		Header: []string{"Position", "Fund", "Units", "Average price", "NAV", "Invested", "Value", "Gain", "Return", "Status"},
		Rows:   rows,
	})
	return doc.String()
}

// SummaryMarkdown renders the portfolio totals.
func SummaryMarkdown(s fundtrade.Summary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolio Summary")
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Open positions", fmt.Sprint(len(s.Holdings))},
			{"Invested", s.TotalInvestment.String()},
			{"Value", s.TotalValue.String()},
			{"Return", s.TotalReturn.SignedString()},
			{"Return rate", s.TotalReturnRate.SignedString()},
		},
	})
	return doc.String()
}
