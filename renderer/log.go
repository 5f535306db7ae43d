package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/fundtrade"
)

// LogMarkdown renders the ledger as a table, followed by the entries still
// waiting for a backend confirmation.
func LogMarkdown(txs []fundtrade.Transaction) string {
	r := &logRenderer{Builder: &strings.Builder{}}

	r.Printf("# Transactions\n\n")
	if len(txs) == 0 {
		r.Printf("No transaction.\n")
		return r.String()
	}
	r.Printf("| Date | Position | Fund | Type | Units | NAV | Amount | Fee | Profit | Settles |\n")
	r.Printf("|:---|:---|:---|:---|---:|---:|---:|---:|---:|:---|\n")
	for _, tx := range txs {
		r.row(tx)
	}

	ConditionalBlock(r, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Unconfirmed estimates\n\n")
		pending := 0
		for _, tx := range txs {
			if !tx.Confirmed {
				fmt.Fprintf(w, "- %s %s\n", tx.TradeDate, Transaction(tx))
				pending++
			}
		}
		return pending > 0
	})
	return r.String()
}

// logRenderer formats the output of the log generator into a markdown string.
type logRenderer struct {
	*strings.Builder
}

// Printf formats according to a format specifier and writes to the renderer's buffer.
func (r *logRenderer) Printf(format string, args ...any) {
	fmt.Fprintf(r, format, args...)
}

func (r *logRenderer) row(tx fundtrade.Transaction) {
	profit, settles := "", ""
	if tx.Type == fundtrade.Sell {
		profit = tx.Profit.SignedString()
	}
	if !tx.SettlementDate.IsZero() {
		settles = tx.SettlementDate.String()
	}
	r.Printf("| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
		tx.TradeDate, tx.PositionID, tx.Fund, tx.Type, tx.Units, price(tx.NAV), tx.Amount, tx.Fee, profit, settles)
}
