package renderer

import (
	"fmt"

	"github.com/etnz/fundtrade"
)

// Transaction renders a transaction to a string.
func Transaction(tx fundtrade.Transaction) string {
	switch tx.Type {
	case fundtrade.Buy:
		return fmt.Sprintf("Bought %s units of %s at %s for %s (fee %s)", tx.Units, tx.Fund, price(tx.NAV), tx.Amount, tx.Fee)
	case fundtrade.Sell:
		return fmt.Sprintf("Sold %s units of %s at %s for %s (fee %s, profit %s)", tx.Units, tx.Fund, price(tx.NAV), tx.Amount, tx.Fee, tx.Profit.SignedString())
	default:
		return tx.String()
	}
}
