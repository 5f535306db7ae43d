package fundtrade

import (
	"fmt"

	"github.com/etnz/fundtrade/date"
)

// SettlementCalculator derives settlement dates from trade dates. The zero
// value counts weekdays only.
type SettlementCalculator struct {
	Calendar date.Calendar
}

func (s SettlementCalculator) calendar() date.Calendar {
	if s.Calendar == nil {
		return date.Weekends
	}
	return s.Calendar
}

// Settle advances trade by lag business days.
func (s SettlementCalculator) Settle(trade date.Date, lag int) (date.Date, error) {
	on, err := date.AddBusinessDays(s.calendar(), trade, lag)
	if err != nil {
		return date.Date{}, fmt.Errorf("cannot settle trade of %s at %s: %w", trade, SettlementLabel(lag), err)
	}
	return on, nil
}

// PurchaseSettlement returns the settlement date of a purchase traded on trade.
func (s SettlementCalculator) PurchaseSettlement(trade date.Date, rules TradeRules) (date.Date, error) {
	return s.Settle(trade, rules.PurchaseLag)
}

// RedemptionSettlement returns the settlement date of a redemption traded on trade.
func (s SettlementCalculator) RedemptionSettlement(trade date.Date, rules TradeRules) (date.Date, error) {
	return s.Settle(trade, rules.RedemptionLag)
}

// SettlementLabel formats a lag the way it is displayed, e.g. "T+2".
func SettlementLabel(lag int) string { return fmt.Sprintf("T+%d", lag) }
