package fundtrade

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/etnz/fundtrade/date"
	"github.com/shopspring/decimal"
)

// TxType is the direction of a trade.
type TxType string

const (
	Buy  TxType = "BUY"
	Sell TxType = "SELL"
)

// Transaction is an immutable ledger entry. For a BUY, Amount is the cash
// paid including Fee. For a SELL, Amount is the cash received after Fee.
type Transaction struct {
	ID             string
	PositionID     string
	Customer       string
	Fund           FundID
	Type           TxType
	TradeDate      date.Date
	SettlementDate date.Date
	NAV            Money
	Units          Units
	Amount         Money
	Fee            Money
	Profit         Money   // SELL only
	ProfitRate     Percent // SELL only
	Confirmed      bool    // set once the backend confirmed the trade
	LocalIDs       bool    // confirmed, but the backend returned no IDs of its own
}

// Currency returns the currency of the cash legs.
func (tx Transaction) Currency() string { return tx.Amount.Currency() }

// Validate checks the entry is internally consistent.
func (tx Transaction) Validate() error {
	op := string(tx.Type)
	var errs error
	if tx.ID == "" || tx.PositionID == "" {
		errs = errors.Join(errs, invalid(op, ErrInvalidEntry, "missing transaction or position id"))
	}
	if tx.Type != Buy && tx.Type != Sell {
		errs = errors.Join(errs, invalid("record", ErrInvalidEntry, "unknown transaction type %q", tx.Type))
	}
	if tx.TradeDate.IsZero() {
		errs = errors.Join(errs, invalid(op, ErrInvalidEntry, "missing trade date"))
	}
	if !tx.SettlementDate.IsZero() && tx.SettlementDate.Before(tx.TradeDate) {
		errs = errors.Join(errs, invalid(op, ErrInvalidSettlement, "settlement %s before trade date %s", tx.SettlementDate, tx.TradeDate))
	}
	if !tx.Units.IsPositive() {
		errs = errors.Join(errs, invalid(op, ErrUnitsOutOfRange, "units must be positive, got %s", tx.Units))
	}
	if !tx.NAV.IsPositive() {
		errs = errors.Join(errs, invalid(op, ErrNavUnavailable, "NAV must be positive, got %s", tx.NAV))
	}
	if tx.Amount.IsNegative() || tx.Fee.IsNegative() {
		errs = errors.Join(errs, invalid(op, ErrNonPositiveAmount, "amount and fee must not be negative"))
	}
	if tx.Type == Buy && !tx.Amount.IsPositive() {
		errs = errors.Join(errs, invalid(op, ErrNonPositiveAmount, "purchase amount must be positive"))
	}
	for _, m := range []Money{tx.NAV, tx.Fee, tx.Profit} {
		if !SameCurrency(tx.Amount, m) {
			errs = errors.Join(errs, invalid(op, ErrCurrencyMismatch, "mixed currencies %s and %s", tx.Amount.Currency(), m.Currency()))
			break
		}
	}
	return errs
}

func (tx Transaction) String() string {
	s := fmt.Sprintf("%s %s %s %s units of %s at %s for %s (fee %s)", tx.TradeDate, tx.PositionID, tx.Type, tx.Units, tx.Fund, tx.NAV, tx.Amount, tx.Fee)
	if tx.Type == Sell {
		s += fmt.Sprintf(", profit %s (%s)", tx.Profit.SignedString(), tx.ProfitRate.SignedString())
	}
	return s
}

// MarshalJSON writes the fields in a fixed order so that JSONL ledgers are diffable.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", tx.ID).
		Append("position", tx.PositionID).
		Optional("customer", tx.Customer).
		Append("fund", tx.Fund).
		Append("type", tx.Type).
		Append("date", tx.TradeDate).
		Optional("settles", tx.SettlementDate).
		Append("currency", tx.Amount.Currency()).
		Decimal("nav", tx.NAV.Decimal()).
		Decimal("units", tx.Units.Decimal()).
		Decimal("amount", tx.Amount.Decimal()).
		Decimal("fee", tx.Fee.Decimal())
	if tx.Type == Sell {
		w.Decimal("profit", tx.Profit.Decimal()).
			Append("profitRate", float64(tx.ProfitRate))
	}
	w.Optional("confirmed", tx.Confirmed)
	w.Optional("localIds", tx.LocalIDs)
	return w.MarshalJSON()
}

func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID         string          `json:"id"`
		Position   string          `json:"position"`
		Customer   string          `json:"customer"`
		Fund       FundID          `json:"fund"`
		Type       TxType          `json:"type"`
		Date       date.Date       `json:"date"`
		Settles    date.Date       `json:"settles"`
		Currency   string          `json:"currency"`
		NAV        decimal.Decimal `json:"nav"`
		Units      decimal.Decimal `json:"units"`
		Amount     decimal.Decimal `json:"amount"`
		Fee        decimal.Decimal `json:"fee"`
		Profit     decimal.Decimal `json:"profit"`
		ProfitRate float64         `json:"profitRate"`
		Confirmed  bool            `json:"confirmed"`
		LocalIDs   bool            `json:"localIds"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*tx = Transaction{
		ID:             temp.ID,
		PositionID:     temp.Position,
		Customer:       temp.Customer,
		Fund:           temp.Fund,
		Type:           temp.Type,
		TradeDate:      temp.Date,
		SettlementDate: temp.Settles,
		NAV:            M(temp.NAV, temp.Currency),
		Units:          U(temp.Units),
		Amount:         M(temp.Amount, temp.Currency),
		Fee:            M(temp.Fee, temp.Currency),
		Profit:         M(temp.Profit, temp.Currency),
		ProfitRate:     Percent(temp.ProfitRate),
		Confirmed:      temp.Confirmed,
		LocalIDs:       temp.LocalIDs,
	}
	return nil
}
