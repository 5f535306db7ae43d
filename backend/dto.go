package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/date"
	"github.com/shopspring/decimal"
)

// FundClassDetail is a fund class as served by GET /fund-classes/{code}.
// Percentages are in percent units, annual fees in basis points.
type FundClassDetail struct {
	ChildFundCd string           `json:"childFundCd"`
	FundCd      string           `json:"fundCd"`
	ClassCd     string           `json:"classCd"`
	FundNm      string           `json:"fundNm"`
	Currency    string           `json:"currency,omitempty"`
	Nav         *decimal.Decimal `json:"nav"`
	NavDate     string           `json:"navDate,omitempty"`
	IsActive    bool             `json:"isActive"`
	IsOnSale    bool             `json:"isOnSale"`

	SalesFeeBps       decimal.Decimal  `json:"salesFeeBps"`
	ManagementFeeBps  decimal.Decimal  `json:"managementFeeBps"`
	TrusteeFeeBps     decimal.Decimal  `json:"trusteeFeeBps"`
	AdminFeeBps       decimal.Decimal  `json:"adminFeeBps"`
	TotalFeeBps       decimal.Decimal  `json:"totalFeeBps"`
	FrontLoadFeeRate  *decimal.Decimal `json:"frontLoadFeeRate"`
	RedemptionFeeRate *decimal.Decimal `json:"redemptionFeeRate"`
	RedemptionFeeDays int              `json:"redemptionFeeDays"`

	MinInitialAmount     decimal.Decimal `json:"minInitialAmount"`
	MinAdditionalAmount  decimal.Decimal `json:"minAdditionalAmount"`
	PurchaseSettleDays   int             `json:"purchaseSettleDays"`
	RedemptionSettleDays int             `json:"redemptionSettleDays"`
}

func currencyOr(cur string) string {
	if cur == "" {
		return fundtrade.DefaultCurrency
	}
	return strings.ToUpper(cur)
}

// Decode validates the detail into a fundtrade.Fund. A missing NAV is not an
// error: the fund is listed but cannot be priced.
func (d FundClassDetail) Decode() (fundtrade.Fund, error) {
	cur := currencyOr(d.Currency)
	var errs error

	class := fundtrade.FundClass{
		ID:        fundtrade.FundID(d.ChildFundCd),
		FundCode:  d.FundCd,
		ClassCode: d.ClassCd,
		Name:      d.FundNm,
		Currency:  cur,
		Active:    d.IsActive,
		OnSale:    d.IsOnSale,
	}
	if d.Nav != nil {
		if !d.Nav.IsPositive() {
			errs = errors.Join(errs, fmt.Errorf("fund %s: nav must be positive, got %s", d.ChildFundCd, d.Nav))
		}
		class.NAV.Value = fundtrade.M(*d.Nav, cur)
	}
	if d.NavDate != "" {
		day, err := date.Parse(d.NavDate)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("fund %s: %w", d.ChildFundCd, err))
		}
		class.NAV.AsOf = day
	}

	fees := fundtrade.FeeSchedule{
		SalesBps:       d.SalesFeeBps,
		ManagementBps:  d.ManagementFeeBps,
		TrusteeBps:     d.TrusteeFeeBps,
		AdminBps:       d.AdminFeeBps,
		TotalBps:       d.TotalFeeBps,
		RedemptionDays: d.RedemptionFeeDays,
	}
	if d.FrontLoadFeeRate != nil {
		r := fundtrade.RateFromPercent(*d.FrontLoadFeeRate)
		fees.FrontLoad = &r
	}
	if d.RedemptionFeeRate != nil {
		r := fundtrade.RateFromPercent(*d.RedemptionFeeRate)
		fees.RedemptionFee = &r
	}

	fund := fundtrade.Fund{
		Class: class,
		Fees:  fees,
		Rules: fundtrade.TradeRules{
			MinInitial:    fundtrade.M(d.MinInitialAmount, cur),
			MinAdditional: fundtrade.M(d.MinAdditionalAmount, cur),
			PurchaseLag:   d.PurchaseSettleDays,
			RedemptionLag: d.RedemptionSettleDays,
		},
	}
	if err := fund.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	if errs != nil {
		return fundtrade.Fund{}, errs
	}
	return fund, nil
}

// PurchaseRequest is the body of POST /fund-subscription/purchase.
type PurchaseRequest struct {
	UserID         string          `json:"userId"`
	ChildFundCd    string          `json:"childFundCd"`
	PurchaseAmount decimal.Decimal `json:"purchaseAmount"`
}

// PurchaseResponse is the server confirmation of a purchase.
type PurchaseResponse struct {
	Success         bool            `json:"success"`
	SubscriptionID  string          `json:"subscriptionId,omitempty"`
	TransactionID   string          `json:"transactionId,omitempty"`
	PurchaseUnits   decimal.Decimal `json:"purchaseUnits"`
	PurchaseNav     decimal.Decimal `json:"purchaseNav"`
	PurchaseFee     decimal.Decimal `json:"purchaseFee"`
	SettlementDate  string          `json:"settlementDate,omitempty"`
	IrpBalanceAfter decimal.Decimal `json:"irpBalanceAfter"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
}

// Confirm returns the ledger entry of the confirmed purchase, starting from
// the local estimate. The server figures win.
func (r PurchaseResponse) Confirm(estimate fundtrade.Transaction) (fundtrade.Transaction, error) {
	cur := estimate.Currency()
	tx := estimate
	tx.ID = r.TransactionID
	if r.SubscriptionID != "" {
		tx.PositionID = r.SubscriptionID
	}
	// without them, the next sync adopts the backend's IDs
	tx.LocalIDs = r.TransactionID == "" || r.SubscriptionID == ""
	tx.Units = fundtrade.U(r.PurchaseUnits)
	tx.NAV = fundtrade.M(r.PurchaseNav, cur)
	tx.Fee = fundtrade.M(r.PurchaseFee, cur)
	if r.SettlementDate != "" {
		day, err := date.Parse(r.SettlementDate)
		if err != nil {
			return fundtrade.Transaction{}, fmt.Errorf("purchase confirmation: %w", err)
		}
		tx.SettlementDate = day
	}
	return tx, nil
}

// RedeemRequest is the body of POST /fund-subscription/redeem. Exactly one
// of SellUnits and SellAll is set.
type RedeemRequest struct {
	UserID         string           `json:"userId"`
	SubscriptionID string           `json:"subscriptionId"`
	SellUnits      *decimal.Decimal `json:"sellUnits,omitempty"`
	SellAll        bool             `json:"sellAll,omitempty"`
}

// RedeemResponse is the server confirmation of a redemption. SellAmount is
// the cash paid out, after the redemption fee.
type RedeemResponse struct {
	Success        bool            `json:"success"`
	TransactionID  string          `json:"transactionId,omitempty"`
	SellUnits      decimal.Decimal `json:"sellUnits"`
	SellAmount     decimal.Decimal `json:"sellAmount"`
	RedemptionFee  decimal.Decimal `json:"redemptionFee"`
	Profit         decimal.Decimal `json:"profit"`
	ProfitRate     decimal.Decimal `json:"profitRate"`
	RemainingUnits decimal.Decimal `json:"remainingUnits"`
	Status         string          `json:"status"`
	SettlementDate string          `json:"settlementDate,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
}

// Confirm returns the ledger entry of the confirmed redemption, starting
// from the local estimate.
func (r RedeemResponse) Confirm(estimate fundtrade.Transaction) (fundtrade.Transaction, error) {
	cur := estimate.Currency()
	tx := estimate
	tx.ID = r.TransactionID
	tx.LocalIDs = r.TransactionID == ""
	tx.Units = fundtrade.U(r.SellUnits)
	tx.Amount = fundtrade.M(r.SellAmount, cur)
	tx.Fee = fundtrade.M(r.RedemptionFee, cur)
	tx.Profit = fundtrade.M(r.Profit, cur)
	tx.ProfitRate = fundtrade.Percent(r.ProfitRate.InexactFloat64())
	if r.SettlementDate != "" {
		day, err := date.Parse(r.SettlementDate)
		if err != nil {
			return fundtrade.Transaction{}, fmt.Errorf("redemption confirmation: %w", err)
		}
		tx.SettlementDate = day
	}
	return tx, nil
}

// FundSubscription is a position as listed by the service.
type FundSubscription struct {
	SubscriptionID string          `json:"subscriptionId"`
	UserID         string          `json:"userId"`
	ChildFundCd    string          `json:"childFundCd"`
	Currency       string          `json:"currency,omitempty"`
	PurchaseDate   string          `json:"purchaseDate"`
	PurchaseAmount decimal.Decimal `json:"purchaseAmount"`
	PurchaseFee    decimal.Decimal `json:"purchaseFee"`
	PurchaseUnits  decimal.Decimal `json:"purchaseUnits"`
	CurrentUnits   decimal.Decimal `json:"currentUnits"`
	RealizedProfit decimal.Decimal `json:"realizedProfit"`
	Status         string          `json:"status"`
}

// Position validates the subscription into a fundtrade.Position. The service
// does not track a reduced cost basis, so it is derived from the share of
// units still held.
func (s FundSubscription) Position() (fundtrade.Position, error) {
	cur := currencyOr(s.Currency)
	var errs error
	status, err := fundtrade.ParseStatus(s.Status)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	var opened date.Date
	if s.PurchaseDate != "" {
		if opened, err = date.Parse(s.PurchaseDate); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if s.CurrentUnits.IsNegative() || s.CurrentUnits.GreaterThan(s.PurchaseUnits) {
		errs = errors.Join(errs, fmt.Errorf("current units %s outside [0, %s]", s.CurrentUnits, s.PurchaseUnits))
	}
	if s.PurchaseAmount.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("purchase amount %s is negative", s.PurchaseAmount))
	}
	if errs != nil {
		return fundtrade.Position{}, fmt.Errorf("subscription %s: %w", s.SubscriptionID, errs)
	}

	basis := decimal.Zero
	if s.PurchaseUnits.IsPositive() {
		basis = s.PurchaseAmount.Mul(s.CurrentUnits).Div(s.PurchaseUnits)
	}
	return fundtrade.Position{
		ID:             s.SubscriptionID,
		Customer:       s.UserID,
		Fund:           fundtrade.FundID(s.ChildFundCd),
		Currency:       cur,
		OpenedOn:       opened,
		PurchaseAmount: fundtrade.M(s.PurchaseAmount, cur),
		PurchaseFees:   fundtrade.M(s.PurchaseFee, cur),
		CostBasis:      fundtrade.M(basis, cur).Round(),
		UnitsPurchased: fundtrade.U(s.PurchaseUnits),
		Units:          fundtrade.U(s.CurrentUnits),
		RealizedProfit: fundtrade.M(s.RealizedProfit, cur),
		Status:         status,
	}, nil
}

// TransactionRecord is a ledger entry as listed by the service.
type TransactionRecord struct {
	TransactionID  string          `json:"transactionId"`
	SubscriptionID string          `json:"subscriptionId"`
	UserID         string          `json:"userId"`
	ChildFundCd    string          `json:"childFundCd"`
	Type           string          `json:"transactionType"`
	Currency       string          `json:"currency,omitempty"`
	TradeDate      string          `json:"tradeDate"`
	SettlementDate string          `json:"settlementDate,omitempty"`
	Nav            decimal.Decimal `json:"nav"`
	Units          decimal.Decimal `json:"units"`
	Amount         decimal.Decimal `json:"amount"`
	Fee            decimal.Decimal `json:"fee"`
	Profit         decimal.Decimal `json:"profit"`
	ProfitRate     decimal.Decimal `json:"profitRate"`
}

// Transaction validates the record into a confirmed fundtrade.Transaction.
func (r TransactionRecord) Transaction() (fundtrade.Transaction, error) {
	cur := currencyOr(r.Currency)
	var typ fundtrade.TxType
	switch strings.ToUpper(r.Type) {
	case "PURCHASE", "BUY":
		typ = fundtrade.Buy
	case "REDEMPTION", "REDEEM", "SELL":
		typ = fundtrade.Sell
	default:
		return fundtrade.Transaction{}, fmt.Errorf("transaction %s: unknown type %q", r.TransactionID, r.Type)
	}
	trade, err := date.Parse(r.TradeDate)
	if err != nil {
		return fundtrade.Transaction{}, fmt.Errorf("transaction %s: %w", r.TransactionID, err)
	}
	var settles date.Date
	if r.SettlementDate != "" {
		if settles, err = date.Parse(r.SettlementDate); err != nil {
			return fundtrade.Transaction{}, fmt.Errorf("transaction %s: %w", r.TransactionID, err)
		}
	}
	tx := fundtrade.Transaction{
		ID:             r.TransactionID,
		PositionID:     r.SubscriptionID,
		Customer:       r.UserID,
		Fund:           fundtrade.FundID(r.ChildFundCd),
		Type:           typ,
		TradeDate:      trade,
		SettlementDate: settles,
		NAV:            fundtrade.M(r.Nav, cur),
		Units:          fundtrade.U(r.Units),
		Amount:         fundtrade.M(r.Amount, cur),
		Fee:            fundtrade.M(r.Fee, cur),
		Confirmed:      true,
	}
	if typ == fundtrade.Sell {
		tx.Profit = fundtrade.M(r.Profit, cur)
		tx.ProfitRate = fundtrade.Percent(r.ProfitRate.InexactFloat64())
	}
	if err := tx.Validate(); err != nil {
		return fundtrade.Transaction{}, err
	}
	return tx, nil
}

// Stats are the aggregate figures of GET /fund-subscription/user/{id}/stats.
type Stats struct {
	TotalInvestment decimal.Decimal `json:"totalInvestment"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	TotalReturn     decimal.Decimal `json:"totalReturn"`
	TotalReturnRate decimal.Decimal `json:"totalReturnRate"`
	ActiveCount     int             `json:"activeCount"`
}
