package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/etnz/fundtrade"
	"github.com/google/uuid"
)

func newIdempotencyKey() string { return uuid.NewString() }

// Purchase submits a purchase order. A success:false answer is a
// KindRejected error carrying the server message verbatim.
func (c *Client) Purchase(ctx context.Context, s Session, order fundtrade.PurchaseOrder) (PurchaseResponse, error) {
	if err := s.Validate(); err != nil {
		return PurchaseResponse{}, err
	}
	req := PurchaseRequest{
		UserID:         s.UserID,
		ChildFundCd:    string(order.Fund),
		PurchaseAmount: order.Amount.Decimal(),
	}
	var resp PurchaseResponse
	if err := c.submit(ctx, "purchase", s, "/fund-subscription/purchase", req, &resp); err != nil {
		return PurchaseResponse{}, err
	}
	if !resp.Success {
		return resp, fundtrade.Rejected("purchase", resp.ErrorMessage)
	}
	return resp, nil
}

// Redeem submits a redemption of units of a position, or of all of it.
func (c *Client) Redeem(ctx context.Context, s Session, positionID string, units fundtrade.Units, all bool) (RedeemResponse, error) {
	if err := s.Validate(); err != nil {
		return RedeemResponse{}, err
	}
	req := RedeemRequest{UserID: s.UserID, SubscriptionID: positionID, SellAll: all}
	if !all {
		if !units.IsPositive() {
			return RedeemResponse{}, &fundtrade.Error{Kind: fundtrade.KindValidation, Op: "redeem", Msg: "units must be positive", Err: fundtrade.ErrUnitsOutOfRange}
		}
		d := units.Decimal()
		req.SellUnits = &d
	}
	var resp RedeemResponse
	if err := c.submit(ctx, "redeem", s, "/fund-subscription/redeem", req, &resp); err != nil {
		return RedeemResponse{}, err
	}
	if !resp.Success {
		return resp, fundtrade.Rejected("redeem", resp.ErrorMessage)
	}
	return resp, nil
}

// ActivePositions lists the open positions of the session user.
func (c *Client) ActivePositions(ctx context.Context, s Session) ([]fundtrade.Position, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var subs []FundSubscription
	path := fmt.Sprintf("/fund-subscription/user/%s/active", url.PathEscape(s.UserID))
	if err := c.get(ctx, "list positions", s, path, &subs); err != nil {
		return nil, err
	}
	positions := make([]fundtrade.Position, 0, len(subs))
	var errs error
	for _, sub := range subs {
		p, err := sub.Position()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		positions = append(positions, p)
	}
	return positions, errs
}

// Transactions lists the confirmed ledger of the session user.
func (c *Client) Transactions(ctx context.Context, s Session) ([]fundtrade.Transaction, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var records []TransactionRecord
	path := fmt.Sprintf("/fund-subscription/user/%s/transactions", url.PathEscape(s.UserID))
	if err := c.get(ctx, "list transactions", s, path, &records); err != nil {
		return nil, err
	}
	txs := make([]fundtrade.Transaction, 0, len(records))
	var errs error
	for _, r := range records {
		tx, err := r.Transaction()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errs
}

// Stats fetches the server aggregate of the session user's portfolio.
func (c *Client) Stats(ctx context.Context, s Session) (Stats, error) {
	if err := s.Validate(); err != nil {
		return Stats{}, err
	}
	var stats Stats
	path := fmt.Sprintf("/fund-subscription/user/%s/stats", url.PathEscape(s.UserID))
	if err := c.get(ctx, "stats", s, path, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Summary converts the server stats, for comparison with a local aggregate.
func (s Stats) Summary(currency string) fundtrade.Summary {
	cur := currencyOr(currency)
	return fundtrade.Summary{
		Currency:        cur,
		TotalInvestment: fundtrade.M(s.TotalInvestment, cur),
		TotalValue:      fundtrade.M(s.TotalValue, cur),
		TotalReturn:     fundtrade.M(s.TotalReturn, cur),
		TotalReturnRate: fundtrade.Percent(s.TotalReturnRate.Round(4).InexactFloat64()),
	}
}
