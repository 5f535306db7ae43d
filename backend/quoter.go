package backend

import (
	"context"
	"fmt"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/date"
	"github.com/etnz/fundtrade/logging"
)

// FundSource returns a fund class with its latest NAV. Client and
// fundtrade.Catalog both implement it.
type FundSource interface {
	FundClass(ctx context.Context, id fundtrade.FundID) (fundtrade.Fund, error)
}

// Quoter prices orders at the latest NAV as the user edits them. Quotes may
// be requested concurrently; a quote started before another one finished is
// dropped with fundtrade.ErrSuperseded.
type Quoter struct {
	funds   FundSource
	tracker *fundtrade.Tracker
	logger  *logging.Logger
	today   func() date.Date
	seq     Sequencer
}

// NewQuoter returns a Quoter pricing orders against tracker's positions.
func NewQuoter(funds FundSource, tracker *fundtrade.Tracker, logger *logging.Logger) *Quoter {
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Quoter{funds: funds, tracker: tracker, logger: logger, today: date.Today}
}

// fetch loads a fund for the request holding ticket, reporting ErrSuperseded
// when a newer request started meanwhile.
func (q *Quoter) fetch(ctx context.Context, t Ticket, id fundtrade.FundID) (fundtrade.Fund, error) {
	fund, err := q.funds.FundClass(ctx, id)
	if err != nil {
		if cerr := t.Commit(nil); cerr != nil {
			q.logger.Warn().Uint64("ticket", t.ID()).Msg("stale quote dropped")
			return fundtrade.Fund{}, fmt.Errorf("quote %s: %w", id, cerr)
		}
		return fundtrade.Fund{}, err
	}
	return fund, nil
}

// position reads a tracker position for the request holding t.
func (q *Quoter) position(t Ticket, id string) (fundtrade.Position, error) {
	var (
		p     fundtrade.Position
		found bool
	)
	if err := t.Commit(func() { p, found = q.tracker.Position(id) }); err != nil {
		q.logger.Warn().Uint64("ticket", t.ID()).Msg("stale quote dropped")
		return fundtrade.Position{}, fmt.Errorf("quote %s: %w", id, err)
	}
	if !found {
		return fundtrade.Position{}, &fundtrade.Error{Kind: fundtrade.KindNotFound, Op: "redeem", Msg: fmt.Sprintf("no position %q", id), Err: fundtrade.ErrPositionNotFound}
	}
	return p, nil
}

// QuotePurchase prices a purchase order.
func (q *Quoter) QuotePurchase(ctx context.Context, order fundtrade.PurchaseOrder) (fundtrade.PurchasePlan, error) {
	ctx, ticket, cancel := q.seq.Start(ctx)
	defer cancel()

	fund, err := q.fetch(ctx, ticket, order.Fund)
	if err != nil {
		return fundtrade.PurchasePlan{}, err
	}
	var plan fundtrade.PurchasePlan
	var qerr error
	if err := ticket.Commit(func() { plan, qerr = q.tracker.QuotePurchase(order, fund, q.today()) }); err != nil {
		q.logger.Warn().Uint64("ticket", ticket.ID()).Msg("stale quote dropped")
		return fundtrade.PurchasePlan{}, fmt.Errorf("quote %s: %w", order.Fund, err)
	}
	return plan, qerr
}

// QuoteRedemption prices a redemption order of one of the tracker's positions.
func (q *Quoter) QuoteRedemption(ctx context.Context, order fundtrade.RedemptionOrder) (fundtrade.RedemptionPlan, error) {
	ctx, ticket, cancel := q.seq.Start(ctx)
	defer cancel()

	p, err := q.position(ticket, order.PositionID)
	if err != nil {
		return fundtrade.RedemptionPlan{}, err
	}
	fund, err := q.fetch(ctx, ticket, p.Fund)
	if err != nil {
		return fundtrade.RedemptionPlan{}, err
	}
	var plan fundtrade.RedemptionPlan
	var qerr error
	if err := ticket.Commit(func() { plan, qerr = q.tracker.QuoteRedemption(order, fund, q.today()) }); err != nil {
		q.logger.Warn().Uint64("ticket", ticket.ID()).Msg("stale quote dropped")
		return fundtrade.RedemptionPlan{}, fmt.Errorf("quote %s: %w", order.PositionID, err)
	}
	return plan, qerr
}
