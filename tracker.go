package fundtrade

import (
	"fmt"

	"github.com/etnz/fundtrade/date"
	"github.com/google/uuid"
)

// Tracker is an in-memory book of positions, driven by ledger entries.
// Trades it prices itself are estimates; the backend confirmation is
// recorded through Reconcile. A Tracker is not safe for concurrent use.
type Tracker struct {
	positions map[string]Position
	order     []string // position IDs in opening order
	ledger    *Ledger

	method     CostBasisMethod
	settlement SettlementCalculator
	flatRate   Rate
	scheduled  bool
	newID      func() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCostBasis selects how the average purchase price is computed.
func WithCostBasis(m CostBasisMethod) Option { return func(t *Tracker) { t.method = m } }

// WithCalendar sets the business-day calendar used for settlement dates.
func WithCalendar(cal date.Calendar) Option {
	return func(t *Tracker) { t.settlement = SettlementCalculator{Calendar: cal} }
}

// WithRedemptionEstimate replaces the flat redemption fee estimate.
func WithRedemptionEstimate(r Rate) Option { return func(t *Tracker) { t.flatRate = r } }

// WithScheduledRedemptionFees prices redemptions with the fund's holding
// period schedule instead of the flat estimate.
func WithScheduledRedemptionFees(on bool) Option { return func(t *Tracker) { t.scheduled = on } }

// WithIDs sets the generator of position and transaction IDs.
func WithIDs(gen func() string) Option { return func(t *Tracker) { t.newID = gen } }

// NewTracker returns an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		positions: make(map[string]Position),
		ledger:    NewLedger(),
		flatRate:  FlatRedemptionEstimate,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CostBasis returns the cost basis method in use.
func (t *Tracker) CostBasis() CostBasisMethod { return t.method }

// Ledger returns the entries recorded so far.
func (t *Tracker) Ledger() *Ledger { return t.ledger }

// Record applies a ledger entry. A BUY for an unknown position opens it.
// The tracker is left unchanged on error.
func (t *Tracker) Record(tx Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if t.ledger.Has(tx.ID) {
		return invalid("record", ErrInvalidEntry, "transaction %q already recorded", tx.ID)
	}
	p, known := t.positions[tx.PositionID]
	if !known {
		if tx.Type != Buy {
			return notFound(string(tx.Type), ErrPositionNotFound, "no position %q", tx.PositionID)
		}
		p = open(tx)
	}
	next, err := p.apply(tx)
	if err != nil {
		return err
	}
	if err := t.ledger.Append(tx); err != nil {
		return err
	}
	if !known {
		t.order = append(t.order, p.ID)
	}
	t.positions[p.ID] = next
	return nil
}

// Replay records a sequence of entries, stopping at the first error.
func (t *Tracker) Replay(txs []Transaction) error {
	for i, tx := range txs {
		if err := t.Record(tx); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, tx.ID, err)
		}
	}
	return nil
}

// Position returns a position by ID.
func (t *Tracker) Position(id string) (Position, bool) {
	p, ok := t.positions[id]
	return p, ok
}

// Positions returns all positions in opening order, fully sold ones included.
func (t *Tracker) Positions() []Position {
	res := make([]Position, 0, len(t.order))
	for _, id := range t.order {
		res = append(res, t.positions[id])
	}
	return res
}

// OpenPosition returns the customer's open position in fund, if any.
func (t *Tracker) OpenPosition(customer string, fund FundID) (Position, bool) {
	for _, id := range t.order {
		p := t.positions[id]
		if p.Customer == customer && p.Fund == fund && p.IsOpen() {
			return p, true
		}
	}
	return Position{}, false
}

// PurchasePlan is a validated, priced purchase not yet recorded.
type PurchasePlan struct {
	Order       PurchaseOrder
	Fund        Fund
	Quote       PurchaseQuote
	Settlement  date.Date
	Transaction Transaction
}

// RedemptionPlan is a validated, priced redemption not yet recorded.
type RedemptionPlan struct {
	Order       RedemptionOrder
	Fund        Fund
	Position    Position
	Quote       RedemptionQuote
	Settlement  date.Date
	Transaction Transaction
}

// QuotePurchase validates and prices order at the fund's latest NAV.
func (t *Tracker) QuotePurchase(order PurchaseOrder, fund Fund, on date.Date) (PurchasePlan, error) {
	var existing *Position
	if p, ok := t.OpenPosition(order.Customer, order.Fund); ok {
		existing = &p
	}
	if err := order.Validate(fund, existing); err != nil {
		return PurchasePlan{}, err
	}
	q, err := QuotePurchase(order.Amount, fund.Class.NAV.Value, fund.Fees.PurchaseFeeRate())
	if err != nil {
		return PurchasePlan{}, err
	}
	settles, err := t.settlement.PurchaseSettlement(on, fund.Rules)
	if err != nil {
		return PurchasePlan{}, err
	}
	positionID := t.newID()
	if existing != nil {
		positionID = existing.ID
	}
	return PurchasePlan{
		Order:      order,
		Fund:       fund,
		Quote:      q,
		Settlement: settles,
		Transaction: Transaction{
			ID:             t.newID(),
			PositionID:     positionID,
			Customer:       order.Customer,
			Fund:           order.Fund,
			Type:           Buy,
			TradeDate:      on,
			SettlementDate: settles,
			NAV:            q.NAV,
			Units:          q.Units,
			Amount:         q.Amount,
			Fee:            q.Fee,
		},
	}, nil
}

// Purchase prices order and records it as a local estimate.
func (t *Tracker) Purchase(order PurchaseOrder, fund Fund, on date.Date) (Transaction, error) {
	plan, err := t.QuotePurchase(order, fund, on)
	if err != nil {
		return Transaction{}, err
	}
	return plan.Transaction, t.Record(plan.Transaction)
}

// RedemptionFeeRate returns the rate used to price a redemption of p on a date.
func (t *Tracker) RedemptionFeeRate(p Position, fees FeeSchedule, on date.Date) Rate {
	if t.scheduled {
		return fees.RedemptionFeeRate(p.OpenedOn, on)
	}
	return t.flatRate
}

// QuoteRedemption validates and prices order at the fund's latest NAV.
func (t *Tracker) QuoteRedemption(order RedemptionOrder, fund Fund, on date.Date) (RedemptionPlan, error) {
	p, ok := t.positions[order.PositionID]
	if !ok {
		return RedemptionPlan{}, notFound("redeem", ErrPositionNotFound, "no position %q", order.PositionID)
	}
	if p.Fund != fund.ID() {
		return RedemptionPlan{}, invalid("redeem", ErrFundNotFound, "position %s holds %s, not %s", p.ID, p.Fund, fund.ID())
	}
	units, err := order.Resolve(p)
	if err != nil {
		return RedemptionPlan{}, err
	}
	q, err := QuoteRedemption(units, p.Units, fund.Class.NAV.Value, p.AveragePrice(t.method), t.RedemptionFeeRate(p, fund.Fees, on))
	if err != nil {
		return RedemptionPlan{}, err
	}
	settles, err := t.settlement.RedemptionSettlement(on, fund.Rules)
	if err != nil {
		return RedemptionPlan{}, err
	}
	return RedemptionPlan{
		Order:      order,
		Fund:       fund,
		Position:   p,
		Quote:      q,
		Settlement: settles,
		Transaction: Transaction{
			ID:             t.newID(),
			PositionID:     p.ID,
			Customer:       p.Customer,
			Fund:           p.Fund,
			Type:           Sell,
			TradeDate:      on,
			SettlementDate: settles,
			NAV:            q.NAV,
			Units:          q.Units,
			Amount:         q.Net,
			Fee:            q.Fee,
			Profit:         q.Profit,
			ProfitRate:     q.ProfitRate,
		},
	}, nil
}

// Redeem prices order and records it as a local estimate.
func (t *Tracker) Redeem(order RedemptionOrder, fund Fund, on date.Date) (Transaction, error) {
	plan, err := t.QuoteRedemption(order, fund, on)
	if err != nil {
		return Transaction{}, err
	}
	return plan.Transaction, t.Record(plan.Transaction)
}

// Drift is the difference between the backend confirmation and the local
// estimate of the same trade, confirmed minus estimated.
type Drift struct {
	Units  Units
	Amount Money
	Fee    Money
	Profit Money
}

// IsZero reports whether the estimate matched the confirmation exactly.
func (d Drift) IsZero() bool {
	return d.Units.IsZero() && d.Amount.IsZero() && d.Fee.IsZero() && d.Profit.IsZero()
}

// Reconcile records the backend confirmation of a trade that was priced
// locally as estimate, which must not have been recorded. The confirmation
// is the ground truth; the returned Drift tells how far off the estimate was.
func (t *Tracker) Reconcile(estimate, confirmed Transaction) (Drift, error) {
	if estimate.Type != confirmed.Type {
		return Drift{}, invalid("reconcile", ErrInvalidEntry, "cannot reconcile %s estimate with %s confirmation", estimate.Type, confirmed.Type)
	}
	confirmed.Confirmed = true
	if confirmed.ID == "" {
		confirmed.ID = t.newID()
		confirmed.LocalIDs = true
	}
	if err := t.Record(confirmed); err != nil {
		return Drift{}, err
	}
	return Drift{
		Units:  confirmed.Units.Sub(estimate.Units),
		Amount: confirmed.Amount.Sub(estimate.Amount),
		Fee:    confirmed.Fee.Sub(estimate.Fee),
		Profit: confirmed.Profit.Sub(estimate.Profit),
	}, nil
}

// Adopt replaces the entry recorded under id with the backend's record of
// the same trade. When the backend keys the position differently, every
// entry of the local position moves to the backend's position ID. The
// tracker is rebuilt from the rewritten ledger and left unchanged on error.
func (t *Tracker) Adopt(id string, server Transaction) (Transaction, Position, error) {
	const op = "adopt"
	local, ok := t.ledger.Get(id)
	if !ok {
		return Transaction{}, Position{}, notFound(op, ErrInvalidEntry, "no transaction %q", id)
	}
	if server.ID != id && t.ledger.Has(server.ID) {
		return Transaction{}, Position{}, invalid(op, ErrInvalidEntry, "transaction %q already recorded", server.ID)
	}
	from, to := local.PositionID, server.PositionID
	if to == "" {
		to = from
	}
	if _, taken := t.positions[to]; from != to && taken {
		return Transaction{}, Position{}, invalid(op, ErrInvalidEntry, "position %q already recorded", to)
	}
	server.PositionID = to
	server.Confirmed = true
	server.LocalIDs = false

	txs := t.ledger.Snapshot()
	for i, tx := range txs {
		switch {
		case tx.ID == id:
			txs[i] = server
		case tx.PositionID == from:
			txs[i].PositionID = to
		}
	}
	fresh := &Tracker{
		positions:  make(map[string]Position),
		ledger:     NewLedger(),
		method:     t.method,
		settlement: t.settlement,
		flatRate:   t.flatRate,
		scheduled:  t.scheduled,
		newID:      t.newID,
	}
	if err := fresh.Replay(txs); err != nil {
		return Transaction{}, Position{}, err
	}
	*t = *fresh
	return server, t.positions[to], nil
}
