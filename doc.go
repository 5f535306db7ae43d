// Package fundtrade computes what a fund trade is worth. Given a fund's
// published NAV and fee schedule it converts cash into purchase units and
// units into redemption cash, derives settlement dates on a business-day
// calendar, and tracks each position's units and cost basis to report
// realized and unrealized gain.
//
// The main pieces are:
//   - Money, Units and Rate: exact decimal values. Units keep 6 decimals and
//     are truncated, Money rounds to the currency minor unit.
//   - FeeSchedule, TradeRules and SettlementCalculator: the static per-fund
//     data a trade is priced with.
//   - QuotePurchase and QuoteRedemption: the conversion formulas.
//   - Tracker: an in-memory book of positions driven by an append-only Ledger
//     of BUY and SELL transactions.
//   - Aggregate: the portfolio totals of a set of positions.
//
// Every local computation is an estimate. The trade backend is the source of
// truth and its confirmations are recorded with Tracker.Reconcile.
package fundtrade
