package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/fundtrade/renderer"
	"github.com/google/subcommands"
)

type buyCmd struct {
	purchaseFlags
	acceptRisk bool
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "buy a fund with cash" }
func (*buyCmd) Usage() string {
	return `ftc buy -fund <code> -amount <cash> -accept-risk

  Buys a fund class. With a trade backend the order is submitted and the
  server confirmation is recorded; the difference with the local estimate is
  reported. Without one, the estimate is recorded in the position store.

  The order is refused unless -accept-risk states the risk disclosure of the
  fund was read and accepted.

Usage Examples:
$ ftc buy -fund K55101 -amount 1,000,000 -accept-risk
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	c.purchaseFlags.set(f)
	f.BoolVar(&c.acceptRisk, "accept-risk", false, "Accept the risk disclosure of the fund.")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()

	customer, err := a.customer()
	if err != nil {
		return fail(a.logger, err)
	}
	order, err := c.order(a, customer)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	order.DisclosureAccepted = c.acceptRisk

	plan, err := a.quoter().QuotePurchase(ctx, order)
	if err != nil {
		return fail(a.logger, err)
	}

	if a.client == nil {
		tx := plan.Transaction
		if err := a.tracker.Record(tx); err != nil {
			return fail(a.logger, err)
		}
		if err := a.commit(ctx, tx); err != nil {
			return fail(a.logger, err)
		}
		a.logger.Info().Str("position", tx.PositionID).Str("fund", string(tx.Fund)).Msg("purchase recorded")
		printMarkdown(renderer.ConfirmationMarkdown(tx, nil))
		return subcommands.ExitSuccess
	}

	s, err := a.session()
	if err != nil {
		return fail(a.logger, err)
	}
	resp, err := a.client.Purchase(ctx, s, order)
	if err != nil {
		return fail(a.logger, err)
	}
	confirmed, err := resp.Confirm(plan.Transaction)
	if err != nil {
		return fail(a.logger, err)
	}
	if err := a.reconcile(ctx, plan.Transaction, confirmed); err != nil {
		return fail(a.logger, err)
	}
	return subcommands.ExitSuccess
}

type sellCmd struct {
	redemptionFlags
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "redeem units of a position" }
func (*sellCmd) Usage() string {
	return `ftc sell -position <id> (-units <n> | -percent <p> | -all)

  Redeems units of a position. With a trade backend the order is submitted
  and the server confirmation is recorded. Without one, the estimate is
  recorded in the position store. Selling the last unit closes the position.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.redemptionFlags.set(f) }

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	order, err := c.order()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()

	plan, err := a.quoter().QuoteRedemption(ctx, order)
	if err != nil {
		return fail(a.logger, err)
	}

	if a.client == nil {
		tx := plan.Transaction
		if err := a.tracker.Record(tx); err != nil {
			return fail(a.logger, err)
		}
		if err := a.commit(ctx, tx); err != nil {
			return fail(a.logger, err)
		}
		a.logger.Info().Str("position", tx.PositionID).Str("units", tx.Units.String()).Msg("redemption recorded")
		printMarkdown(renderer.ConfirmationMarkdown(tx, nil))
		return subcommands.ExitSuccess
	}

	s, err := a.session()
	if err != nil {
		return fail(a.logger, err)
	}
	resp, err := a.client.Redeem(ctx, s, order.PositionID, plan.Quote.Units, order.All)
	if err != nil {
		return fail(a.logger, err)
	}
	confirmed, err := resp.Confirm(plan.Transaction)
	if err != nil {
		return fail(a.logger, err)
	}
	if err := a.reconcile(ctx, plan.Transaction, confirmed); err != nil {
		return fail(a.logger, err)
	}
	return subcommands.ExitSuccess
}
