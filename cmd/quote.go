package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/renderer"
	"github.com/google/subcommands"
)

// purchaseFlags are the order flags shared by quote-buy and buy.
type purchaseFlags struct {
	fund   string
	amount string
}

func (p *purchaseFlags) set(f *flag.FlagSet) {
	f.StringVar(&p.fund, "fund", "", "Fund class code to buy.")
	f.StringVar(&p.amount, "amount", "", "Cash to invest, fees included. Thousands separators are accepted.")
}

// order builds the purchase order for customer in the configured currency.
func (p *purchaseFlags) order(a *app, customer string) (fundtrade.PurchaseOrder, error) {
	if p.fund == "" {
		return fundtrade.PurchaseOrder{}, fmt.Errorf("-fund is required")
	}
	amount, err := fundtrade.ParseMoney(p.amount, a.cfg.Currency)
	if err != nil {
		return fundtrade.PurchaseOrder{}, err
	}
	return fundtrade.PurchaseOrder{Customer: customer, Fund: fundtrade.FundID(p.fund), Amount: amount}, nil
}

// redemptionFlags are the order flags shared by quote-sell and sell.
type redemptionFlags struct {
	position string
	units    string
	percent  string
	all      bool
}

func (r *redemptionFlags) set(f *flag.FlagSet) {
	f.StringVar(&r.position, "position", "", "Position to sell from.")
	f.StringVar(&r.units, "units", "", "Number of units to sell.")
	f.StringVar(&r.percent, "percent", "", "Share of the position to sell, in percent.")
	f.BoolVar(&r.all, "all", false, "Sell the whole position.")
}

func (r *redemptionFlags) order() (fundtrade.RedemptionOrder, error) {
	if r.position == "" {
		return fundtrade.RedemptionOrder{}, fmt.Errorf("-position is required")
	}
	o := fundtrade.RedemptionOrder{PositionID: r.position, All: r.all}
	if r.units != "" {
		u, err := fundtrade.ParseUnits(r.units)
		if err != nil {
			return fundtrade.RedemptionOrder{}, err
		}
		o.Units = u
	}
	if r.percent != "" {
		pct, ok := fundtrade.ParseAmount(r.percent)
		if !ok {
			return fundtrade.RedemptionOrder{}, fmt.Errorf("invalid percentage %q", r.percent)
		}
		o.Percent = pct
	}
	return o, nil
}

type quoteBuyCmd struct {
	purchaseFlags
}

func (*quoteBuyCmd) Name() string     { return "quote-buy" }
func (*quoteBuyCmd) Synopsis() string { return "estimate the units and fee of a purchase" }
func (*quoteBuyCmd) Usage() string {
	return `ftc quote-buy -fund <code> -amount <cash>

  Estimates the units a purchase would buy at the latest published NAV, the
  purchase fee and the settlement date. Nothing is submitted or recorded.

Usage Examples:
$ ftc quote-buy -fund K55101 -amount 1,000,000
`
}

func (c *quoteBuyCmd) SetFlags(f *flag.FlagSet) { c.purchaseFlags.set(f) }

func (c *quoteBuyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	// A quote commits to nothing, the disclosure is only required to buy.
	order.DisclosureAccepted = true

	plan, err := a.quoter().QuotePurchase(ctx, order)
	if err != nil {
		return fail(a.logger, err)
	}
	printMarkdown(renderer.PurchaseQuoteMarkdown(plan, plan.Fund))
	return subcommands.ExitSuccess
}

type quoteSellCmd struct {
	redemptionFlags
}

func (*quoteSellCmd) Name() string     { return "quote-sell" }
func (*quoteSellCmd) Synopsis() string { return "estimate the proceeds and profit of a redemption" }
func (*quoteSellCmd) Usage() string {
	return `ftc quote-sell -position <id> (-units <n> | -percent <p> | -all)

  Estimates the gross and net proceeds of a redemption at the latest published
  NAV, the redemption fee, the realized profit and the settlement date.
  Nothing is submitted or recorded.
`
}

func (c *quoteSellCmd) SetFlags(f *flag.FlagSet) { c.redemptionFlags.set(f) }

func (c *quoteSellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	printMarkdown(renderer.RedemptionQuoteMarkdown(plan, plan.Fund))
	return subcommands.ExitSuccess
}
