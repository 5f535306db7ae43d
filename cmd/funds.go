package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/renderer"
	"github.com/google/subcommands"
)

type fundsCmd struct {
	fund string
}

func (*fundsCmd) Name() string     { return "funds" }
func (*fundsCmd) Synopsis() string { return "list the fund classes on offer" }
func (*fundsCmd) Usage() string {
	return `ftc funds [-fund <code>]

  Lists the fund classes of the catalog, or of the trade backend with -remote,
  with their latest NAV, fees and settlement lags. With -fund, shows the full
  fee schedule and trading rules of one fund class.
`
}

func (c *fundsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fund, "fund", "", "Fund class code to detail.")
}

func (c *fundsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()

	if c.fund != "" {
		fund, err := a.funds.FundClass(ctx, fundtrade.FundID(c.fund))
		if err != nil {
			return fail(a.logger, err)
		}
		printMarkdown(renderer.FundMarkdown(fund))
		return subcommands.ExitSuccess
	}

	var funds []fundtrade.Fund
	if a.client != nil {
		funds, err = a.client.FundClasses(ctx)
		if err != nil && len(funds) == 0 {
			return fail(a.logger, err)
		}
		if err != nil {
			// Show what could be decoded.
			a.logger.Warn().Err(err).Msg("some fund classes were skipped")
		}
	} else {
		funds = a.catalog.Funds()
	}
	if len(funds) == 0 {
		fmt.Fprintln(stderr, "No fund on offer.")
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.FundsMarkdown(funds))
	return subcommands.ExitSuccess
}
