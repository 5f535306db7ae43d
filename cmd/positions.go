package cmd

import (
	"context"
	"flag"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/renderer"
	"github.com/google/subcommands"
)

// valuate aggregates positions at the latest NAV of their funds.
func (a *app) valuate(ctx context.Context, positions []fundtrade.Position) (fundtrade.Summary, error) {
	navs, err := fundtrade.CollectNAVs(ctx, a.funds, positions)
	if err != nil {
		return fundtrade.Summary{}, err
	}
	return fundtrade.Aggregate(positions, fundtrade.NavMap(navs), a.tracker.CostBasis())
}

// openPositions returns the open positions, from the backend with server
// set, else from the position store.
func (a *app) openPositions(ctx context.Context, server bool) ([]fundtrade.Position, error) {
	if !server {
		return a.repo.ListPositions(ctx, true)
	}
	if a.client == nil {
		return nil, errNoBackend
	}
	s, err := a.session()
	if err != nil {
		return nil, err
	}
	positions, err := a.client.ActivePositions(ctx, s)
	if err != nil && len(positions) > 0 {
		a.logger.Warn().Err(err).Msg("some positions were skipped")
		err = nil
	}
	return positions, err
}

type positionsCmd struct {
	server bool
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "list open positions valued at the latest NAV" }
func (*positionsCmd) Usage() string {
	return `ftc positions [-server]

  Lists the open positions with their units, average purchase price, value at
  the latest NAV and unrealized gain. With -server, the positions are the ones
  the trade backend knows of.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.server, "server", false, "List the positions held by the trade backend.")
}

func (c *positionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()

	positions, err := a.openPositions(ctx, c.server)
	if err != nil {
		return fail(a.logger, err)
	}
	summary, err := a.valuate(ctx, positions)
	if err != nil {
		return fail(a.logger, err)
	}
	printMarkdown(renderer.PositionsMarkdown(summary, a.tracker.CostBasis()))
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	server bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the portfolio totals" }
func (*summaryCmd) Usage() string {
	return `ftc summary [-server]

  Displays the invested cash, the value at the latest NAV and the return of
  all open positions. With -server, the totals are the ones computed by the
  trade backend.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.server, "server", false, "Display the totals computed by the trade backend.")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()

	if c.server {
		if a.client == nil {
			return fail(a.logger, errNoBackend)
		}
		s, err := a.session()
		if err != nil {
			return fail(a.logger, err)
		}
		stats, err := a.client.Stats(ctx, s)
		if err != nil {
			return fail(a.logger, err)
		}
		printMarkdown(renderer.SummaryMarkdown(stats.Summary(a.cfg.Currency)))
		return subcommands.ExitSuccess
	}

	positions, err := a.openPositions(ctx, false)
	if err != nil {
		return fail(a.logger, err)
	}
	summary, err := a.valuate(ctx, positions)
	if err != nil {
		return fail(a.logger, err)
	}
	printMarkdown(renderer.SummaryMarkdown(summary))
	return subcommands.ExitSuccess
}
