package cmd

import (
	"context"
	"flag"
	"slices"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/renderer"
	"github.com/google/subcommands"
)

type logCmd struct {
	jsonl    bool
	position string
	fund     string
}

func (*logCmd) Name() string { return "log" }
func (*logCmd) Synopsis() string {
	return "display the ledger of recorded trades"
}
func (*logCmd) Usage() string {
	return `ftc log [-position <id>] [-fund <code>] [-jsonl]

  Displays every recorded trade in order, with its units, NAV, cash amount,
  fee and realized profit. Trades not confirmed by a trade backend are listed
  again as estimates. With -jsonl, prints one JSON object per trade instead,
  suitable for a ledger export.
`
}

func (p *logCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.jsonl, "jsonl", false, "Print the trades in JSONL format.")
	f.StringVar(&p.position, "position", "", "Only show the trades of this position.")
	f.StringVar(&p.fund, "fund", "", "Only show the trades of this fund class.")
}

func (p *logCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()

	var filters []func(fundtrade.Transaction) bool
	if p.position != "" {
		filters = append(filters, fundtrade.ByPosition(p.position))
	}
	if p.fund != "" {
		filters = append(filters, fundtrade.ByFund(fundtrade.FundID(p.fund)))
	}
	txs := slices.Collect(a.tracker.Ledger().Transactions(filters...))

	if p.jsonl {
		for _, tx := range txs {
			if err := fundtrade.EncodeTransaction(stdout, tx); err != nil {
				return fail(a.logger, err)
			}
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.LogMarkdown(txs))
	return subcommands.ExitSuccess
}
