package cmd

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"slices"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/backend"
	"github.com/google/subcommands"
)

type loginCmd struct {
	user  string
	token string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "store the credentials of the trade backend" }
func (*loginCmd) Usage() string {
	return `ftc login -user <id> -token <token>

  Saves the user ID and bearer token used to call the trade backend in the
  session file (backend.session_file, a temporary file by default). The token
  is obtained from the authentication service; ftc does not authenticate.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User ID of the customer.")
	f.StringVar(&c.token, "token", "", "Bearer token.")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		return fail(nil, fmt.Errorf("invalid configuration: %w", err))
	}
	s := backend.Session{UserID: c.user, Token: c.token}
	if err := s.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", fundtrade.UserMessage(err))
		return subcommands.ExitUsageError
	}
	path := cfg.Backend.SessionFile
	if path == "" {
		path = backend.DefaultSessionPath()
	}
	if err := backend.SaveSession(path, s); err != nil {
		return fail(nil, err)
	}
	fmt.Fprintf(stderr, "Session of %s saved to %s\n", s.UserID, path)
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "import the confirmed trades of the trade backend" }
func (*syncCmd) Usage() string {
	return `ftc sync

  Fetches the confirmed transactions of the trade backend and records the ones
  missing from the position store, oldest first. A trade already recorded
  under locally generated IDs (the backend confirmed it without its own) is
  matched on customer, fund, type, trade date, units and amount, and takes
  the backend's IDs instead of being recorded twice.
`
}

func (*syncCmd) SetFlags(f *flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(nil, err)
	}
	defer a.Close()
	if a.client == nil {
		return fail(a.logger, errNoBackend)
	}
	s, err := a.session()
	if err != nil {
		return fail(a.logger, err)
	}
	txs, err := a.client.Transactions(ctx, s)
	if err != nil {
		if len(txs) == 0 {
			return fail(a.logger, err)
		}
		a.logger.Warn().Err(err).Msg("some transactions were skipped")
	}
	slices.SortStableFunc(txs, func(x, y fundtrade.Transaction) int {
		return cmp.Compare(x.TradeDate.String(), y.TradeDate.String())
	})

	added, adopted := 0, 0
	for _, tx := range txs {
		ledger := a.tracker.Ledger()
		if local, ok := ledger.Match(tx); ok && (local.ID == tx.ID || !ledger.Has(tx.ID)) {
			if err := a.adopt(ctx, local, tx); err != nil {
				return fail(a.logger, fmt.Errorf("transaction %s: %w", tx.ID, err))
			}
			adopted++
			continue
		}
		if ledger.Has(tx.ID) {
			continue
		}
		if err := a.tracker.Record(tx); err != nil {
			return fail(a.logger, fmt.Errorf("transaction %s: %w", tx.ID, err))
		}
		if err := a.commit(ctx, tx); err != nil {
			return fail(a.logger, err)
		}
		added++
	}
	a.logger.Info().Int("fetched", len(txs)).Int("added", added).Int("adopted", adopted).Msg("sync done")
	fmt.Fprintf(stderr, "%d new transaction(s) recorded, %d matched to local entries.\n", added, adopted)
	return subcommands.ExitSuccess
}
