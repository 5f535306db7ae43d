// Package cmd implements the ftc command line: fund quotes, trades and
// position reports on top of the fundtrade package.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/backend"
	"github.com/etnz/fundtrade/config"
	"github.com/etnz/fundtrade/logging"
	"github.com/etnz/fundtrade/renderer"
	"github.com/etnz/fundtrade/sqlite"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&fundsCmd{}, "funds")

	c.Register(&quoteBuyCmd{}, "trades")
	c.Register(&quoteSellCmd{}, "trades")
	c.Register(&buyCmd{}, "trades")
	c.Register(&sellCmd{}, "trades")

	c.Register(&positionsCmd{}, "reports")
	c.Register(&summaryCmd{}, "reports")
	c.Register(&logCmd{}, "reports")

	c.Register(&loginCmd{}, "backend")
	c.Register(&syncCmd{}, "backend")

	c.Register(&topicCmd{}, "help")
}

// Commands lists every subcommand Register installs.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&fundsCmd{},
		&quoteBuyCmd{}, &quoteSellCmd{}, &buyCmd{}, &sellCmd{},
		&positionsCmd{}, &summaryCmd{}, &logCmd{},
		&loginCmd{}, &syncCmd{},
		&topicCmd{},
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile  = flag.String("config", "ftc.toml", "Path to the configuration file")
	dbPath      = flag.String("db", "", "Path to the SQLite position store. Overrides storage.path")
	catalogPath = flag.String("catalog", "", "Path to the local fund catalog. Overrides catalog.path")
	remoteURL   = flag.String("remote", "", "Base URL of the trade backend. Overrides backend.base_url")
	rawOutput   = flag.Bool("raw", false, "Print markdown as is, without terminal rendering")
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// loadConfig reads the configuration file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *remoteURL != "" {
		cfg.Backend.BaseURL = *remoteURL
	}
	return cfg, cfg.Validate()
}

var errNoBackend = errors.New("no trade backend configured, set backend.base_url or -remote")

// fundSource is what the commands need from a catalog or a backend.
type fundSource interface {
	backend.FundSource
	fundtrade.NavSource
}

// app is the state shared by the commands for one invocation.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	repo    *sqlite.Repository
	tracker *fundtrade.Tracker
	funds   fundSource
	catalog *fundtrade.Catalog // nil with a backend
	client  *backend.Client    // nil without a backend
}

// openApp loads the configuration, the position store and the fund source.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, stderr)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.Storage.Path, Logger: logger.Component("sqlite")})
	if err != nil {
		return nil, err
	}
	tracker, err := repo.LoadTracker(ctx, cfg.TrackerOptions()...)
	if err != nil {
		repo.Close()
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, repo: repo, tracker: tracker}

	if cfg.Remote() {
		opts := []backend.ClientOption{
			backend.WithLogger(logger.Component("backend")),
			backend.WithTimeout(cfg.Backend.GetTimeout()),
			backend.WithRateLimit(cfg.Backend.RateLimit),
			backend.WithMaxRetries(cfg.Backend.MaxRetries),
		}
		if cfg.Backend.NavCache {
			opts = append(opts, backend.WithDailyCache(filepath.Join(os.TempDir(), "ftc-cache")))
		}
		a.client = backend.NewClient(cfg.Backend.BaseURL, opts...)
		a.funds = a.client
		logger.Debug().Str("url", cfg.Backend.BaseURL).Msg("using trade backend")
		return a, nil
	}

	catalog, err := fundtrade.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("cannot load fund catalog %q: %w", cfg.Catalog.Path, err)
	}
	a.catalog = catalog
	a.funds = catalog
	logger.Debug().Str("path", cfg.Catalog.Path).Int("funds", len(catalog.Funds())).Msg("using local fund catalog")
	return a, nil
}

// Close releases the position store.
func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Error().Err(err).Msg("closing position store")
	}
}

// session returns the backend credentials, from the configuration when both
// customer_id and token are set, else from the session file.
func (a *app) session() (backend.Session, error) {
	if a.cfg.CustomerID != "" && a.cfg.Backend.Token != "" {
		return backend.Session{UserID: a.cfg.CustomerID, Token: a.cfg.Backend.Token}, nil
	}
	return backend.LoadSession(a.cfg.Backend.SessionFile)
}

// customer returns the owner of new positions.
func (a *app) customer() (string, error) {
	if a.client != nil {
		s, err := a.session()
		return s.UserID, err
	}
	if a.cfg.CustomerID != "" {
		return a.cfg.CustomerID, nil
	}
	return "local", nil
}

func (a *app) quoter() *backend.Quoter {
	return backend.NewQuoter(a.funds, a.tracker, a.logger.Component("quote"))
}

// commit stores tx together with the position it left behind.
func (a *app) commit(ctx context.Context, tx fundtrade.Transaction) error {
	p, ok := a.tracker.Position(tx.PositionID)
	if !ok {
		return fmt.Errorf("position %s vanished after recording %s", tx.PositionID, tx.ID)
	}
	return a.repo.Commit(ctx, tx, p)
}

// reconcile records the backend confirmation of a trade estimated locally
// and prints how far the estimate was.
func (a *app) reconcile(ctx context.Context, estimate, confirmed fundtrade.Transaction) error {
	if confirmed.ID == "" {
		confirmed.ID = uuid.NewString()
		confirmed.LocalIDs = true
	}
	drift, err := a.tracker.Reconcile(estimate, confirmed)
	if err != nil {
		return err
	}
	confirmed.Confirmed = true
	if err := a.commit(ctx, confirmed); err != nil {
		// The trade happened: the next sync restores it.
		a.logger.Error().Err(err).Str("transaction", confirmed.ID).Msg("confirmed trade not stored, run 'ftc sync'")
		return err
	}
	if !drift.IsZero() {
		a.logger.Warn().
			Str("transaction", confirmed.ID).
			Str("units", drift.Units.String()).
			Str("amount", drift.Amount.String()).
			Msg("confirmation differs from the estimate")
	}
	printMarkdown(renderer.ConfirmationMarkdown(confirmed, &drift))
	return nil
}

// adopt re-keys the locally keyed entry local to the backend record server
// of the same trade.
func (a *app) adopt(ctx context.Context, local, server fundtrade.Transaction) error {
	tx, p, err := a.tracker.Adopt(local.ID, server)
	if err != nil {
		return err
	}
	if err := a.repo.Rekey(ctx, local.ID, local.PositionID, tx, p); err != nil {
		return err
	}
	a.logger.Info().
		Str("from", local.ID).Str("id", tx.ID).
		Str("from_position", local.PositionID).Str("position", p.ID).
		Msg("adopted backend IDs")
	return nil
}

// fail reports err to the user and returns the matching exit status.
func fail(logger *logging.Logger, err error) subcommands.ExitStatus {
	if logger != nil {
		logger.Debug().Err(err).Str("kind", fundtrade.KindOf(err).String()).Msg("command failed")
	}
	fmt.Fprintf(stderr, "Error: %s\n", fundtrade.UserMessage(err))
	// UserMessage only shows the first of several validation failures.
	if msgs := validationMessages(err); len(msgs) > 1 {
		for _, m := range msgs[1:] {
			fmt.Fprintf(stderr, "Error: %s\n", m)
		}
	}
	return subcommands.ExitFailure
}

// validationMessages lists the messages of every validation error joined in err.
func validationMessages(err error) []string {
	var msgs []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, validationMessages(e)...)
		}
		return msgs
	}
	var e *fundtrade.Error
	if errors.As(err, &e) && e.Kind == fundtrade.KindValidation {
		msgs = append(msgs, e.Msg)
	}
	return msgs
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
