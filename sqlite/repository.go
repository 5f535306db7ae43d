// Package sqlite stores the ledger and position snapshots of ftc in a local
// SQLite database. Amounts are stored as decimal text to stay exact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/date"
	"github.com/etnz/fundtrade/logging"
	"github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned when a transaction ID is already stored.
var ErrDuplicate = errors.New("transaction already stored")

// Repository persists fundtrade transactions and positions.
type Repository struct {
	db     *sql.DB
	logger *logging.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger *logging.Logger
}

// NewRepository opens, and creates if needed, the database at cfg.DBPath.
func NewRepository(cfg Config) (*Repository, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewSilent()
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "ftc.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
	}

	// a single writer, SQLite serializes the rest
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	logger.Debug().Str("path", dbPath).Msg("sqlite database ready")
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		position_id TEXT NOT NULL,
		customer TEXT NOT NULL,
		fund TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('BUY', 'SELL')),
		trade_date TEXT NOT NULL,
		settlement_date TEXT,
		currency TEXT NOT NULL,
		nav TEXT NOT NULL,
		units TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		profit TEXT,
		profit_rate REAL,
		confirmed INTEGER NOT NULL DEFAULT 0,
		local_ids INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		customer TEXT NOT NULL,
		fund TEXT NOT NULL,
		currency TEXT NOT NULL,
		opened_on TEXT NOT NULL,
		purchase_amount TEXT NOT NULL,
		purchase_fees TEXT NOT NULL,
		cost_basis TEXT NOT NULL,
		units_purchased TEXT NOT NULL,
		units TEXT NOT NULL,
		realized_profit TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_position ON transactions (position_id);
	CREATE INDEX IF NOT EXISTS idx_positions_customer_fund_status ON positions (customer, fund, status);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullDate(d date.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// transactionArgs returns the column values of tx in transactionColumns order.
func transactionArgs(tx fundtrade.Transaction) []any {
	var profit sql.NullString
	var profitRate sql.NullFloat64
	if tx.Type == fundtrade.Sell {
		profit = sql.NullString{String: tx.Profit.Decimal().String(), Valid: true}
		profitRate = sql.NullFloat64{Float64: float64(tx.ProfitRate), Valid: true}
	}
	return []any{
		tx.ID, tx.PositionID, tx.Customer, string(tx.Fund), string(tx.Type), tx.TradeDate.String(), nullDate(tx.SettlementDate),
		tx.Currency(), tx.NAV.Decimal().String(), tx.Units.Decimal().String(), tx.Amount.Decimal().String(), tx.Fee.Decimal().String(),
		profit, profitRate, tx.Confirmed, tx.LocalIDs,
	}
}

const transactionColumns = `id, position_id, customer, fund, type, trade_date, settlement_date,
	currency, nav, units, amount, fee, profit, profit_rate, confirmed, local_ids`

func insertTransaction(ctx context.Context, db execer, tx fundtrade.Transaction) error {
	const query = `INSERT INTO transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, query, transactionArgs(tx)...)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("transaction %s: %w", tx.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func upsertPosition(ctx context.Context, db execer, p fundtrade.Position) error {
	const query = `
	INSERT INTO positions (id, customer, fund, currency, opened_on, purchase_amount, purchase_fees, cost_basis,
		units_purchased, units, realized_profit, status, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		purchase_amount = excluded.purchase_amount,
		purchase_fees = excluded.purchase_fees,
		cost_basis = excluded.cost_basis,
		units_purchased = excluded.units_purchased,
		units = excluded.units,
		realized_profit = excluded.realized_profit,
		status = excluded.status,
		updated_at = excluded.updated_at`

	_, err := db.ExecContext(ctx, query,
		p.ID, p.Customer, string(p.Fund), p.Currency, p.OpenedOn.String(),
		p.PurchaseAmount.Decimal().String(), p.PurchaseFees.Decimal().String(), p.CostBasis.Decimal().String(),
		p.UnitsPurchased.Decimal().String(), p.Units.Decimal().String(), p.RealizedProfit.Decimal().String(),
		string(p.Status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save position %s: %w", p.ID, err)
	}
	return nil
}

// SaveTransaction appends tx to the stored ledger.
func (r *Repository) SaveTransaction(ctx context.Context, tx fundtrade.Transaction) error {
	if err := insertTransaction(ctx, r.db, tx); err != nil {
		return err
	}
	r.logger.Debug().Str("id", tx.ID).Str("type", string(tx.Type)).Str("position", tx.PositionID).Msg("transaction saved")
	return nil
}

// SavePosition inserts or updates a position snapshot.
func (r *Repository) SavePosition(ctx context.Context, p fundtrade.Position) error {
	return upsertPosition(ctx, r.db, p)
}

// Commit stores a recorded transaction and the position it produced in a
// single database transaction.
func (r *Repository) Commit(ctx context.Context, tx fundtrade.Transaction, p fundtrade.Position) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if err := insertTransaction(ctx, dbtx, tx); err != nil {
		return err
	}
	if err := upsertPosition(ctx, dbtx, p); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", tx.ID, err)
	}
	r.logger.Debug().Str("id", tx.ID).Str("position", p.ID).Str("status", string(p.Status)).Msg("trade committed")
	return nil
}

// Rekey replaces the transaction stored under id with tx, keeping its place
// in the ledger. When the position was keyed from, its entries move to p and
// the old snapshot is dropped.
func (r *Repository) Rekey(ctx context.Context, id, from string, tx fundtrade.Transaction, p fundtrade.Position) error {
	const update = `
	UPDATE transactions SET id = ?, position_id = ?, customer = ?, fund = ?, type = ?, trade_date = ?,
		settlement_date = ?, currency = ?, nav = ?, units = ?, amount = ?, fee = ?, profit = ?,
		profit_rate = ?, confirmed = ?, local_ids = ?
	WHERE id = ?`

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx, update, append(transactionArgs(tx), id)...)
	if err != nil {
		return fmt.Errorf("failed to rekey transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s is not stored", id)
	}
	if from != p.ID {
		if _, err := dbtx.ExecContext(ctx, `UPDATE transactions SET position_id = ? WHERE position_id = ?`, p.ID, from); err != nil {
			return fmt.Errorf("failed to move position %s: %w", from, err)
		}
		if _, err := dbtx.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, from); err != nil {
			return fmt.Errorf("failed to drop position %s: %w", from, err)
		}
	}
	if err := upsertPosition(ctx, dbtx, p); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rekey of %s: %w", id, err)
	}
	r.logger.Debug().Str("from", id).Str("id", tx.ID).Str("position", p.ID).Msg("transaction rekeyed")
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// decoder accumulates the parse errors of one row.
type decoder struct{ errs error }

func (d *decoder) decimal(name, s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.errs = errors.Join(d.errs, fmt.Errorf("%s: %w", name, err))
	}
	return v
}

func (d *decoder) date(name string, s sql.NullString) date.Date {
	if !s.Valid {
		return date.Date{}
	}
	v, err := date.Parse(s.String)
	if err != nil {
		d.errs = errors.Join(d.errs, fmt.Errorf("%s: %w", name, err))
	}
	return v
}

func scanTransaction(row scanner) (fundtrade.Transaction, error) {
	var (
		tx                                  fundtrade.Transaction
		fund, typ, cur, nav, units, amt, fe string
		trade, settles                      sql.NullString
		profit                              sql.NullString
		profitRate                          sql.NullFloat64
	)
	err := row.Scan(&tx.ID, &tx.PositionID, &tx.Customer, &fund, &typ, &trade, &settles,
		&cur, &nav, &units, &amt, &fe, &profit, &profitRate, &tx.Confirmed, &tx.LocalIDs)
	if err != nil {
		return fundtrade.Transaction{}, err
	}
	var d decoder
	tx.Fund = fundtrade.FundID(fund)
	tx.Type = fundtrade.TxType(typ)
	tx.TradeDate = d.date("trade_date", trade)
	tx.SettlementDate = d.date("settlement_date", settles)
	tx.NAV = fundtrade.M(d.decimal("nav", nav), cur)
	tx.Units = fundtrade.U(d.decimal("units", units))
	tx.Amount = fundtrade.M(d.decimal("amount", amt), cur)
	tx.Fee = fundtrade.M(d.decimal("fee", fe), cur)
	if profit.Valid {
		tx.Profit = fundtrade.M(d.decimal("profit", profit.String), cur)
		tx.ProfitRate = fundtrade.Percent(profitRate.Float64)
	}
	if d.errs != nil {
		return fundtrade.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, d.errs)
	}
	return tx, nil
}

// LoadTransactions returns the stored ledger in insertion order.
func (r *Repository) LoadTransactions(ctx context.Context) ([]fundtrade.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]fundtrade.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

// LoadTracker replays the stored ledger into a new Tracker.
func (r *Repository) LoadTracker(ctx context.Context, opts ...fundtrade.Option) (*fundtrade.Tracker, error) {
	txs, err := r.LoadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	t := fundtrade.NewTracker(opts...)
	if err := t.Replay(txs); err != nil {
		return nil, fmt.Errorf("stored ledger is inconsistent: %w", err)
	}
	r.logger.Debug().Int("transactions", len(txs)).Int("positions", len(t.Positions())).Msg("ledger replayed")
	return t, nil
}

const positionColumns = `id, customer, fund, currency, opened_on, purchase_amount, purchase_fees, cost_basis,
	units_purchased, units, realized_profit, status`

func scanPosition(row scanner) (fundtrade.Position, error) {
	var (
		p                                           fundtrade.Position
		fund, cur, status                           string
		opened                                      sql.NullString
		amount, fees, basis, bought, held, realized string
	)
	err := row.Scan(&p.ID, &p.Customer, &fund, &cur, &opened, &amount, &fees, &basis, &bought, &held, &realized, &status)
	if err != nil {
		return fundtrade.Position{}, err
	}
	var d decoder
	p.Fund = fundtrade.FundID(fund)
	p.Currency = cur
	p.OpenedOn = d.date("opened_on", opened)
	p.PurchaseAmount = fundtrade.M(d.decimal("purchase_amount", amount), cur)
	p.PurchaseFees = fundtrade.M(d.decimal("purchase_fees", fees), cur)
	p.CostBasis = fundtrade.M(d.decimal("cost_basis", basis), cur)
	p.UnitsPurchased = fundtrade.U(d.decimal("units_purchased", bought))
	p.Units = fundtrade.U(d.decimal("units", held))
	p.RealizedProfit = fundtrade.M(d.decimal("realized_profit", realized), cur)
	st, err := fundtrade.ParseStatus(status)
	if err != nil {
		d.errs = errors.Join(d.errs, err)
	}
	p.Status = st
	if d.errs != nil {
		return fundtrade.Position{}, fmt.Errorf("position %s: %w", p.ID, d.errs)
	}
	return p, nil
}

// FindPosition retrieves a position snapshot by ID.
func (r *Repository) FindPosition(ctx context.Context, id string) (fundtrade.Position, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = ?`, id)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fundtrade.Position{}, &fundtrade.Error{Kind: fundtrade.KindNotFound, Op: "find position", Msg: fmt.Sprintf("no position %q", id), Err: fundtrade.ErrPositionNotFound}
	}
	if err != nil {
		return fundtrade.Position{}, fmt.Errorf("failed to query position %s: %w", id, err)
	}
	return p, nil
}

// ListPositions returns the stored positions in opening order. With openOnly,
// fully sold positions are left out.
func (r *Repository) ListPositions(ctx context.Context, openOnly bool) ([]fundtrade.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions`
	var args []any
	if openOnly {
		query += ` WHERE status != ?`
		args = append(args, string(fundtrade.FullySold))
	}
	query += ` ORDER BY opened_on, rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]fundtrade.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}
