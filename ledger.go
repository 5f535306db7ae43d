package fundtrade

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"
)

// Ledger is an append-only list of transactions, in recording order.
type Ledger struct {
	transactions []Transaction
	ids          map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		transactions: make([]Transaction, 0),
		ids:          make(map[string]struct{}),
	}
}

// Append adds transactions. Entries are never replaced: an ID already in
// the ledger is an error and nothing is appended.
func (l *Ledger) Append(txs ...Transaction) error {
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if _, dup := l.ids[tx.ID]; dup {
			return invalid("record", ErrInvalidEntry, "transaction %q already recorded", tx.ID)
		}
		if _, dup := seen[tx.ID]; dup {
			return invalid("record", ErrInvalidEntry, "transaction %q appended twice", tx.ID)
		}
		seen[tx.ID] = struct{}{}
	}
	for _, tx := range txs {
		l.ids[tx.ID] = struct{}{}
		l.transactions = append(l.transactions, tx)
	}
	return nil
}

// Has reports whether a transaction with this ID was recorded.
func (l *Ledger) Has(id string) bool {
	_, ok := l.ids[id]
	return ok
}

func (l *Ledger) Len() int { return len(l.transactions) }

// Match returns the entry recorded for the same trade as tx before the
// backend keyed it: a locally keyed or unconfirmed entry with the same ID, or
// with the same customer, fund, type, trade date, units and amount.
func (l *Ledger) Match(tx Transaction) (Transaction, bool) {
	for _, e := range l.transactions {
		if e.Confirmed && !e.LocalIDs {
			continue
		}
		if e.ID == tx.ID {
			return e, true
		}
		if e.Customer == tx.Customer && e.Fund == tx.Fund && e.Type == tx.Type && e.TradeDate == tx.TradeDate &&
			e.Units.Equal(tx.Units) && e.Amount.Equal(tx.Amount) {
			return e, true
		}
	}
	return Transaction{}, false
}

// Get returns the entry recorded under id.
func (l *Ledger) Get(id string) (Transaction, bool) {
	if !l.Has(id) {
		return Transaction{}, false
	}
	for _, tx := range l.transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// Transactions returns an iterator over the entries accepted by all filters.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
	next:
		for _, tx := range l.transactions {
			for _, filter := range filters {
				if !filter(tx) {
					continue next
				}
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// ByPosition keeps the entries of one position.
func ByPosition(id string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.PositionID == id }
}

// ByFund keeps the entries of one fund.
func ByFund(id FundID) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Fund == id }
}

// Snapshot returns a copy of all the entries.
func (l *Ledger) Snapshot() []Transaction { return slices.Clone(l.transactions) }

// EncodeLedger writes the ledger in JSONL format, one transaction per line.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	for _, tx := range ledger.transactions {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}

// EncodeTransaction writes tx as a single JSON line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction %q: %w", tx.ID, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// DecodeLedger reads a JSONL stream. Each line is validated.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(lineBytes, &tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := ledger.Append(tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger: %w", err)
	}
	return ledger, nil
}
