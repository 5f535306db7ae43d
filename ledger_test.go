package fundtrade

import (
	"bytes"
	"strings"
	"testing"

	"github.com/etnz/fundtrade/date"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{ID: "t1", PositionID: "p1", Customer: "alice", Fund: "K55101", Type: Buy,
			TradeDate: date.New(2025, 3, 3), SettlementDate: date.New(2025, 3, 5),
			NAV: KRW(1000), Units: U(99), Amount: KRW(100000), Fee: KRW(1000)},
		{ID: "t2", PositionID: "p1", Customer: "alice", Fund: "K55101", Type: Sell,
			TradeDate: date.New(2025, 4, 1), SettlementDate: date.New(2025, 4, 4),
			NAV: KRW(1200), Units: U(D("9.5")), Amount: KRW(11389), Fee: KRW(11),
			Profit: KRW(1393), ProfitRate: 14.0707, Confirmed: true},
	}
}

func TestEncodeLedger(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Append(sampleTransactions()...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeLedger(&buf, ledger); err != nil {
		t.Fatalf("EncodeLedger() error = %v", err)
	}
	want := `{"id":"t1","position":"p1","customer":"alice","fund":"K55101","type":"BUY","date":"2025-03-03","settles":"2025-03-05","currency":"KRW","nav":1000,"units":99,"amount":100000,"fee":1000}
{"id":"t2","position":"p1","customer":"alice","fund":"K55101","type":"SELL","date":"2025-04-01","settles":"2025-04-04","currency":"KRW","nav":1200,"units":9.5,"amount":11389,"fee":11,"profit":1393,"profitRate":14.0707,"confirmed":true}
`
	if got := buf.String(); got != want {
		t.Errorf("EncodeLedger() =\n%s\nwant:\n%s", got, want)
	}
}

func TestDecodeLedger(t *testing.T) {
	var buf bytes.Buffer
	for _, tx := range sampleTransactions() {
		if err := EncodeTransaction(&buf, tx); err != nil {
			t.Fatalf("EncodeTransaction() error = %v", err)
		}
	}
	ledger, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	got := ledger.Snapshot()
	want := sampleTransactions()
	if len(got) != len(want) {
		t.Fatalf("DecodeLedger() read %d transactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i].String() || got[i].Confirmed != want[i].Confirmed {
			t.Errorf("transaction %d = %v, want %v", i, got[i], want[i])
		}
		if got[i].SettlementDate != want[i].SettlementDate {
			t.Errorf("transaction %d settles %s, want %s", i, got[i].SettlementDate, want[i].SettlementDate)
		}
	}
}

func TestDecodeLedger_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"duplicate id", `{"id":"t1","position":"p1","fund":"F","type":"BUY","date":"2025-03-03","currency":"KRW","nav":1000,"units":1,"amount":1000,"fee":0}
{"id":"t1","position":"p1","fund":"F","type":"BUY","date":"2025-03-04","currency":"KRW","nav":1000,"units":1,"amount":1000,"fee":0}`},
		{"unknown type", `{"id":"t1","position":"p1","fund":"F","type":"HOLD","date":"2025-03-03","currency":"KRW","nav":1000,"units":1,"amount":1000,"fee":0}`},
		{"no units", `{"id":"t1","position":"p1","fund":"F","type":"BUY","date":"2025-03-03","currency":"KRW","nav":1000,"units":0,"amount":1000,"fee":0}`},
		{"not json", `buy 1 F`},
	}
	for _, tt := range tests {
		if _, err := DecodeLedger(strings.NewReader(tt.input)); err == nil {
			t.Errorf("%s: DecodeLedger() = nil error, want error", tt.name)
		}
	}
}

func TestLedger_Filters(t *testing.T) {
	ledger := NewLedger()
	txs := sampleTransactions()
	other := txs[0]
	other.ID, other.PositionID, other.Fund = "t3", "p2", "K99"
	if err := ledger.Append(append(txs, other)...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	count := func(filters ...func(Transaction) bool) int {
		n := 0
		for range ledger.Transactions(filters...) {
			n++
		}
		return n
	}
	if got := count(); got != 3 {
		t.Errorf("Transactions() yielded %d, want 3", got)
	}
	if got := count(ByPosition("p1")); got != 2 {
		t.Errorf("Transactions(ByPosition(p1)) yielded %d, want 2", got)
	}
	if got := count(ByPosition("p1"), ByFund("K99")); got != 0 {
		t.Errorf("Transactions(ByPosition(p1), ByFund(K99)) yielded %d, want 0", got)
	}

	if err := ledger.Append(other); err == nil {
		t.Error("Append(duplicate) = nil, want error")
	}
	if ledger.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ledger.Len())
	}
}
