package backend

import (
	"context"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	require.NoError(t, SaveSession(path, alice))

	got, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = LoadSession(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "ftc login")

	assert.Error(t, SaveSession(path, Session{Token: "anonymous"}))
}

func TestDailyCache(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, detailJSON)
	}, WithDailyCache(t.TempDir()))

	day := date.New(2025, 3, 3)
	c.cache.today = func() date.Date { return day }

	for range 3 {
		f, err := c.FundClass(context.Background(), "K55101")
		require.NoError(t, err)
		assert.Equal(t, fundtrade.FundID("K55101"), f.ID(), "cached body is intact")
	}
	assert.Equal(t, int32(1), hits.Load())

	day = day.Add(1)
	_, err := c.FundClass(context.Background(), "K55101")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "entries expire with the day")

	// trades are never cached
	for range 2 {
		_, _ = c.Purchase(context.Background(), alice, purchaseOrder(100000))
	}
	assert.Equal(t, int32(4), hits.Load())
}

func TestDailyCache_CreatesDirectory(t *testing.T) {
	var hits atomic.Int32
	dir := filepath.Join(t.TempDir(), "ftc-cache")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, detailJSON)
	}, WithDailyCache(dir))

	for range 3 {
		_, err := c.FundClass(context.Background(), "K55101")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.DirExists(t, dir)
}

func TestDailyCache_SkipsErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusNotFound, `{"message": "no such fund"}`)
	}, WithDailyCache(t.TempDir()))

	for range 2 {
		_, err := c.FundClass(context.Background(), "nope")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestSequencer(t *testing.T) {
	var s Sequencer
	ctx1, t1, cancel1 := s.Start(context.Background())
	defer cancel1()
	ctx2, t2, cancel2 := s.Start(context.Background())
	defer cancel2()

	assert.Less(t, t1.ID(), t2.ID())
	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "a new request cancels the previous one")
	assert.NoError(t, ctx2.Err())

	applied := false
	assert.ErrorIs(t, t1.Commit(func() { applied = true }), fundtrade.ErrSuperseded)
	assert.False(t, applied)
	assert.NoError(t, t2.Commit(func() { applied = true }))
	assert.True(t, applied)
}

// blockingSource serves funds, blocking on "slow" until the request is cancelled.
type blockingSource struct {
	started chan struct{}
}

func (b blockingSource) FundClass(ctx context.Context, id fundtrade.FundID) (fundtrade.Fund, error) {
	if id == "slow" {
		close(b.started)
		<-ctx.Done()
		return fundtrade.Fund{}, fundtrade.Transport("fetch fund", ctx.Err())
	}
	return quoterFund(id), nil
}

func quoterFund(id fundtrade.FundID) fundtrade.Fund {
	front := fundtrade.RateFromPercent(1)
	return fundtrade.Fund{
		Class: fundtrade.FundClass{ID: id, Currency: "KRW", Active: true, OnSale: true,
			NAV: fundtrade.NAV{Value: fundtrade.M(1000, "KRW"), AsOf: date.New(2025, 3, 3)}},
		Fees:  fundtrade.FeeSchedule{FrontLoad: &front},
		Rules: fundtrade.TradeRules{MinInitial: fundtrade.M(10000, "KRW"), MinAdditional: fundtrade.M(1000, "KRW"), PurchaseLag: 2, RedemptionLag: 3},
	}
}

func TestQuoter_Supersedes(t *testing.T) {
	src := blockingSource{started: make(chan struct{})}
	q := NewQuoter(src, fundtrade.NewTracker(), nil)
	q.today = func() date.Date { return date.New(2025, 3, 3) }

	slow := purchaseOrder(100000)
	slow.Fund = "slow"
	errc := make(chan error, 1)
	go func() {
		_, err := q.QuotePurchase(context.Background(), slow)
		errc <- err
	}()
	<-src.started

	plan, err := q.QuotePurchase(context.Background(), purchaseOrder(100000))
	require.NoError(t, err)
	assert.True(t, plan.Quote.Units.Equal(fundtrade.U(99)))
	assert.Equal(t, date.New(2025, 3, 5), plan.Settlement)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, fundtrade.ErrSuperseded)
		assert.Equal(t, fundtrade.KindSuperseded, fundtrade.KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("the superseded quote never returned")
	}
}

func TestQuoter_SupersededBeforePositionRead(t *testing.T) {
	tracker := fundtrade.NewTracker()
	require.NoError(t, tracker.Record(fundtrade.Transaction{
		ID: "t1", PositionID: "p1", Customer: "alice", Fund: "K55101", Type: fundtrade.Buy,
		TradeDate: date.New(2025, 3, 3), NAV: fundtrade.M(1000, "KRW"), Units: fundtrade.U(99),
		Amount: fundtrade.M(100000, "KRW"), Fee: fundtrade.M(1000, "KRW"),
	}))
	q := NewQuoter(blockingSource{}, tracker, nil)

	_, older, cancel1 := q.seq.Start(context.Background())
	defer cancel1()
	_, newer, cancel2 := q.seq.Start(context.Background())
	defer cancel2()

	_, err := q.position(older, "p1")
	assert.ErrorIs(t, err, fundtrade.ErrSuperseded)
	assert.Equal(t, fundtrade.KindSuperseded, fundtrade.KindOf(err))

	p, err := q.position(newer, "p1")
	require.NoError(t, err)
	assert.True(t, p.Units.Equal(fundtrade.U(99)))

	_, err = q.position(newer, "nope")
	assert.Equal(t, fundtrade.KindNotFound, fundtrade.KindOf(err))
}

func TestQuoter_Redemption(t *testing.T) {
	tracker := fundtrade.NewTracker()
	require.NoError(t, tracker.Record(fundtrade.Transaction{
		ID: "t1", PositionID: "p1", Customer: "alice", Fund: "K55101", Type: fundtrade.Buy,
		TradeDate: date.New(2025, 3, 3), NAV: fundtrade.M(1000, "KRW"), Units: fundtrade.U(99),
		Amount: fundtrade.M(100000, "KRW"), Fee: fundtrade.M(1000, "KRW"),
	}))
	q := NewQuoter(blockingSource{}, tracker, nil)
	q.today = func() date.Date { return date.New(2025, 3, 3) }

	plan, err := q.QuoteRedemption(context.Background(), fundtrade.RedemptionOrder{PositionID: "p1", Percent: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, plan.Quote.Units.Equal(fundtrade.U(49.5)))
	assert.Equal(t, date.New(2025, 3, 6), plan.Settlement)

	_, err = q.QuoteRedemption(context.Background(), fundtrade.RedemptionOrder{PositionID: "nope", All: true})
	assert.ErrorIs(t, err, fundtrade.ErrPositionNotFound)
}
