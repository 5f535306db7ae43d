package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailJSON = `{
  "childFundCd": "K55101",
  "fundCd": "K551",
  "classCd": "A",
  "fundNm": "Growth Equity A",
  "nav": 1000,
  "navDate": "2025-03-03",
  "isActive": true,
  "isOnSale": true,
  "salesFeeBps": "50",
  "managementFeeBps": 80,
  "frontLoadFeeRate": 1,
  "redemptionFeeRate": "0.5",
  "redemptionFeeDays": 90,
  "minInitialAmount": 10000,
  "minAdditionalAmount": 1000,
  "purchaseSettleDays": 2,
  "redemptionSettleDays": 3
}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{
		WithRateLimit(1000),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }),
	}, opts...)
	return NewClient(srv.URL, opts...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

var alice = Session{UserID: "alice", Token: "secret"}

func TestFundClass(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fund-classes/K55101", r.URL.Path)
		writeJSON(w, http.StatusOK, detailJSON)
	})

	f, err := c.FundClass(context.Background(), "K55101")
	require.NoError(t, err)

	assert.Equal(t, fundtrade.FundID("K55101"), f.ID())
	assert.Equal(t, "KRW", f.Currency())
	assert.True(t, f.Class.NAV.Value.Equal(fundtrade.M(1000, "KRW")))
	assert.Equal(t, date.New(2025, 3, 3), f.Class.NAV.AsOf)
	assert.True(t, f.Fees.PurchaseFeeRate().Equal(fundtrade.RateFromPercent(1)), "front-load wins over sales fee")
	assert.True(t, f.Fees.TotalFeeBps().Equal(decimal.NewFromInt(130)))
	assert.Equal(t, 3, f.Rules.RedemptionLag)
	assert.True(t, f.Rules.MinInitial.Equal(fundtrade.M(10000, "KRW")))

	nav, err := c.LatestNAV(context.Background(), "K55101")
	require.NoError(t, err)
	assert.True(t, nav.Value.Equal(fundtrade.M(1000, "KRW")))
}

func TestFundClass_Invalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"childFundCd": "K1", "nav": -3, "salesFeeBps": -1, "navDate": "soon"}`)
	})
	_, err := c.FundClass(context.Background(), "K1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "nav must be positive")
	assert.ErrorContains(t, err, "invalid date")
	assert.ErrorIs(t, err, fundtrade.ErrInvalidFees)
}

func TestLatestNAV_Unpublished(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"childFundCd": "K1", "nav": null, "isActive": true}`)
	})
	_, err := c.LatestNAV(context.Background(), "K1")
	assert.ErrorIs(t, err, fundtrade.ErrNavUnavailable)
	assert.Equal(t, fundtrade.KindNotFound, fundtrade.KindOf(err))
}

func TestFundClasses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fund-classes", r.URL.Path)
		writeJSON(w, http.StatusOK, `[`+detailJSON+`, {"childFundCd": ""}]`)
	})
	funds, err := c.FundClasses(context.Background())
	assert.Error(t, err, "the entry without a code is reported")
	require.Len(t, funds, 1)
	assert.Equal(t, fundtrade.FundID("K55101"), funds[0].ID())
}

func TestFundClass_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "no such fund"}`)
	})
	_, err := c.FundClass(context.Background(), "nope")
	assert.Equal(t, fundtrade.KindNotFound, fundtrade.KindOf(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "no such fund", apiErr.Message)
	assert.Equal(t, "/fund-classes/nope", apiErr.Endpoint)
}

func purchaseOrder(amount float64) fundtrade.PurchaseOrder {
	return fundtrade.PurchaseOrder{Customer: "alice", Fund: "K55101", Amount: fundtrade.M(amount, "KRW"), DisclosureAccepted: true}
}

func TestPurchase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fund-subscription/purchase", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		var req PurchaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.UserID)
		assert.Equal(t, "K55101", req.ChildFundCd)
		assert.True(t, req.PurchaseAmount.Equal(decimal.NewFromInt(100000)))

		writeJSON(w, http.StatusOK, `{"success": true, "subscriptionId": "sub-1", "purchaseUnits": 98.9, "purchaseNav": 1001,
			"purchaseFee": 1000, "settlementDate": "2025-03-05", "irpBalanceAfter": 900000}`)
	})

	resp, err := c.Purchase(context.Background(), alice, purchaseOrder(100000))
	require.NoError(t, err)
	assert.True(t, resp.PurchaseUnits.Equal(decimal.RequireFromString("98.9")))

	estimate := fundtrade.Transaction{
		ID: "est", PositionID: "local", Customer: "alice", Fund: "K55101", Type: fundtrade.Buy,
		TradeDate: date.New(2025, 3, 3), NAV: fundtrade.M(1000, "KRW"), Units: fundtrade.U(99),
		Amount: fundtrade.M(100000, "KRW"), Fee: fundtrade.M(1000, "KRW"),
	}
	tx, err := resp.Confirm(estimate)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", tx.PositionID)
	assert.Empty(t, tx.ID, "the tracker assigns an id when the server does not")
	assert.True(t, tx.Units.Equal(fundtrade.U(98.9)))
	assert.True(t, tx.NAV.Equal(fundtrade.M(1001, "KRW")))
	assert.True(t, tx.Amount.Equal(estimate.Amount))
	assert.Equal(t, date.New(2025, 3, 5), tx.SettlementDate)
}

func TestPurchase_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success": false, "errorMessage": "IRP 잔액이 부족합니다"}`)
	})
	_, err := c.Purchase(context.Background(), alice, purchaseOrder(100000))
	assert.ErrorIs(t, err, fundtrade.ErrRejected)
	assert.Equal(t, fundtrade.KindRejected, fundtrade.KindOf(err))
	assert.Equal(t, "IRP 잔액이 부족합니다", fundtrade.UserMessage(err))
}

func TestPurchase_RetriesTransientFailures(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()
		if n < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{"error": "try later"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success": true, "purchaseUnits": 99, "purchaseNav": 1000, "purchaseFee": 1000}`)
	}, WithMaxRetries(3), WithIdempotencyKeys(func() string { return "key-1" }))

	_, err := c.Purchase(context.Background(), alice, purchaseOrder(100000))
	require.NoError(t, err)
	assert.Equal(t, []string{"key-1", "key-1", "key-1"}, keys, "the key is stable across retries")
}

func TestPurchase_RetriesExhausted(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusBadGateway, `upstream down`)
	}, WithMaxRetries(2))

	_, err := c.Purchase(context.Background(), alice, purchaseOrder(100000))
	assert.Equal(t, fundtrade.KindTransport, fundtrade.KindOf(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, "the service is unavailable, please try again later", fundtrade.UserMessage(err))
}

func TestPurchase_ClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusBadRequest, `{"message": "amount too small"}`)
	})

	_, err := c.Purchase(context.Background(), alice, purchaseOrder(100000))
	assert.Equal(t, fundtrade.KindRejected, fundtrade.KindOf(err))
	assert.Equal(t, "amount too small", fundtrade.UserMessage(err))
	assert.Equal(t, 1, calls)
}

func TestPurchase_NoSession(t *testing.T) {
	c := NewClient("http://localhost:0")
	_, err := c.Purchase(context.Background(), Session{}, purchaseOrder(100000))
	assert.Equal(t, fundtrade.KindValidation, fundtrade.KindOf(err))
}

func TestRedeem(t *testing.T) {
	var got []RedeemRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fund-subscription/redeem", r.URL.Path)
		var req RedeemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		writeJSON(w, http.StatusOK, `{"success": true, "sellUnits": "90", "sellAmount": "98901", "redemptionFee": "99",
			"profit": "8769", "profitRate": "7.8921", "remainingUnits": "0", "status": "FULLY_SOLD", "settlementDate": "2025-03-06"}`)
	})

	_, err := c.Redeem(context.Background(), alice, "sub-1", fundtrade.U(90), false)
	require.NoError(t, err)
	resp, err := c.Redeem(context.Background(), alice, "sub-1", fundtrade.Units{}, true)
	require.NoError(t, err)

	require.Len(t, got, 2)
	require.NotNil(t, got[0].SellUnits)
	assert.True(t, got[0].SellUnits.Equal(decimal.NewFromInt(90)))
	assert.False(t, got[0].SellAll)
	assert.Nil(t, got[1].SellUnits)
	assert.True(t, got[1].SellAll)

	estimate := fundtrade.Transaction{
		ID: "est", PositionID: "sub-1", Customer: "alice", Fund: "K55101", Type: fundtrade.Sell,
		TradeDate: date.New(2025, 3, 3), NAV: fundtrade.M(1100, "KRW"), Units: fundtrade.U(90),
		Amount: fundtrade.M(98901, "KRW"), Fee: fundtrade.M(99, "KRW"),
	}
	tx, err := resp.Confirm(estimate)
	require.NoError(t, err)
	assert.True(t, tx.Profit.Equal(fundtrade.M(8769, "KRW")))
	assert.True(t, tx.ProfitRate.Equal(7.8921))
	assert.Equal(t, date.New(2025, 3, 6), tx.SettlementDate)

	_, err = c.Redeem(context.Background(), alice, "sub-1", fundtrade.Units{}, false)
	assert.ErrorIs(t, err, fundtrade.ErrUnitsOutOfRange)
}

func TestActivePositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fund-subscription/user/alice/active", r.URL.Path)
		writeJSON(w, http.StatusOK, `[
			{"subscriptionId": "sub-1", "userId": "alice", "childFundCd": "K55101", "purchaseDate": "2025-03-03",
			 "purchaseAmount": 100000, "purchaseFee": 1000, "purchaseUnits": 99, "currentUnits": 49.5, "status": "PARTIAL_SOLD"},
			{"subscriptionId": "sub-2", "userId": "alice", "childFundCd": "K55101", "status": "ZOMBIE"}
		]`)
	})
	positions, err := c.ActivePositions(context.Background(), alice)
	assert.ErrorContains(t, err, "sub-2")
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, fundtrade.PartialSold, p.Status)
	assert.True(t, p.CostBasis.Equal(fundtrade.M(50000, "KRW")))
	assert.True(t, p.PurchaseAmount.Equal(fundtrade.M(100000, "KRW")))
	assert.Equal(t, date.New(2025, 3, 3), p.OpenedOn)
}

func TestTransactions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fund-subscription/user/alice/transactions", r.URL.Path)
		writeJSON(w, http.StatusOK, `[
			{"transactionId": "t1", "subscriptionId": "sub-1", "userId": "alice", "childFundCd": "K55101", "transactionType": "PURCHASE",
			 "tradeDate": "2025-03-03", "settlementDate": "2025-03-05", "nav": 1000, "units": 99, "amount": 100000, "fee": 1000},
			{"transactionId": "t2", "subscriptionId": "sub-1", "userId": "alice", "childFundCd": "K55101", "transactionType": "REDEMPTION",
			 "tradeDate": "2025-03-10", "nav": 1100, "units": 9, "amount": 9891, "fee": 9, "profit": 891, "profitRate": 9.9}
		]`)
	})
	txs, err := c.Transactions(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, fundtrade.Buy, txs[0].Type)
	assert.Equal(t, fundtrade.Sell, txs[1].Type)
	assert.True(t, txs[1].Confirmed)
	assert.True(t, txs[1].Profit.Equal(fundtrade.M(891, "KRW")))

	tracker := fundtrade.NewTracker()
	require.NoError(t, tracker.Replay(txs))
	p, ok := tracker.Position("sub-1")
	require.True(t, ok)
	assert.True(t, p.Units.Equal(fundtrade.U(90)))
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"totalInvestment": 1500000, "totalValue": 1580000, "totalReturn": 80000, "totalReturnRate": 5.3333, "activeCount": 2}`)
	})
	stats, err := c.Stats(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveCount)
	s := stats.Summary("")
	assert.Equal(t, "KRW", s.Currency)
	assert.True(t, s.TotalReturn.Equal(fundtrade.M(80000, "KRW")))
	assert.True(t, s.TotalReturnRate.Equal(5.3333))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"errorMessage": "closed"}`, "closed"},
		{`{"message": "bad request"}`, "bad request"},
		{`{"error": {"message": "nested"}}`, "nested"},
		{`{"error": "flat"}`, "flat"},
		{`plain text`, "plain text"},
		{``, "Internal Server Error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorMessage(http.StatusInternalServerError, []byte(tt.body)), tt.body)
	}
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, detailJSON)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FundClass(ctx, "K55101")
	assert.Equal(t, fundtrade.KindTransport, fundtrade.KindOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
}
