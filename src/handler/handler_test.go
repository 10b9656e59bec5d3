package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phaseexecutor/src/ledger"
	"phaseexecutor/src/model"
	"phaseexecutor/src/repository"
)

type mockTradeSearcher struct {
	trades      []model.Trade
	err         error
	options     repository.TradeSearchOptions
	calledCount int
}

func (m *mockTradeSearcher) Search(_ context.Context, options repository.TradeSearchOptions) ([]model.Trade, error) {
	m.calledCount++
	m.options = options
	return m.trades, m.err
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	clock := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	l := ledger.New(10000,
		ledger.WithLogger(logrus.NewEntry(log)),
		ledger.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
	)

	ctx := context.Background()
	btc, err := l.OpenPosition(ctx, model.OrderIntent{Kind: model.IntentOpen, Symbol: "BTCUSDT", Side: model.OrderSideBuy, Amount: 0.05}, model.RiskManagement{})
	require.NoError(t, err)
	_, err = l.OpenPosition(ctx, model.OrderIntent{Kind: model.IntentOpen, Symbol: "ETHUSDT", Side: model.OrderSideSell, Amount: 0.02}, model.RiskManagement{})
	require.NoError(t, err)
	_, err = l.ClosePosition(ctx, btc, "distribution_exit")
	require.NoError(t, err)
	return l
}

func TestPortfolioHandler(t *testing.T) {
	l := newTestLedger(t)

	req := httptest.NewRequest(http.MethodGet, "/portfolio", nil)
	rr := httptest.NewRecorder()
	PortfolioHandler(l).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var snap ledger.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Len(t, snap.OpenPositions, 1)
	assert.Len(t, snap.TradeHistory, 3)
	assert.InDelta(t, 200, snap.TotalValue, 1e-9)
}

func TestSummaryHandler(t *testing.T) {
	l := newTestLedger(t)

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	rr := httptest.NewRecorder()
	SummaryHandler(l, nil).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var summary ledger.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalTrades)
	assert.Equal(t, 2, summary.OpenTrades)
	assert.Equal(t, 1, summary.ClosedTrades)
	assert.Equal(t, 2, summary.SymbolsTraded)
	require.NotNil(t, summary.LastTrade)
	assert.Equal(t, "distribution_exit", summary.LastTrade.Reason)
	assert.NotContains(t, rr.Body.String(), "journal_trades_by_symbol")
}

type mockTradeCounter struct {
	counts map[string]int64
	err    error
}

func (m *mockTradeCounter) CountBySymbol(context.Context) (map[string]int64, error) {
	return m.counts, m.err
}

func TestSummaryHandler_JournalCounts(t *testing.T) {
	l := newTestLedger(t)
	counter := &mockTradeCounter{counts: map[string]int64{"BTCUSDT": 4, "ETHUSDT": 1}}

	rr := httptest.NewRecorder()
	SummaryHandler(l, counter).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		TotalTrades   int              `json:"total_trades"`
		JournalTrades map[string]int64 `json:"journal_trades_by_symbol"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalTrades)
	assert.Equal(t, int64(4), body.JournalTrades["BTCUSDT"])
	assert.Equal(t, int64(1), body.JournalTrades["ETHUSDT"])

	counter.err = errors.New("db down")
	rr = httptest.NewRecorder()
	SummaryHandler(l, counter).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type mockExceptionLister struct {
	exceptions []model.Exception
	err        error
	symbol     string
	limit      int
	calls      int
}

func (m *mockExceptionLister) ListBySymbol(_ context.Context, symbol string, limit int) ([]model.Exception, error) {
	m.calls++
	m.symbol = symbol
	m.limit = limit
	return m.exceptions, m.err
}

func TestExceptionsHandler(t *testing.T) {
	repo := &mockExceptionLister{exceptions: []model.Exception{{ID: 7, Symbol: "BTCUSDT", Method: "Apply"}}}

	rr := httptest.NewRecorder()
	ExceptionsHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/exceptions?symbol=btcusdt&limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "BTCUSDT", repo.symbol)
	assert.Equal(t, 5, repo.limit)

	var body struct {
		Symbol     string            `json:"symbol"`
		Exceptions []model.Exception `json:"exceptions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Exceptions, 1)
	assert.Equal(t, "Apply", body.Exceptions[0].Method)
}

func TestExceptionsHandler_InvalidParams(t *testing.T) {
	for _, query := range []string{"/exceptions", "/exceptions?symbol=BTCUSDT&limit=0", "/exceptions?symbol=BTCUSDT&limit=x"} {
		repo := &mockExceptionLister{}
		rr := httptest.NewRecorder()
		ExceptionsHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, query, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
		assert.Equal(t, 0, repo.calls, query)
	}

	repo := &mockExceptionLister{err: errors.New("db down")}
	rr := httptest.NewRecorder()
	ExceptionsHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/exceptions?symbol=ETHUSDT", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestTradesHandler_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"action", "/trades?action=hold"},
		{"from", "/trades?from=yesterday"},
		{"to", "/trades?to=2025-13-01"},
		{"page", "/trades?page=0"},
		{"pageSize", "/trades?pageSize=abc"},
		{"pageSize too large", "/trades?pageSize=1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTradeSearcher{}
			rr := httptest.NewRecorder()
			TradesHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, 0, repo.calledCount)
		})
	}
}

func TestTradesHandler_Filters(t *testing.T) {
	repo := &mockTradeSearcher{trades: []model.Trade{{Symbol: "BTCUSDT", Action: "open"}}}

	req := httptest.NewRequest(http.MethodGet, "/trades?symbol=btcusdt&action=open&from=2025-03-01T00:00:00Z&to=2025-03-05T00:00:00Z&page=2&pageSize=10", nil)
	rr := httptest.NewRecorder()
	TradesHandler(repo).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, repo.calledCount)
	require.NotNil(t, repo.options.Symbol)
	assert.Equal(t, "BTCUSDT", *repo.options.Symbol)
	assert.Equal(t, "open", *repo.options.Action)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *repo.options.After)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), *repo.options.Before)
	assert.Equal(t, 10, repo.options.Limit)
	assert.Equal(t, 10, repo.options.Offset)

	var body struct {
		Page     int           `json:"page"`
		PageSize int           `json:"pageSize"`
		Trades   []model.Trade `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Page)
	assert.Len(t, body.Trades, 1)
}

func TestTradesHandler_RepositoryError(t *testing.T) {
	repo := &mockTradeSearcher{err: errors.New("db down")}
	rr := httptest.NewRecorder()
	TradesHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/trades", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestLedgerTradesSearch(t *testing.T) {
	src := LedgerTrades{Ledger: newTestLedger(t)}
	ctx := context.Background()

	all, err := src.Search(ctx, repository.TradeSearchOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, model.TradeActionClose, all[0].Action, "newest first")

	btc := "BTCUSDT"
	bySymbol, err := src.Search(ctx, repository.TradeSearchOptions{Symbol: &btc})
	require.NoError(t, err)
	assert.Len(t, bySymbol, 2)

	open := model.TradeActionOpen
	paged, err := src.Search(ctx, repository.TradeSearchOptions{Action: &open, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "BTCUSDT", paged[0].Symbol)

	after := all[0].Timestamp
	recent, err := src.Search(ctx, repository.TradeSearchOptions{After: &after})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	beyond, err := src.Search(ctx, repository.TradeSearchOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
