package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"phaseexecutor/src/ledger"
	"phaseexecutor/src/metrics"
	"phaseexecutor/src/model"
	"phaseexecutor/src/repository"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	l := ledger.New(10000, ledger.WithLogger(logrus.NewEntry(log)))
	_, err := l.OpenPosition(context.Background(), model.OrderIntent{
		Kind: model.IntentOpen, Symbol: "BTCUSDT", Side: model.OrderSideBuy, Amount: 0.05,
	}, model.RiskManagement{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	rec.RecordCycle()
	rec.SetOpenPositions(l.OpenCount())

	return NewRouter(Deps{Ledger: l, Gatherer: reg})
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/healthcheck", http.StatusOK, "OK"},
		{"/portfolio", http.StatusOK, `"symbol":"BTCUSDT"`},
		{"/summary", http.StatusOK, `"total_trades":1`},
		{"/trades?symbol=BTCUSDT", http.StatusOK, `"action":"open"`},
		{"/trades?page=-1", http.StatusBadRequest, "invalid page"},
		{"/metrics", http.StatusOK, "phase_executor_open_positions 1"},
		{"/exceptions?symbol=BTCUSDT", http.StatusNotFound, ""},
		{"/unknown", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rr.Code)
			assert.True(t, strings.Contains(rr.Body.String(), tt.contains), "body: %s", rr.Body.String())
		})
	}
}

func TestRouterJournalRoutes(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	log, _ := logrustest.NewNullLogger()
	router := NewRouter(Deps{
		Ledger:      ledger.New(10000, ledger.WithLogger(logrus.NewEntry(log))),
		TradeCounts: (&repository.TradeRepository{}).WithDB(gdb),
		Exceptions:  (&repository.ExceptionRepository{}).WithDB(gdb),
		Gatherer:    prometheus.NewRegistry(),
	})

	mock.ExpectQuery(`SELECT symbol, COUNT\(\*\) AS total FROM "trades" GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"symbol", "total"}).AddRow("BTCUSDT", 2))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"journal_trades_by_symbol":{"BTCUSDT":2}`)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "exceptions" WHERE symbol = $1 ORDER BY created_at DESC, id DESC LIMIT $2`)).
		WithArgs("BTCUSDT", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "symbol", "method"}).AddRow(3, "BTCUSDT", "SelectStrategy"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/exceptions?symbol=btcusdt", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"method":"SelectStrategy"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestHealthcheckLogsWriteFailure(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	router := newTestRouter(t)
	router.ServeHTTP(failingWriter{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "healthcheck write failed", entry.Message)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
}

func TestStartServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, "0", http.NotFoundHandler()) }()

	cancel()
	assert.NoError(t, <-done)
}
