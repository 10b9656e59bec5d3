package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"phaseexecutor/src/handler"
	"phaseexecutor/src/ledger"
)

// Deps are the read-only sources behind the HTTP surface.
type Deps struct {
	Ledger *ledger.Ledger
	// Trades serves /trades. Nil falls back to the in-memory history.
	Trades handler.TradeSearcher
	// TradeCounts and Exceptions come from the journal database; /exceptions
	// is only routed when Exceptions is set.
	TradeCounts handler.TradeCounter
	Exceptions  handler.ExceptionLister
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	trades := deps.Trades
	if trades == nil {
		trades = handler.LedgerTrades{Ledger: deps.Ledger}
	}

	r.Get("/portfolio", handler.PortfolioHandler(deps.Ledger))
	r.Get("/summary", handler.SummaryHandler(deps.Ledger, deps.TradeCounts))
	r.Get("/trades", handler.TradesHandler(trades))
	if deps.Exceptions != nil {
		r.Get("/exceptions", handler.ExceptionsHandler(deps.Exceptions))
	}

	return r
}

// StartServer serves router on port until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, port string, router http.Handler) error {
	cfg := GetConfig()
	if port == "" {
		port = cfg.Port
	}

	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server crashed")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
