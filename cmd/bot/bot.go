package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"phaseexecutor/src/connectors"
	"phaseexecutor/src/database"
	"phaseexecutor/src/executors"
	"phaseexecutor/src/handler"
	"phaseexecutor/src/ledger"
	"phaseexecutor/src/metrics"
	"phaseexecutor/src/repository"
	"phaseexecutor/src/server"
)

// Bot wires the signal client, ledger, orchestrator and HTTP surface together.
type Bot struct {
	Log *logrus.Entry
	Out io.Writer

	cfg          executors.Config
	ledger       *ledger.Ledger
	orchestrator *executors.Orchestrator
	trades       handler.TradeSearcher
	tradeCounts  handler.TradeCounter
	exceptions   handler.ExceptionLister
	registry     *prometheus.Registry
}

// SetupLogger applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func SetupLogger(cfg *Config) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func (b *Bot) init() error {
	if b.Log == nil {
		b.Log = logrus.WithField("cmd", "bot")
	}
	if b.Out == nil {
		b.Out = os.Stdout
	}

	b.cfg = executors.GetConfig()
	apiCfg := connectors.GetConfig()
	if apiCfg.APIKey == "" {
		b.Log.Warn("API_KEY is empty, the signal service may reject requests")
	}

	b.registry = prometheus.NewRegistry()
	b.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(b.registry)

	ledgerOpts := []ledger.Option{
		ledger.WithPricer(ledger.SimulatedPricer{Entry: b.cfg.SimEntryPrice, CloseMarkup: b.cfg.SimCloseMarkup}),
		ledger.WithLogger(b.Log.WithField("component", "ledger")),
	}
	orchestratorOpts := []executors.Option{
		executors.WithMetrics(recorder),
		executors.WithLogger(b.Log.WithField("component", "orchestrator")),
	}

	if database.GetConfig().EnableDB {
		if err := database.InitMainDB(); err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		tradeRepo := repository.NewTradeRepository()
		exceptionRepo := repository.NewExceptionRepository()
		ledgerOpts = append(ledgerOpts, ledger.WithJournal(tradeRepo))
		orchestratorOpts = append(orchestratorOpts, executors.WithExceptionStore(exceptionRepo))
		b.trades = tradeRepo
		b.tradeCounts = tradeRepo
		b.exceptions = exceptionRepo
	}

	b.ledger = ledger.New(b.cfg.AccountBalance, ledgerOpts...)
	client := connectors.NewClient(apiCfg).WithMetrics(recorder)
	b.orchestrator = executors.NewOrchestrator(b.cfg, client, b.ledger, orchestratorOpts...)

	b.Log.WithFields(logrus.Fields{
		"symbols":    strings.Join(b.cfg.Symbols, ","),
		"risk_level": b.cfg.RiskLevel,
		"balance":    b.cfg.AccountBalance,
		"continuous": b.cfg.RunContinuous,
	}).Info("Bot initialized")
	return nil
}

// Start runs continuously when RUN_CONTINUOUS is set, otherwise a single cycle
// followed by the performance summary. forceSingle always runs one cycle.
func (b *Bot) Start(forceSingle bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := b.init(); err != nil {
		b.Log.WithError(err).Error("Failed to initialize bot")
		return err
	}

	if forceSingle || !b.cfg.RunContinuous {
		b.orchestrator.RunCycle(ctx, b.cfg.Symbols)
		return b.printSummary()
	}

	if GetConfig().ServeHTTP {
		go func() {
			if err := server.StartServer(ctx, "", b.router()); err != nil {
				b.Log.WithError(err).Error("HTTP server stopped")
			}
		}()
	}

	if err := b.orchestrator.StartLoop(ctx); err != nil {
		b.Log.WithError(err).Error("Trading loop failed")
		return err
	}
	b.Log.Info("Trading bot stopped by user")
	return b.printSummary()
}

// Serve exposes the HTTP surface without trading.
func (b *Bot) Serve() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := b.init(); err != nil {
		b.Log.WithError(err).Error("Failed to initialize bot")
		return err
	}
	return server.StartServer(ctx, "", b.router())
}

func (b *Bot) router() http.Handler {
	return server.NewRouter(server.Deps{
		Ledger:      b.ledger,
		Trades:      b.trades,
		TradeCounts: b.tradeCounts,
		Exceptions:  b.exceptions,
		Gatherer:    b.registry,
	})
}

func (b *Bot) printSummary() error {
	enc := json.NewEncoder(b.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(b.ledger.Summary())
}
