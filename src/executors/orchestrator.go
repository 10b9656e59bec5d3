package executors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"phaseexecutor/src/connectors"
	"phaseexecutor/src/ledger"
	"phaseexecutor/src/model"
	"phaseexecutor/src/strategy"
)

// ErrValidationRejected is returned for a symbol whose candidate strategy the
// validation service did not accept.
var ErrValidationRejected = errors.New("strategy rejected by validation")

// Outcome is the terminal state of one symbol within a cycle.
type Outcome string

const (
	OutcomeSignalUnavailable       Outcome = "signal_unavailable"
	OutcomeLowConfidence           Outcome = "low_confidence"
	OutcomeInstructionsUnavailable Outcome = "instructions_unavailable"
	OutcomeValidationRejected      Outcome = "validation_rejected"
	OutcomeMaxPositions            Outcome = "max_positions"
	OutcomeExecuted                Outcome = "executed"
	OutcomeExecutionFailed         Outcome = "execution_failed"
)

// SignalSource is the external signal service.
type SignalSource interface {
	FetchSignal(ctx context.Context, symbol, timeframe, riskLevel string) (*model.Signal, error)
	FetchBotInstructions(ctx context.Context, symbol, timeframe, riskLevel, botType string) (*model.ExecutionInstructions, error)
	ValidateStrategy(ctx context.Context, req connectors.ValidationRequest) (*connectors.ValidationResult, error)
}

// Recorder receives cycle metrics.
type Recorder interface {
	RecordCycle()
	RecordOutcome(symbol, outcome string)
	RecordIntent(phase, kind string)
	SetOpenPositions(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCycle()                 {}
func (nopRecorder) RecordOutcome(string, string) {}
func (nopRecorder) RecordIntent(string, string)  {}
func (nopRecorder) SetOpenPositions(int)         {}

type SymbolResult struct {
	Symbol  string        `json:"symbol"`
	Outcome Outcome       `json:"outcome"`
	Phase   string        `json:"phase,omitempty"`
	Trades  []model.Trade `json:"trades,omitempty"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
}

type CycleReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []SymbolResult `json:"results"`
}

// Count returns how many symbols ended with outcome.
func (r CycleReport) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Orchestrator runs trading cycles: for each symbol it walks the gates from
// signal to execution and applies the selected intents to the ledger.
type Orchestrator struct {
	cfg        Config
	source     SignalSource
	ledger     *ledger.Ledger
	metrics    Recorder
	exceptions ExceptionStore
	limiter    *rate.Limiter
	log        *logger.Entry
}

type Option func(*Orchestrator)

func WithMetrics(r Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

func WithExceptionStore(s ExceptionStore) Option {
	return func(o *Orchestrator) { o.exceptions = s }
}

func WithLogger(entry *logger.Entry) Option {
	return func(o *Orchestrator) { o.log = entry }
}

func NewOrchestrator(cfg Config, source SignalSource, l *ledger.Ledger, opts ...Option) *Orchestrator {
	limit := rate.Inf
	if cfg.SymbolPause > 0 {
		limit = rate.Every(cfg.SymbolPause)
	}

	o := &Orchestrator{
		cfg:     cfg,
		source:  source,
		ledger:  l,
		metrics: nopRecorder{},
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.WithField("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunCycle analyses every symbol once. A failing symbol never stops the cycle;
// only cancellation of ctx does. StartLoop passes a context that cannot be
// cancelled so an interrupt lands between cycles.
func (o *Orchestrator) RunCycle(ctx context.Context, symbols []string) CycleReport {
	report := CycleReport{StartedAt: time.Now()}
	o.log.WithField("symbols", len(symbols)).Info("Starting trading cycle")
	o.logPortfolio()

	for _, symbol := range symbols {
		if err := o.limiter.Wait(ctx); err != nil {
			o.log.WithError(err).Warn("Cycle interrupted")
			break
		}

		res := o.analyzeSafely(ctx, symbol)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
		o.metrics.RecordOutcome(symbol, string(res.Outcome))
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = time.Now()
	o.metrics.RecordCycle()
	o.metrics.SetOpenPositions(o.ledger.OpenCount())
	o.logPortfolio()
	o.log.WithFields(logger.Fields{
		"executed": report.Count(OutcomeExecuted),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Trading cycle completed")
	return report
}

func (o *Orchestrator) analyzeSafely(ctx context.Context, symbol string) (res SymbolResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic analysing %s: %v", symbol, r)
			Capture(ctx, o.exceptions, "AnalyzeSymbol", symbol, "fatal", err, nil)
			res = SymbolResult{Symbol: symbol, Outcome: OutcomeExecutionFailed, Err: err}
		}
	}()
	return o.AnalyzeSymbol(ctx, symbol)
}

// AnalyzeSymbol runs the gates for one symbol and stops at the first one that
// fails.
func (o *Orchestrator) AnalyzeSymbol(ctx context.Context, symbol string) SymbolResult {
	log := o.log.WithField("symbol", symbol)
	res := SymbolResult{Symbol: symbol}

	signal, err := o.source.FetchSignal(ctx, symbol, o.cfg.Timeframe, o.cfg.RiskLevel)
	if err != nil || signal == nil {
		log.WithError(err).Warn("No signal available")
		res.Outcome, res.Err = OutcomeSignalUnavailable, err
		return res
	}
	res.Phase = string(signal.Phase())

	log = log.WithFields(logger.Fields{
		"phase":      signal.MarketPhase,
		"confidence": signal.Confidence,
		"action":     signal.Action,
	})
	if signal.Confidence < o.cfg.ConfidenceThreshold {
		log.WithField("threshold", o.cfg.ConfidenceThreshold).Info("Confidence below threshold, skipping")
		res.Outcome = OutcomeLowConfidence
		return res
	}

	instructions, err := o.source.FetchBotInstructions(ctx, symbol, o.cfg.Timeframe, o.cfg.RiskLevel, o.cfg.BotType)
	if err != nil || instructions == nil {
		log.WithError(err).Warn("No bot instructions available")
		res.Outcome, res.Err = OutcomeInstructionsUnavailable, err
		return res
	}

	verdict, err := o.source.ValidateStrategy(ctx, connectors.ValidationRequest{
		Signal:            *signal,
		RiskParams:        o.cfg.RiskParams(),
		AccountBalance:    o.cfg.AccountBalance,
		ExistingPositions: o.ledger.Snapshot().OpenPositions,
	})
	if err != nil || verdict == nil || !verdict.Valid {
		var diagnostics []string
		if verdict != nil {
			diagnostics = verdict.Diagnostics
		}
		res.Outcome = OutcomeValidationRejected
		res.Err = fmt.Errorf("%w: %s", ErrValidationRejected, strings.Join(diagnostics, "; "))
		log.WithField("diagnostics", diagnostics).Warn("Strategy validation failed")
		return res
	}

	if open := o.ledger.OpenCount(); open >= o.cfg.MaxPositions {
		log.WithField("max_positions", o.cfg.MaxPositions).Info("Maximum positions reached")
		res.Outcome = OutcomeMaxPositions
		return res
	}

	phase := instructions.SignalSummary.Phase()
	if instructions.SignalSummary.MarketPhase == "" {
		phase = signal.Phase()
	}
	res.Phase = string(phase)

	req := strategy.Request{
		Symbol:             symbol,
		Phase:              phase,
		PositionManagement: instructions.ExecutionInstructions.PositionManagement,
	}
	if existing, ok := o.ledger.GetOpenPosition(symbol); ok {
		req.Existing = &existing
	}

	intents, err := strategy.SelectStrategy(req)
	if err != nil {
		Capture(ctx, o.exceptions, "SelectStrategy", symbol, "error", err, map[string]interface{}{"phase": phase})
		res.Outcome, res.Err = OutcomeExecutionFailed, err
		return res
	}

	trades, err := o.ledger.Apply(ctx, intents, instructions.ExecutionInstructions.RiskManagement)
	res.Trades = trades
	for _, t := range trades {
		o.metrics.RecordIntent(string(phase), t.Action)
	}
	if err != nil {
		Capture(ctx, o.exceptions, "Apply", symbol, "error", err, map[string]interface{}{
			"phase":   phase,
			"intents": len(intents),
			"applied": len(trades),
		})
		res.Outcome, res.Err = OutcomeExecutionFailed, err
		return res
	}

	log.WithField("trades", len(trades)).Info("Strategy executed")
	res.Outcome = OutcomeExecuted
	return res
}

// StartLoop runs cycles every CycleInterval until ctx is cancelled. The first
// cycle starts immediately. Cancellation is only observed between cycles: a
// cycle in progress finishes every symbol, with each call bounded by the client
// timeout.
func (o *Orchestrator) StartLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.CycleInterval)
	defer ticker.Stop()

	cycleCtx := context.WithoutCancel(ctx)
	o.log.WithField("interval", o.cfg.CycleInterval.String()).Info("Starting continuous trading")
	for {
		o.RunCycle(cycleCtx, o.cfg.Symbols)

		if ctx.Err() != nil {
			o.log.Info("loop stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			o.log.Info("loop stopped")
			return nil
		case <-ticker.C:
			o.log.Debug("loop tick")
		}
	}
}

func (o *Orchestrator) logPortfolio() {
	snap := o.ledger.Snapshot()
	fields := logger.Fields{
		"open_positions": len(snap.OpenPositions),
		"total_trades":   len(snap.TradeHistory),
		"total_value":    snap.TotalValue,
	}
	o.log.WithFields(fields).Info("Portfolio status")
	for _, pos := range snap.OpenPositions {
		o.log.WithFields(logger.Fields{
			"symbol": pos.Symbol,
			"side":   pos.Side,
			"amount": pos.Amount,
			"value":  pos.Value,
		}).Debug("Open position")
	}
}
