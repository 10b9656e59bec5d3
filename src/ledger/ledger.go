package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"phaseexecutor/src/model"
)

var (
	ErrPositionNotFound = errors.New("position is not open")
	ErrPositionExists   = errors.New("an opposite position is already open for symbol")
	ErrInvalidIntent    = errors.New("invalid order intent")
)

// TradeJournal receives every trade after it has been recorded in memory.
type TradeJournal interface {
	Record(ctx context.Context, trade *model.Trade) error
}

// Ledger owns the open positions and the append-only trade history.
// At most one position per symbol is open at any time.
type Ledger struct {
	mu      sync.RWMutex
	balance decimal.Decimal
	open    []model.Position
	history []model.Trade

	pricer  FillPricer
	journal TradeJournal
	logger  *logrus.Entry
	now     func() time.Time
}

type Option func(*Ledger)

func WithPricer(p FillPricer) Option {
	return func(l *Ledger) { l.pricer = p }
}

func WithJournal(j TradeJournal) Option {
	return func(l *Ledger) { l.journal = j }
}

func WithLogger(logger *logrus.Entry) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(accountBalance float64, opts ...Option) *Ledger {
	l := &Ledger{
		balance: decimal.NewFromFloat(accountBalance),
		pricer:  DefaultSimulatedPricer(),
		logger:  logrus.NewEntry(logrus.StandardLogger()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) AccountBalance() float64 {
	return l.balance.InexactFloat64()
}

// OpenPosition records an entry fill for intent. A same-side entry on a symbol that
// already has an open position scales into it; an opposite-side entry is rejected.
func (l *Ledger) OpenPosition(ctx context.Context, intent model.OrderIntent, risk model.RiskManagement) (model.Position, error) {
	pos, _, err := l.openPosition(ctx, intent, risk)
	return pos, err
}

func (l *Ledger) openPosition(ctx context.Context, intent model.OrderIntent, risk model.RiskManagement) (model.Position, model.Trade, error) {
	if intent.Kind != model.IntentOpen || intent.Symbol == "" || intent.Amount <= 0 {
		return model.Position{}, model.Trade{}, fmt.Errorf("%w: kind=%q symbol=%q amount=%f", ErrInvalidIntent, intent.Kind, intent.Symbol, intent.Amount)
	}

	side := model.PositionSideShort
	if intent.Side == model.OrderSideBuy {
		side = model.PositionSideLong
	}
	price := l.pricer.EntryPrice(intent)
	now := l.now()
	amount := decimal.NewFromFloat(intent.Amount)
	value := l.balance.Mul(amount)

	l.mu.Lock()
	idx := l.indexOfSymbol(intent.Symbol)

	var pos model.Position
	if idx >= 0 {
		current := l.open[idx]
		if current.Side != side {
			l.mu.Unlock()
			return model.Position{}, model.Trade{}, fmt.Errorf("%w: %s holds %s, intent wants %s", ErrPositionExists, intent.Symbol, current.Side, side)
		}
		pos = scaleIn(current, amount, value, price)
	} else {
		pos = model.Position{
			ID:         uuid.New(),
			Symbol:     intent.Symbol,
			Side:       side,
			Amount:     intent.Amount,
			Value:      value.InexactFloat64(),
			EntryPrice: price,
			Status:     model.PositionStatusOpen,
			OpenedAt:   now,
		}
	}
	pos.StopLoss = risk.StopLoss.Price
	pos.TakeProfitLevels = append([]float64(nil), risk.TakeProfit.Levels...)

	trade := model.Trade{
		ID:         uuid.New(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Action:     model.TradeActionOpen,
		Side:       side,
		Amount:     intent.Amount,
		Price:      price,
		Timestamp:  now,
	}

	if idx >= 0 {
		l.open[idx] = pos
	} else {
		l.open = append(l.open, pos)
	}
	l.history = append(l.history, trade)
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"symbol":     pos.Symbol,
		"side":       side,
		"order_type": intent.OrderType,
		"amount":     intent.Amount,
		"value":      value.StringFixed(2),
		"stop_loss":  pos.StopLoss,
	}).Info("Order placed")

	l.record(ctx, trade)
	return clonePosition(pos), trade, nil
}

// ClosePosition removes pos (matched by ID) from the open set and records the exit.
func (l *Ledger) ClosePosition(ctx context.Context, pos model.Position, reason string) (model.Trade, error) {
	l.mu.Lock()
	idx := l.indexOfID(pos.ID)
	if idx < 0 {
		l.mu.Unlock()
		return model.Trade{}, fmt.Errorf("%w: %s %s", ErrPositionNotFound, pos.Symbol, pos.ID)
	}

	current := l.open[idx]
	trade := model.Trade{
		ID:         uuid.New(),
		PositionID: current.ID,
		Symbol:     current.Symbol,
		Action:     model.TradeActionClose,
		Side:       current.Side,
		Amount:     current.Amount,
		Price:      l.pricer.ExitPrice(current),
		Reason:     reason,
		Timestamp:  l.now(),
	}

	l.open = append(l.open[:idx:idx], l.open[idx+1:]...)
	l.history = append(l.history, trade)
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"symbol": trade.Symbol,
		"side":   trade.Side,
		"amount": trade.Amount,
		"price":  trade.Price,
		"reason": reason,
	}).Info("Position closed")

	l.record(ctx, trade)
	return trade, nil
}

// GetOpenPosition returns the open position for symbol, if any.
func (l *Ledger) GetOpenPosition(symbol string) (model.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.indexOfSymbol(symbol)
	if idx < 0 {
		return model.Position{}, false
	}
	return clonePosition(l.open[idx]), true
}

func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.open)
}

// Apply executes intents in order and returns the trades recorded. It stops at the
// first intent that fails; trades recorded before the failure are kept. Open
// intents with a zero amount size nothing and are skipped.
func (l *Ledger) Apply(ctx context.Context, intents []model.OrderIntent, risk model.RiskManagement) ([]model.Trade, error) {
	trades := make([]model.Trade, 0, len(intents))
	for i, intent := range intents {
		switch intent.Kind {
		case model.IntentClose:
			if intent.Position == nil {
				return trades, fmt.Errorf("intent %d: %w: close without position", i, ErrInvalidIntent)
			}
			trade, err := l.ClosePosition(ctx, *intent.Position, intent.Reason)
			if err != nil {
				return trades, fmt.Errorf("intent %d: %w", i, err)
			}
			trades = append(trades, trade)
		case model.IntentOpen:
			if intent.Amount == 0 {
				l.logger.WithFields(logrus.Fields{
					"symbol":     intent.Symbol,
					"order_type": intent.OrderType,
				}).Info("Zero-size order skipped")
				continue
			}
			_, trade, err := l.openPosition(ctx, intent, risk)
			if err != nil {
				return trades, fmt.Errorf("intent %d: %w", i, err)
			}
			trades = append(trades, trade)
		default:
			return trades, fmt.Errorf("intent %d: %w: kind %q", i, ErrInvalidIntent, intent.Kind)
		}
	}
	return trades, nil
}

func (l *Ledger) record(ctx context.Context, trade model.Trade) {
	if l.journal == nil {
		return
	}
	if err := l.journal.Record(ctx, &trade); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"symbol": trade.Symbol,
			"action": trade.Action,
		}).Error("Failed to journal trade")
	}
}

func (l *Ledger) indexOfSymbol(symbol string) int {
	for i := range l.open {
		if l.open[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

func (l *Ledger) indexOfID(id uuid.UUID) int {
	for i := range l.open {
		if l.open[i].ID == id {
			return i
		}
	}
	return -1
}

func scaleIn(pos model.Position, amount, value decimal.Decimal, price float64) model.Position {
	oldAmount := decimal.NewFromFloat(pos.Amount)
	total := oldAmount.Add(amount)
	if total.IsPositive() {
		weighted := decimal.NewFromFloat(pos.EntryPrice).Mul(oldAmount).
			Add(decimal.NewFromFloat(price).Mul(amount)).
			Div(total)
		pos.EntryPrice = weighted.InexactFloat64()
	}
	pos.Amount = total.InexactFloat64()
	pos.Value = decimal.NewFromFloat(pos.Value).Add(value).InexactFloat64()
	return pos
}

func clonePosition(p model.Position) model.Position {
	p.TakeProfitLevels = append([]float64(nil), p.TakeProfitLevels...)
	return p
}
