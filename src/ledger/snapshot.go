package ledger

import (
	"github.com/shopspring/decimal"

	"phaseexecutor/src/model"
)

// Snapshot is a read-only copy of the ledger state.
type Snapshot struct {
	OpenPositions []model.Position `json:"open_positions"`
	TradeHistory  []model.Trade    `json:"trade_history"`
	TotalValue    float64          `json:"total_value"`
}

// Summary mirrors the performance summary printed after a single cycle.
type Summary struct {
	TotalTrades    int          `json:"total_trades"`
	OpenTrades     int          `json:"open_trades"`
	ClosedTrades   int          `json:"closed_trades"`
	SymbolsTraded  int          `json:"symbols_traded"`
	AccountBalance float64      `json:"account_balance"`
	OpenPositions  int          `json:"open_positions"`
	LastTrade      *model.Trade `json:"last_trade,omitempty"`
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positions := make([]model.Position, len(l.open))
	total := decimal.Zero
	for i, p := range l.open {
		positions[i] = clonePosition(p)
		total = total.Add(decimal.NewFromFloat(p.Value))
	}

	history := make([]model.Trade, len(l.history))
	copy(history, l.history)

	return Snapshot{
		OpenPositions: positions,
		TradeHistory:  history,
		TotalValue:    total.InexactFloat64(),
	}
}

func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{
		TotalTrades:    len(l.history),
		AccountBalance: l.balance.InexactFloat64(),
		OpenPositions:  len(l.open),
	}

	symbols := make(map[string]struct{})
	for _, t := range l.history {
		symbols[t.Symbol] = struct{}{}
		switch t.Action {
		case model.TradeActionOpen:
			s.OpenTrades++
		case model.TradeActionClose:
			s.ClosedTrades++
		}
	}
	s.SymbolsTraded = len(symbols)

	if n := len(l.history); n > 0 {
		last := l.history[n-1]
		s.LastTrade = &last
	}
	return s
}
