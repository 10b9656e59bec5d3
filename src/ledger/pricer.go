package ledger

import (
	"github.com/shopspring/decimal"

	"phaseexecutor/src/model"
)

// FillPricer supplies execution prices. In production this is the broker fill.
type FillPricer interface {
	EntryPrice(intent model.OrderIntent) float64
	ExitPrice(pos model.Position) float64
}

// SimulatedPricer fills every entry at a fixed price and every exit at
// entry * CloseMarkup. Illustrative bookkeeping only.
type SimulatedPricer struct {
	Entry       float64
	CloseMarkup float64
}

func DefaultSimulatedPricer() SimulatedPricer {
	return SimulatedPricer{Entry: 50000, CloseMarkup: 1.02}
}

func (p SimulatedPricer) EntryPrice(_ model.OrderIntent) float64 {
	return p.Entry
}

func (p SimulatedPricer) ExitPrice(pos model.Position) float64 {
	markup := p.CloseMarkup
	if markup <= 0 {
		markup = 1
	}
	return decimal.NewFromFloat(pos.EntryPrice).Mul(decimal.NewFromFloat(markup)).InexactFloat64()
}
