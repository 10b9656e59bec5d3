package model

import "time"

const (
	IntentOpen  = "open"
	IntentClose = "close"
)

const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// OrderIntent describes an order to place (or a position to close) that has not
// been handed to a broker yet. Amount is a fraction of the account balance.
type OrderIntent struct {
	Kind        string        `json:"kind"`
	Symbol      string        `json:"symbol"`
	Side        string        `json:"side,omitempty"`
	OrderType   string        `json:"order_type,omitempty"`
	Amount      float64       `json:"amount"`
	PriceOffset float64       `json:"price_offset"`
	Delay       time.Duration `json:"delay"`

	// Close intents only.
	Reason   string    `json:"reason,omitempty"`
	Position *Position `json:"position,omitempty"`
}
