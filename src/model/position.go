package model

import (
	"time"

	"github.com/google/uuid"
)

// Position is a single open exposure to a symbol. The ledger keeps at most one
// open Position per symbol and drops it from the live set on close.
type Position struct {
	ID               uuid.UUID `json:"id"`
	Symbol           string    `json:"symbol"`
	Side             string    `json:"side"`
	Amount           float64   `json:"amount"`
	Value            float64   `json:"value"`
	EntryPrice       float64   `json:"entry_price"`
	StopLoss         float64   `json:"stop_loss"`
	TakeProfitLevels []float64 `json:"take_profit_levels"`
	Status           string    `json:"status"`
	OpenedAt         time.Time `json:"opened_at"`
}

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

const (
	PositionSideLong  = "long"
	PositionSideShort = "short"
)
