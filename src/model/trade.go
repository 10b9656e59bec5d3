package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TradeActionOpen  = "open"
	TradeActionClose = "close"
)

// Trade is one lifecycle transition of a Position. Trades are append-only.
type Trade struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PositionID uuid.UUID `gorm:"type:uuid;index" json:"position_id"`
	Symbol     string    `gorm:"size:50;index" json:"symbol"`
	Action     string    `gorm:"size:10;not null" json:"action"` // open, close
	Side       string    `gorm:"size:10;not null" json:"side"`   // long, short
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	Reason     string    `gorm:"size:100" json:"reason,omitempty"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
	CreatedAt  time.Time `json:"-"`
}

// TableName allows you to control the exact table name for trades.
func (Trade) TableName() string {
	return "trades"
}
