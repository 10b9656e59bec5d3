package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"phaseexecutor/src/database"
	"phaseexecutor/src/model"
)

// TradeRepository journals ledger trades.
type TradeRepository struct {
	db *gorm.DB
}

// TradeSearchOptions filters the trade journal. Zero values are ignored.
type TradeSearchOptions struct {
	Symbol *string
	Action *string
	After  *time.Time
	Before *time.Time
	Limit  int
	Offset int
}

// NewTradeRepository creates a new repository instance using the main database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Debug("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Record inserts a trade. It satisfies the ledger's journal sink.
func (r *TradeRepository) Record(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "TradeRepository",
		"op":     "Record",
		"symbol": trade.Symbol,
		"action": trade.Action,
		"side":   trade.Side,
	}).Debug("Journaling trade")

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithError(err).WithField("symbol", trade.Symbol).Error("Failed to journal trade")
		return err
	}
	return nil
}

// Search returns journaled trades, newest first.
func (r *TradeRepository) Search(ctx context.Context, opts TradeSearchOptions) ([]model.Trade, error) {
	q := r.db.WithContext(ctx).Model(&model.Trade{})

	if opts.Symbol != nil {
		q = q.Where("symbol = ?", *opts.Symbol)
	}
	if opts.Action != nil {
		q = q.Where("action = ?", *opts.Action)
	}
	if opts.After != nil {
		q = q.Where("timestamp >= ?", *opts.After)
	}
	if opts.Before != nil {
		q = q.Where("timestamp <= ?", *opts.Before)
	}

	q = q.Order("timestamp DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var trades []model.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// CountBySymbol returns the number of journaled trades per symbol.
func (r *TradeRepository) CountBySymbol(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Symbol string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Select("symbol, COUNT(*) AS total").
		Group("symbol").
		Order("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Symbol] = row.Total
	}
	return out, nil
}
