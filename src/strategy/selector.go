package strategy

import (
	"time"

	"phaseexecutor/src/model"
)

const (
	// ScaledEntrySpacing separates consecutive scaled-entry orders.
	ScaledEntrySpacing = 900 * time.Second

	DefaultConsolidationOffset = "-0.1%"

	ReasonDistributionExit = "distribution_exit"
	ReasonMarkdownExit     = "markdown_exit"

	neutralSizeFactor = 0.5
)

// Request is everything the selector needs to build intents for one symbol.
// Existing is the ledger's open position for Symbol, nil when there is none.
type Request struct {
	Symbol             string
	Phase              model.MarketPhase
	PositionManagement model.PositionManagement
	Existing           *model.Position
}

// SelectStrategy maps a market phase to its order-construction strategy and returns
// the intents to apply, in order. It has no side effects.
func SelectStrategy(req Request) ([]model.OrderIntent, error) {
	switch req.Phase {
	case model.PhaseAccumulation:
		return accumulation(req)
	case model.PhaseDistribution:
		return distribution(req), nil
	case model.PhaseMarkup:
		return markup(req), nil
	case model.PhaseMarkdown:
		return markdown(req), nil
	case model.PhaseConsolidation:
		return consolidation(req)
	default:
		return neutral(req), nil
	}
}

func accumulation(req Request) ([]model.OrderIntent, error) {
	pm := req.PositionManagement
	if pm.EntryMethod.Type != model.EntryMethodScaled {
		return nil, nil
	}

	levels := pm.Levels()
	intents := make([]model.OrderIntent, 0, len(levels))
	for i, level := range levels {
		offset, err := ParsePercent(level.PriceOffset)
		if err != nil {
			return nil, err
		}
		intents = append(intents, model.OrderIntent{
			Kind:        model.IntentOpen,
			Symbol:      req.Symbol,
			Side:        model.OrderSideBuy,
			OrderType:   model.OrderTypeLimit,
			Amount:      pm.PositionSize.Percentage * (level.Percentage / 100),
			PriceOffset: offset,
			Delay:       time.Duration(i) * ScaledEntrySpacing,
		})
	}
	return intents, nil
}

func distribution(req Request) []model.OrderIntent {
	var intents []model.OrderIntent
	if req.Existing != nil {
		intents = append(intents, closeIntent(req.Existing, ReasonDistributionExit))
	}

	size := req.PositionManagement.PositionSize.Percentage
	if size > 0 {
		intents = append(intents, openIntent(req.Symbol, model.OrderSideSell, model.OrderTypeMarket, size))
	}
	return intents
}

func markup(req Request) []model.OrderIntent {
	pm := req.PositionManagement
	if pm.EntryMethod.Type != model.EntryMethodImmediate {
		return nil
	}
	return []model.OrderIntent{
		openIntent(req.Symbol, model.OrderSideBuy, model.OrderTypeMarket, pm.PositionSize.Percentage),
	}
}

func markdown(req Request) []model.OrderIntent {
	var intents []model.OrderIntent
	if req.Existing != nil && req.Existing.Side == model.PositionSideLong {
		intents = append(intents, closeIntent(req.Existing, ReasonMarkdownExit))
	}

	size := req.PositionManagement.PositionSize.Percentage
	if size > 0 {
		intents = append(intents, openIntent(req.Symbol, model.OrderSideSell, model.OrderTypeLimit, size))
	}
	return intents
}

func consolidation(req Request) ([]model.OrderIntent, error) {
	pm := req.PositionManagement
	if pm.EntryMethod.Type != model.EntryMethodLimit {
		return nil, nil
	}

	raw := pm.EntryMethod.PriceOffset
	if raw == "" {
		raw = DefaultConsolidationOffset
	}
	offset, err := ParsePercent(raw)
	if err != nil {
		return nil, err
	}

	intent := openIntent(req.Symbol, model.OrderSideBuy, model.OrderTypeLimit, pm.PositionSize.Percentage)
	intent.PriceOffset = offset
	return []model.OrderIntent{intent}, nil
}

// neutral is the opportunistic half-size entry, also used for unknown phases.
func neutral(req Request) []model.OrderIntent {
	size := req.PositionManagement.PositionSize.Percentage
	if size <= 0 {
		return nil
	}
	return []model.OrderIntent{
		openIntent(req.Symbol, model.OrderSideBuy, model.OrderTypeLimit, size*neutralSizeFactor),
	}
}

func openIntent(symbol, side, orderType string, amount float64) model.OrderIntent {
	return model.OrderIntent{
		Kind:      model.IntentOpen,
		Symbol:    symbol,
		Side:      side,
		OrderType: orderType,
		Amount:    amount,
	}
}

func closeIntent(pos *model.Position, reason string) model.OrderIntent {
	p := *pos
	return model.OrderIntent{
		Kind:     model.IntentClose,
		Symbol:   pos.Symbol,
		Amount:   pos.Amount,
		Reason:   reason,
		Position: &p,
	}
}
