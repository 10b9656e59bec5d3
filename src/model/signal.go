package model

import (
	"encoding/json"
	"strings"
)

type MarketPhase string

const (
	PhaseAccumulation  MarketPhase = "ACCUMULATION"
	PhaseDistribution  MarketPhase = "DISTRIBUTION"
	PhaseMarkup        MarketPhase = "MARKUP"
	PhaseMarkdown      MarketPhase = "MARKDOWN"
	PhaseConsolidation MarketPhase = "CONSOLIDATION"
	PhaseNeutral       MarketPhase = "NEUTRAL"
)

// ParseMarketPhase normalizes a phase label coming from the analytics service.
// Unknown labels map to PhaseNeutral.
func ParseMarketPhase(raw string) MarketPhase {
	phase := MarketPhase(strings.ToUpper(strings.TrimSpace(raw)))
	switch phase {
	case PhaseAccumulation, PhaseDistribution, PhaseMarkup, PhaseMarkdown, PhaseConsolidation, PhaseNeutral:
		return phase
	default:
		return PhaseNeutral
	}
}

// Signal is the classification returned by POST /api/v1/signal.
type Signal struct {
	Symbol       string `json:"symbol"`
	Confidence   int    `json:"confidence"`
	MarketPhase  string `json:"market_phase"`
	StrategyType string `json:"strategy_type"`
	Action       string `json:"action"`

	// Raw is the response body the signal was decoded from, reasoning included.
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON emits Raw when the signal came from the service, so fields this
// type does not decode are forwarded unchanged.
func (s Signal) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	type plain Signal
	return json.Marshal(plain(s))
}

func (s Signal) Phase() MarketPhase {
	return ParseMarketPhase(s.MarketPhase)
}

const (
	EntryMethodScaled    = "scaled_entry"
	EntryMethodImmediate = "immediate_entry"
	EntryMethodLimit     = "limit_entry"
)

// ExecutionInstructions is the payload returned by POST /api/v1/bot-instructions.
type ExecutionInstructions struct {
	SignalSummary         Signal           `json:"signal_summary"`
	ExecutionInstructions ExecutionDetails `json:"execution_instructions"`
}

type ExecutionDetails struct {
	PositionManagement PositionManagement `json:"position_management"`
	RiskManagement     RiskManagement     `json:"risk_management"`
}

type PositionManagement struct {
	EntryMethod  EntryMethod  `json:"entry_method"`
	PositionSize PositionSize `json:"position_size"`
	// Older service versions send the levels here instead of inside entry_method.
	ScalingLevels []ScalingLevel `json:"scaling_levels,omitempty"`
}

// Levels returns the scaling levels, preferring the ones nested in the entry method.
func (p PositionManagement) Levels() []ScalingLevel {
	if len(p.EntryMethod.ScalingLevels) > 0 {
		return p.EntryMethod.ScalingLevels
	}
	return p.ScalingLevels
}

type EntryMethod struct {
	Type          string         `json:"type"`
	ScalingLevels []ScalingLevel `json:"scaling_levels,omitempty"`
	PriceOffset   string         `json:"price_offset,omitempty"`
}

type ScalingLevel struct {
	Percentage  float64 `json:"percentage"`
	PriceOffset string  `json:"price_offset"`
}

type PositionSize struct {
	Percentage float64 `json:"percentage"`
}

type RiskManagement struct {
	StopLoss   StopLoss   `json:"stop_loss"`
	TakeProfit TakeProfit `json:"take_profit"`
}

type StopLoss struct {
	Price float64 `json:"price"`
}

type TakeProfit struct {
	Levels []float64 `json:"levels"`
}
