package executors

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"phaseexecutor/src/connectors"
)

type Config struct {
	RiskLevel            string        `envconfig:"RISK_LEVEL" default:"balanced" validate:"oneof=conservative balanced aggressive"`
	AccountBalance       float64       `envconfig:"ACCOUNT_BALANCE" default:"10000" validate:"gt=0"`
	ConfidenceThreshold  int           `envconfig:"CONFIDENCE_THRESHOLD" default:"50" validate:"gte=0,lte=100"`
	MaxPositions         int           `envconfig:"MAX_POSITIONS" default:"5" validate:"gte=1"`
	MaxPositionSize      float64       `envconfig:"MAX_POSITION_SIZE" default:"0.05" validate:"gt=0,lte=1"`
	MaxPortfolioRisk     float64       `envconfig:"MAX_PORTFOLIO_RISK" default:"0.20" validate:"gt=0,lte=1"`
	CorrelationThreshold float64       `envconfig:"CORRELATION_THRESHOLD" default:"0.7" validate:"gte=0,lte=1"`
	Timeframe            string        `envconfig:"TIMEFRAME" default:"1h" validate:"required"`
	BotType              string        `envconfig:"BOT_TYPE" default:"go" validate:"required"`
	Symbols              []string      `envconfig:"SYMBOLS" default:"BTCUSDT,ETHUSDT,ADAUSDT,SOLUSDT" validate:"min=1,dive,required"`
	CycleInterval        time.Duration `envconfig:"CYCLE_INTERVAL" default:"5m" validate:"gt=0"`
	SymbolPause          time.Duration `envconfig:"SYMBOL_PAUSE" default:"2s" validate:"gte=0"`
	RunContinuous        bool          `envconfig:"RUN_CONTINUOUS" default:"false"`

	SimEntryPrice  float64 `envconfig:"SIM_ENTRY_PRICE" default:"50000" validate:"gt=0"`
	SimCloseMarkup float64 `envconfig:"SIM_CLOSE_MARKUP" default:"1.02" validate:"gt=0"`
}

var validate = validator.New()

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid bot config: %w", err))
	}
	return config
}

func (c Config) Validate() error {
	return validate.Struct(c)
}

// RiskParams is the risk envelope sent along with every validation request.
func (c Config) RiskParams() connectors.RiskParams {
	return connectors.RiskParams{
		ConfidenceThreshold: c.ConfidenceThreshold,
		MaxPositionSize:     c.MaxPositionSize,
		MaxPortfolioRisk:    c.MaxPortfolioRisk,
	}
}
