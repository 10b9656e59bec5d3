// REST client for the market-adaptive signal service.
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"phaseexecutor/src/model"
)

const (
	defaultBaseURL         = "http://localhost:3000"
	defaultTimeout         = 30 * time.Second
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 4 * time.Second

	apiKeyHeader = "X-API-Key"

	signalPath       = "/api/v1/signal"
	instructionsPath = "/api/v1/bot-instructions"
	validatePath     = "/api/v1/validate-strategy"
)

// ErrUnavailable wraps transport failures, timeouts and non-2xx answers.
// Callers treat it as "no data for this call".
var ErrUnavailable = errors.New("signal service unavailable")

// LatencyRecorder observes the duration of each API call.
type LatencyRecorder interface {
	RecordLatency(op string, seconds float64)
}

type Client struct {
	apiKey  string
	baseURL string
	http    *resty.Client
	metrics LatencyRecorder
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryCount := cfg.RetryCount
	if retryCount < 0 {
		retryCount = 0
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader(apiKeyHeader, cfg.APIKey).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    httpClient,
	}
}

// WithMetrics attaches a latency recorder to the client.
func (c *Client) WithMetrics(m LatencyRecorder) *Client {
	c.metrics = m
	return c
}

type signalRequest struct {
	Symbol           string `json:"symbol"`
	Timeframe        string `json:"timeframe"`
	RiskLevel        string `json:"risk_level"`
	IncludeReasoning bool   `json:"include_reasoning"`
}

type instructionsRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	RiskLevel string `json:"risk_level"`
	BotType   string `json:"bot_type"`
}

// FetchSignal calls POST /api/v1/signal.
func (c *Client) FetchSignal(ctx context.Context, symbol, timeframe, riskLevel string) (*model.Signal, error) {
	raw, err := c.post(ctx, "signal", signalPath, signalRequest{
		Symbol:           symbol,
		Timeframe:        timeframe,
		RiskLevel:        riskLevel,
		IncludeReasoning: true,
	})
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Error("Error getting signal")
		return nil, err
	}

	var signal model.Signal
	if err := json.Unmarshal(raw, &signal); err != nil {
		return nil, fmt.Errorf("%w: decode signal: %v", ErrUnavailable, err)
	}
	if signal.Symbol == "" {
		signal.Symbol = symbol
		raw = withField(raw, "symbol", symbol)
	}
	signal.Raw = append(json.RawMessage(nil), raw...)
	return &signal, nil
}

// FetchBotInstructions calls POST /api/v1/bot-instructions.
func (c *Client) FetchBotInstructions(ctx context.Context, symbol, timeframe, riskLevel, botType string) (*model.ExecutionInstructions, error) {
	raw, err := c.post(ctx, "bot_instructions", instructionsPath, instructionsRequest{
		Symbol:    symbol,
		Timeframe: timeframe,
		RiskLevel: riskLevel,
		BotType:   botType,
	})
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Error("Error getting bot instructions")
		return nil, err
	}

	var instructions model.ExecutionInstructions
	if err := json.Unmarshal(raw, &instructions); err != nil {
		return nil, fmt.Errorf("%w: decode bot instructions: %v", ErrUnavailable, err)
	}
	if instructions.SignalSummary.Symbol == "" {
		instructions.SignalSummary.Symbol = symbol
	}
	return &instructions, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	c.observe(op, started)

	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %v", ErrUnavailable, path, err)
	}

	raw := resp.Body()
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: POST %s: HTTP %d: %s", ErrUnavailable, path, resp.StatusCode(), truncate(raw, 512))
	}
	return raw, nil
}

// withField sets key on a JSON object body, leaving the body untouched when it
// cannot be re-encoded.
func withField(raw []byte, key string, value any) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return raw
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return raw
	}
	obj[key] = encoded
	out, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return out
}

func (c *Client) observe(op string, started time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLatency(op, time.Since(started).Seconds())
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
