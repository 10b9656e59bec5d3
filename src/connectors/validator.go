package connectors

import (
	"context"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"phaseexecutor/src/model"
)

type RiskParams struct {
	ConfidenceThreshold int     `json:"confidence_threshold"`
	MaxPositionSize     float64 `json:"max_position_size"`
	MaxPortfolioRisk    float64 `json:"max_portfolio_risk"`
}

type ValidationRequest struct {
	Signal            model.Signal     `json:"signal"`
	RiskParams        RiskParams       `json:"risk_params"`
	AccountBalance    float64          `json:"account_balance"`
	ExistingPositions []model.Position `json:"existing_positions"`
}

// ValidationResult is the verdict of POST /api/v1/validate-strategy.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Raw         string   `json:"-"`
}

// ValidateStrategy submits a candidate signal for validation. When the call itself
// fails the result is invalid, carries the error as a diagnostic, and the error is
// returned as well.
func (c *Client) ValidateStrategy(ctx context.Context, req ValidationRequest) (*ValidationResult, error) {
	if req.ExistingPositions == nil {
		req.ExistingPositions = []model.Position{}
	}

	raw, err := c.post(ctx, "validate_strategy", validatePath, req)
	if err != nil {
		logger.WithError(err).WithField("symbol", req.Signal.Symbol).Error("Error validating strategy")
		return &ValidationResult{Valid: false, Diagnostics: []string{err.Error()}}, err
	}

	return ParseValidationResult(raw), nil
}

// ParseValidationResult reads the verdict and any diagnostic fields the service
// chose to include (error, message, reason, errors[], warnings[]).
func ParseValidationResult(raw []byte) *ValidationResult {
	body := string(raw)
	result := &ValidationResult{Raw: body}
	if !gjson.Valid(body) {
		result.Diagnostics = []string{"validation response is not valid JSON"}
		return result
	}

	parsed := gjson.Parse(body)
	result.Valid = parsed.Get("valid").Bool()

	for _, key := range []string{"error", "message", "reason"} {
		if v := strings.TrimSpace(parsed.Get(key).String()); v != "" {
			result.Diagnostics = append(result.Diagnostics, key+": "+v)
		}
	}
	for _, key := range []string{"errors", "warnings"} {
		parsed.Get(key).ForEach(func(_, value gjson.Result) bool {
			msg := value.Get("message").String()
			if msg == "" {
				msg = value.String()
			}
			if msg = strings.TrimSpace(msg); msg != "" {
				result.Diagnostics = append(result.Diagnostics, strings.TrimSuffix(key, "s")+": "+msg)
			}
			return true
		})
	}
	return result
}
