package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

const systemPrompt = `You are a cryptocurrency trading analyst. Assess the ` +
	`given market data and position context, and respond with structured ` +
	`JSON only.`

// HTTPClient calls an OpenAI-shaped chat-completions endpoint and parses a
// schema-constrained JSON response out of the assistant's message content.
type HTTPClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	endpoint   string
	apiKey     string
	model      string
}

// NewHTTPClient builds an advisor client. breaker may be nil to disable
// circuit-breaking (tests); limiter may be nil to disable rate limiting.
func NewHTTPClient(endpoint, apiKey, model string, timeout time.Duration, breaker *gobreaker.CircuitBreaker, limiter *rate.Limiter) *HTTPClient {
	if model == "" {
		model = "gpt-4-turbo-preview"
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		limiter:    limiter,
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float32        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// adviceBody is the structured JSON payload the prompt asks the model to
// return inside the chat completion's message content.
type adviceBody struct {
	Recommendation struct {
		Action Action `json:"action"`
	} `json:"recommendation"`
	Reasoning string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	RiskAssessment struct {
		RiskScore       float64  `json:"risk_score"`
		MaxLossEstimate float64  `json:"max_loss_estimate"`
		PositionRiskPct float64  `json:"position_risk_pct"`
		Factors         []string `json:"market_risk_factors"`
	} `json:"risk_assessment"`
	SuggestedParameters map[string]float64 `json:"suggested_parameters"`
}

// Advise issues one synchronous HTTP request and parses the model's
// response. On any failure it returns a non-nil error and a zero Guidance;
// callers must treat that as "proceed without advisor input", never retry.
func (c *HTTPClient) Advise(ctx context.Context, req Request) (Guidance, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Guidance{}, agentcore.NewUpstreamError("advisor.Advise", err)
		}
	}

	call := func() (Guidance, error) {
		return c.call(ctx, req)
	}

	if c.breaker == nil {
		return call()
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		return Guidance{}, agentcore.NewUpstreamError("advisor.Advise", err)
	}
	return result.(Guidance), nil
}

func (c *HTTPClient) call(ctx context.Context, req Request) (Guidance, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		MaxTokens:      1000,
		Temperature:    0.3,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", fmt.Errorf("HTTP %d: %s", resp.StatusCode, text))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", fmt.Errorf("decode chat response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", fmt.Errorf("no choices in chat response"))
	}

	var advice adviceBody
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &advice); err != nil {
		return Guidance{}, agentcore.NewUpstreamError("advisor.call", fmt.Errorf("parse advice body: %w", err))
	}

	return Guidance{
		Action:     advice.Recommendation.Action,
		Confidence: clamp01(advice.Confidence),
		Reasoning:  advice.Reasoning,
		Risk: RiskAssessment{
			RiskScore:       clamp01(advice.RiskAssessment.RiskScore),
			MaxLossEstimate: advice.RiskAssessment.MaxLossEstimate,
			PositionRiskPct: advice.RiskAssessment.PositionRiskPct,
			Factors:         advice.RiskAssessment.Factors,
		},
		Suggestions: advice.SuggestedParameters,
	}, nil
}

func buildUserPrompt(req Request) string {
	return fmt.Sprintf(`Analyze the following trading scenario and respond with JSON only:

QUOTE:
%s

POSITIONS:
%s

STRATEGY:
%s

QUESTION:
%s

Respond in this JSON shape:
{
  "recommendation": {"action": "Buy|Sell|Hold|Rebalance|StopLoss"},
  "confidence": <0-1>,
  "reasoning": "<reasoning>",
  "risk_assessment": {
    "risk_score": <0-1>,
    "max_loss_estimate": <number>,
    "position_risk_pct": <number>,
    "market_risk_factors": ["..."]
  },
  "suggested_parameters": {"param_name": <number>}
}`, req.QuoteSummary, req.PositionsSummary, req.StrategySummary, req.Question)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
