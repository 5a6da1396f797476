// Package chain provides the only concrete agentcore.ChainClient this repo
// ships: a generic HTTP submitter against a configurable swap-execution
// endpoint. It never interprets a Plan's route plan or ties itself to a
// named venue — it posts the opaque bytes it was given and reports back
// whatever signature/fill the endpoint returns.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

// HTTPChainClient posts a Plan's route plan to {baseURL}/submit and parses
// back a signature and observed output amount.
type HTTPChainClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPChainClient builds a chain client against baseURL with the given
// per-request timeout.
func NewHTTPChainClient(baseURL string, timeout time.Duration) *HTTPChainClient {
	return &HTTPChainClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type submitRequest struct {
	InputMint           string `json:"inputMint"`
	OutputMint          string `json:"outputMint"`
	InputAmount         uint64 `json:"inputAmount"`
	MinOutputAmount     uint64 `json:"minOutputAmount"`
	MaxSlippageBps      uint16 `json:"maxSlippageBps"`
	PriorityFeeLamports uint64 `json:"priorityFeeLamports"`
	RoutePlan           []byte `json:"routePlan"`
}

type submitResponse struct {
	Signature   string `json:"signature"`
	ObservedOut uint64 `json:"observedOut"`
	Error       string `json:"error"`
}

// Submit implements agentcore.ChainClient.
func (c *HTTPChainClient) Submit(ctx context.Context, plan agentcore.Plan) (agentcore.ChainSubmitResult, error) {
	reqBody, err := json.Marshal(submitRequest{
		InputMint:           plan.InputMint.String(),
		OutputMint:          plan.OutputMint.String(),
		InputAmount:         plan.InputAmount,
		MinOutputAmount:     plan.MinOutputAmount,
		MaxSlippageBps:      plan.MaxSlippageBps,
		PriorityFeeLamports: plan.PriorityFeeLamports,
		RoutePlan:           plan.RoutePlan,
	})
	if err != nil {
		return agentcore.ChainSubmitResult{}, fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(reqBody))
	if err != nil {
		return agentcore.ChainSubmitResult{}, agentcore.NewChainError("chain.Submit", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return agentcore.ChainSubmitResult{}, agentcore.NewChainError("chain.Submit", err)
	}
	defer resp.Body.Close()

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return agentcore.ChainSubmitResult{}, agentcore.NewChainError("chain.Submit", fmt.Errorf("parse submit response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return agentcore.ChainSubmitResult{}, agentcore.NewChainError("chain.Submit", fmt.Errorf("%s", msg))
	}

	return agentcore.ChainSubmitResult{
		Signature:   parsed.Signature,
		ObservedOut: parsed.ObservedOut,
	}, nil
}
