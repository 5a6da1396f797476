// Package fetcher polls quote and price upstreams on a fixed interval and
// publishes fresh Quotes to the planner.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

// QuoteClient fetches a single directed-pair quote from the upstream swap
// API.
type QuoteClient interface {
	GetQuote(ctx context.Context, input, output agentcore.TokenID) (agentcore.Quote, error)
}

// PriceClient fetches the latest USD price for a set of mints in one call.
type PriceClient interface {
	GetPrices(ctx context.Context, mints []agentcore.TokenID) (map[agentcore.TokenID]float64, error)
}

// HTTPQuoteClient calls a Jupiter-shaped quote API: GET
// {baseURL}/quote?inputMint=...&outputMint=...&amount=...&slippageBps=...
type HTTPQuoteClient struct {
	httpClient *http.Client
	baseURL    string
	amount     uint64
}

// NewHTTPQuoteClient builds a quote client against baseURL with the given
// per-request timeout. amount is the fixed probe size (in the input
// token's smallest unit) used for price discovery.
func NewHTTPQuoteClient(baseURL string, timeout time.Duration, amount uint64) *HTTPQuoteClient {
	if amount == 0 {
		amount = 1_000_000
	}
	return &HTTPQuoteClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		amount:     amount,
	}
}

type quoteAPIResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SlippageBps          uint16          `json:"slippageBps"`
	PlatformFeeBps       uint16          `json:"platformFeeBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan"`
}

// GetQuote issues one HTTP GET and parses the response into a Quote,
// defaulting a missing/malformed numeric field to zero the way the
// upstream's own `unwrap_or` fallbacks do, except InAmount (falls back to the
// probe amount) and SlippageBps (falls back to 50).
func (c *HTTPQuoteClient) GetQuote(ctx context.Context, input, output agentcore.TokenID) (agentcore.Quote, error) {
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=50",
		c.baseURL, input, output, c.amount)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return agentcore.Quote{}, agentcore.NewUpstreamError("fetcher.GetQuote", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return agentcore.Quote{}, agentcore.NewUpstreamError("fetcher.GetQuote", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return agentcore.Quote{}, agentcore.NewUpstreamError("fetcher.GetQuote", fmt.Errorf("HTTP %d for %s/%s", resp.StatusCode, input, output))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return agentcore.Quote{}, agentcore.NewUpstreamError("fetcher.GetQuote", err)
	}

	var parsed quoteAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return agentcore.Quote{}, agentcore.NewUpstreamError("fetcher.GetQuote", fmt.Errorf("parse quote response: %w", err))
	}

	return agentcore.Quote{
		InputMint:            input,
		OutputMint:           output,
		InAmount:             parseUintOr(parsed.InAmount, c.amount),
		OutAmount:            parseUintOr(parsed.OutAmount, 0),
		OtherAmountThreshold: parseUintOr(parsed.OtherAmountThreshold, 0),
		SlippageBps:          orDefaultU16(parsed.SlippageBps, 50),
		PlatformFeeBps:       parsed.PlatformFeeBps,
		PriceImpactPct:       parseFloatOr(parsed.PriceImpactPct, 0.0),
		RoutePlan:            parsed.RoutePlan,
		Timestamp:            time.Now(),
	}, nil
}

func parseUintOr(s string, fallback uint64) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseFloatOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func orDefaultU16(v, fallback uint16) uint16 {
	if v == 0 {
		return fallback
	}
	return v
}

// HTTPPriceClient calls a Jupiter-shaped price API:
// GET {baseURL}?ids=mint1,mint2,...
type HTTPPriceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPPriceClient builds a price client against baseURL.
func NewHTTPPriceClient(baseURL string, timeout time.Duration) *HTTPPriceClient {
	return &HTTPPriceClient{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

type priceAPIResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// GetPrices fetches the latest USD price for each of the given mints in a
// single request.
func (c *HTTPPriceClient) GetPrices(ctx context.Context, mints []agentcore.TokenID) (map[agentcore.TokenID]float64, error) {
	if len(mints) == 0 {
		return nil, nil
	}

	ids := mints[0].String()
	for _, m := range mints[1:] {
		ids += "," + m.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?ids=%s", c.baseURL, ids), nil)
	if err != nil {
		return nil, agentcore.NewUpstreamError("fetcher.GetPrices", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, agentcore.NewUpstreamError("fetcher.GetPrices", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, agentcore.NewUpstreamError("fetcher.GetPrices", fmt.Errorf("HTTP %d fetching prices", resp.StatusCode))
	}

	var parsed priceAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, agentcore.NewUpstreamError("fetcher.GetPrices", fmt.Errorf("parse price response: %w", err))
	}

	prices := make(map[agentcore.TokenID]float64, len(mints))
	for _, mint := range mints {
		entry, ok := parsed.Data[mint.String()]
		if !ok {
			continue
		}
		prices[mint] = parseFloatOr(entry.Price, 0.0)
	}
	return prices, nil
}
