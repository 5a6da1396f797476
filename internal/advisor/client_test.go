package advisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

func TestHTTPClient_ParsesWellFormedAdvice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": ` +
			`"{\"recommendation\":{\"action\":\"Buy\"},\"confidence\":0.8,` +
			`\"reasoning\":\"strong spread\",\"risk_assessment\":{` +
			`\"risk_score\":0.2,\"max_loss_estimate\":100,` +
			`\"position_risk_pct\":5,\"market_risk_factors\":[\"slippage\"]},` +
			`\"suggested_parameters\":{\"max_slippage_bps\":60}}"` +
			`}}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "", time.Second, nil, nil)
	guidance, err := client.Advise(context.Background(), Request{Question: "should I trade?"})
	require.NoError(t, err)

	assert.Equal(t, ActionBuy, guidance.Action)
	assert.Equal(t, 0.8, guidance.Confidence)
	assert.Equal(t, "strong spread", guidance.Reasoning)
	assert.Equal(t, 0.2, guidance.Risk.RiskScore)
	assert.Equal(t, []string{"slippage"}, guidance.Risk.Factors)
	assert.Equal(t, 60.0, guidance.Suggestions["max_slippage_bps"])
}

func TestHTTPClient_NonOKStatusIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "key", "", time.Second, nil, nil)
	_, err := client.Advise(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, agentcore.Is(err, agentcore.KindUpstream))
}

func TestHTTPClient_MalformedAdviceBodyIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": "not json"}}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "key", "", time.Second, nil, nil)
	_, err := client.Advise(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, agentcore.Is(err, agentcore.KindUpstream))
}

func TestHTTPClient_NoChoicesIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "key", "", time.Second, nil, nil)
	_, err := client.Advise(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, agentcore.Is(err, agentcore.KindUpstream))
}

func TestHTTPClient_ConfidenceAndRiskScoreAreClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": ` +
			`"{\"recommendation\":{\"action\":\"Hold\"},\"confidence\":1.5,` +
			`\"risk_assessment\":{\"risk_score\":-0.3}}"}}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "key", "", time.Second, nil, nil)
	guidance, err := client.Advise(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, guidance.Confidence)
	assert.Equal(t, 0.0, guidance.Risk.RiskScore)
}
