package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
)

func newTestServer() *Server {
	positions := agentcore.NewPositionStore()
	learning := agentcore.NewLearningStore(agentcore.LearningParameters{
		PriorityFeePercentile:  50,
		MaxSlippageBps:         100,
		PositionSizeMultiplier: 1,
	})
	return NewServer(Config{
		Host:      "127.0.0.1",
		Port:      0,
		Positions: positions,
		Learning:  learning,
	})
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHandleRoot_ReturnsRunningStatus(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
}

func TestHandleGetStatus_ReportsNotConfiguredDatabaseWhenStoreIsNil(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	components := body["components"].(map[string]any)
	assert.Equal(t, "not_configured", components["database"])
}

func TestHandleGetHealth_OkWhenStoreIsNil(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleListPositions_EmptyByDefault(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/api/v1/positions")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["total_value_usd"])
}

func TestHandleGetPosition_NotFoundForUnknownMint(t *testing.T) {
	s := newTestServer()
	mint := agentcore.TokenID{9}
	w := doRequest(s, http.MethodGet, "/api/v1/positions/"+mint.String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetPosition_ReturnsStoredPosition(t *testing.T) {
	s := newTestServer()
	mint := agentcore.TokenID{7}
	s.positions.Store(agentcore.PositionSnapshot{
		Positions: map[agentcore.TokenID]agentcore.Position{
			mint: {Mint: mint, Amount: 500, EntryPrice: 2, CurrentPrice: 2.5},
		},
	})

	w := doRequest(s, http.MethodGet, "/api/v1/positions/"+mint.String())
	require.Equal(t, http.StatusOK, w.Code)

	var pos agentcore.Position
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pos))
	assert.Equal(t, uint64(500), pos.Amount)
}

func TestHandleGetPosition_BadMintReturns400(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/api/v1/positions/not-a-valid-mint")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleExecutorStats_NotConfiguredWhenNil(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/api/v1/stats/executor")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["configured"])
}

func TestHandleGetLearning_ReturnsCurrentParameters(t *testing.T) {
	s := newTestServer()
	w := doRequest(s, http.MethodGet, "/api/v1/learning")
	require.Equal(t, http.StatusOK, w.Code)

	var params agentcore.LearningParameters
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, 50.0, params.PriorityFeePercentile)
}
