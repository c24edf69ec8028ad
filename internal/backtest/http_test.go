package backtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"alphatrade/internal/market"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	tf, _ := market.ParseTimeframe("1h")

	candleStore, err := market.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { candleStore.Close() })

	svc, err := market.NewService(market.ServiceConfig{
		Store:           candleStore,
		Sources:         map[string]market.CandleSource{"grid": &gridSource{step: tf.StepMillis()}},
		RateLimitPerMin: 60000,
	})
	require.NoError(t, err)

	srv, err := NewHTTPServer(HTTPConfig{Market: svc})
	require.NoError(t, err)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFetchEndpointValidation(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/data/fetch", strings.NewReader(`{"symbol":"BTCUSDT"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchEndpointAccepts(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/data/fetch",
		strings.NewReader(`{"symbol":"BTCUSDT","timeframe":"1h","start_ts":3600000,"end_ts":7200000}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, gjson.Get(w.Body.String(), "job.id").String())
}

func TestQuotePreview(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"risk_aversion": 0.1,
		"volatility": 0.02,
		"arrival_rate": 1.5,
		"reservation_spread": 0.5,
		"mid_price": 50000,
		"inventory": 2,
		"max_inventory": 10,
		"base_quantity": 1
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/quote/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	resp := w.Body.String()
	bid := gjson.Get(resp, "bid").Float()
	ask := gjson.Get(resp, "ask").Float()
	assert.Greater(t, ask, bid)
	// 正库存时报价中点应低于 mid
	assert.Less(t, (bid+ask)/2, 50000.0)
	assert.False(t, gjson.Get(resp, "inventory.is_at_limit").Bool())
}

func TestQuotePreviewRejectsBadParams(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/quote/preview",
		strings.NewReader(`{"risk_aversion": -1, "volatility": 0.02, "arrival_rate": 1, "reservation_spread": 0.5, "mid_price": 100, "max_inventory": 10, "base_quantity": 1}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunEndpointsWithoutSimulator(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/backtest/runs", nil)
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
