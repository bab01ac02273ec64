package metrics_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alejandrodnm/drawbot/internal/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	rec.BetPlaced()
	rec.BetPlaced()
	rec.BetSettled(true)
	rec.BetSettled(false)
	rec.BetSettled(false)
	rec.BetSkipped("duplicate")
	rec.FeedMessageDropped()
	rec.Bankroll(101.5)

	expected := `
# HELP drawbot_bets_settled_total apuestas liquidadas por resultado
# TYPE drawbot_bets_settled_total counter
drawbot_bets_settled_total{result="lost"} 2
drawbot_bets_settled_total{result="won"} 1
# HELP drawbot_bankroll bankroll liquidado
# TYPE drawbot_bankroll gauge
drawbot_bankroll 101.5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"drawbot_bets_settled_total", "drawbot_bankroll"))

	count, err := testutil.GatherAndCount(reg, "drawbot_bets_placed_total", "drawbot_bets_skipped_total", "drawbot_feed_messages_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRecorder_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	_, err = metrics.NewRecorder(reg)
	assert.Error(t, err)
}

func TestRouter_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	rec.BetPlaced()

	status := func() metrics.Status {
		return metrics.Status{
			Mode:      "live",
			Bankroll:  decimal.RequireFromString("101"),
			Available: decimal.RequireFromString("99"),
			Reserved:  decimal.RequireFromString("2"),
			TotalBets: 1,
			Pending:   1,

			Unresolved: []string{"4512"},
		}
	}
	srv := httptest.NewServer(metrics.NewRouter(reg, status))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "drawbot_bets_placed_total 1")

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "live", got["mode"])
	assert.Equal(t, "101", got["bankroll"])
	assert.Equal(t, "2", got["reserved"])
	assert.Equal(t, float64(1), got["pending"])
	assert.Equal(t, []any{"4512"}, got["unresolved"])
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := httptest.NewServer(metrics.NewRouter(prometheus.NewRegistry(), func() metrics.Status { return metrics.Status{} }))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
