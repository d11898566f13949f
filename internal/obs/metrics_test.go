package obs

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dipbot/internal/adapter/enum"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOrderPlaced("BTCUSDT", enum.LegEntry, enum.OrderKindLimit)
	m.ObserveOrderCanceled("BTCUSDT")
	m.ObserveGatewayError("BTCUSDT", "place")
	m.ObserveReplan("BTCUSDT", enum.LegDipBuy1)
	m.ObservePoll("BTCUSDT", time.Millisecond)
	m.ObserveFilledVolume("BTCUSDT", 1)
	m.SessionStarted()
	m.SessionClosed("BTCUSDT", enum.OutcomeTakeProfitHit)
	assert.Nil(t, m.Registry())
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveOrderPlaced("BTCUSDT", enum.LegTakeProfit, enum.OrderKindLimit)
	m.ObserveOrderPlaced("BTCUSDT", enum.LegTakeProfit, enum.OrderKindLimit)
	m.ObserveReplan("BTCUSDT", enum.LegDipBuy2)
	m.SessionStarted()
	m.SessionClosed("BTCUSDT", enum.OutcomeStopLossHit)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("BTCUSDT", "take-profit", "LIMIT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replans.WithLabelValues("BTCUSDT", "dip-buy-2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("BTCUSDT", "stop-loss-hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveOrderCanceled("ETHUSDT")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `dipbot_orders_canceled_total{symbol="ETHUSDT"} 1`))
}
