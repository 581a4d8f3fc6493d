// Package metrics exposes Prometheus counters and gauges for a running
// backtest: fills, fees, and realized PnL, labeled by symbol and, for
// fills, liquidity side (maker/taker).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	fillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btengine_fills_total",
			Help: "Fills emitted by the simulated broker.",
		},
		[]string{"symbol", "liquidity"}, // liquidity: maker|taker
	)

	fillQtyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btengine_fill_quantity_total",
			Help: "Cumulative base quantity filled.",
		},
		[]string{"symbol", "liquidity"},
	)

	feesPaidTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btengine_fees_paid_usdt_total",
			Help: "Cumulative fees paid in USDT.",
		},
		[]string{"symbol"},
	)

	realizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "btengine_realized_pnl_usdt",
			Help: "Cumulative realized PnL in USDT, account-wide.",
		},
		[]string{"symbol"},
	)

	openPositionQty = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "btengine_open_position_qty",
			Help: "Current open position quantity, signed (+long/-short).",
		},
		[]string{"symbol"},
	)

	openOrdersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "btengine_open_maker_orders",
			Help: "Number of maker orders currently resting in the broker.",
		},
	)
)

func init() {
	prometheus.MustRegister(fillsTotal, fillQtyTotal, feesPaidTotal)
	prometheus.MustRegister(realizedPnL, openPositionQty, openOrdersGauge)
}

// RecordFill updates the fill counters for one executed Fill.
func RecordFill(symbol, liquidity string, quantity, feeUSDT float64) {
	fillsTotal.WithLabelValues(symbol, liquidity).Inc()
	fillQtyTotal.WithLabelValues(symbol, liquidity).Add(quantity)
	feesPaidTotal.WithLabelValues(symbol).Add(feeUSDT)
}

// SetRealizedPnL publishes the current account-wide realized PnL, attributed
// to symbol for dashboards that break PnL down per instrument.
func SetRealizedPnL(symbol string, pnlUSDT float64) {
	realizedPnL.WithLabelValues(symbol).Set(pnlUSDT)
}

// SetOpenPositionQty publishes a symbol's current signed position size.
func SetOpenPositionQty(symbol string, qty float64) {
	openPositionQty.WithLabelValues(symbol).Set(qty)
}

// SetOpenMakerOrders publishes how many maker orders are currently resting.
func SetOpenMakerOrders(n int) {
	openOrdersGauge.Set(float64(n))
}
