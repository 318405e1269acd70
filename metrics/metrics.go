// Package metrics provides Prometheus metrics for the rebalancing bot
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 按市场维度的指标收集器，独立 registry 便于测试。
type Metrics struct {
	registry *prometheus.Registry

	// 周期指标
	CyclesTotal   *prometheus.CounterVec
	CyclesSkipped *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec

	// 行情/库存指标
	OracleRate     *prometheus.GaugeVec
	InventoryRatio *prometheus.GaugeVec
	BaseBalance    *prometheus.GaugeVec
	QuoteBalance   *prometheus.GaugeVec

	// 批次指标
	OffersCancelled *prometheus.CounterVec
	OrdersPlaced    *prometheus.CounterVec
}

// New 创建新的Metrics实例。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexmaker",
			Name:      "cycles_total",
			Help:      "Rebalance cycles by market and result",
		}, []string{"market", "result"}),
		CyclesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexmaker",
			Name:      "cycles_skipped_total",
			Help:      "Ticks skipped because the previous cycle was still running",
		}, []string{"market"}),
		CycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dexmaker",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one rebalance cycle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"market"}),
		OracleRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dexmaker",
			Name:      "oracle_rate",
			Help:      "Last oracle rate used to center the ladder",
		}, []string{"market"}),
		InventoryRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dexmaker",
			Name:      "inventory_ratio",
			Help:      "Fraction of combined inventory held as quote asset",
		}, []string{"market"}),
		BaseBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dexmaker",
			Name:      "base_balance",
			Help:      "Usable base asset balance at last cycle",
		}, []string{"market"}),
		QuoteBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dexmaker",
			Name:      "quote_balance",
			Help:      "Usable quote asset balance at last cycle",
		}, []string{"market"}),
		OffersCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexmaker",
			Name:      "offers_cancelled_total",
			Help:      "Resting offers cancelled",
		}, []string{"market"}),
		OrdersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexmaker",
			Name:      "orders_placed_total",
			Help:      "New ladder orders submitted",
		}, []string{"market"}),
	}
	return m
}

// Handler 暴露 /metrics 端点处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string, m *Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
