// Package metrics provides Prometheus metrics for the market mirror.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// 连接生命周期
	WSConnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_ws_connects_total",
		Help: "WebSocket 连接成功次数",
	})
	WSDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_ws_disconnects_total",
		Help: "WebSocket 断开次数",
	})
	WSReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_ws_reconnects_total",
		Help: "计划内重连次数",
	})
	WSConsecutiveErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mirror_ws_consecutive_errors",
		Help: "当前连续接收失败计数",
	})

	// 帧与解码
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_frames_received_total",
		Help: "收到的原始帧数量",
	})
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_decode_failures_total",
		Help: "无法匹配任何已知形状的帧数量",
	})

	// 引擎
	BookDeltasApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_book_deltas_applied_total",
		Help: "按 action 统计的订单簿 delta 应用次数",
	}, []string{"action"})
	TradesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_trades_ingested_total",
		Help: "进入滚动缓冲的成交数量",
	})
	BookDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mirror_book_depth_levels",
		Help: "发布快照中每侧的档位数量",
	}, []string{"side"})
	BookPublishCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_book_publish_coalesced_total",
		Help: "被合并丢弃的中间订单簿快照数量",
	})
	TradePublishDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_trade_publish_dropped_total",
		Help: "因订阅者缓冲耗尽而丢弃的成交发布数量",
	})

	// 目录
	CatalogRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_catalog_requests_total",
		Help: "instrument 目录请求次数",
	})
	CatalogErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_catalog_errors_total",
		Help: "按错误类别统计的目录请求失败次数",
	}, []string{"kind"})
)

// UpdateBookDepth 记录一次发布快照的双侧深度。
func UpdateBookDepth(bids, asks int) {
	BookDepth.WithLabelValues("bids").Set(float64(bids))
	BookDepth.WithLabelValues("asks").Set(float64(asks))
}

// StartMetricsServer 启动 Prometheus 指标服务器；addr 为空则不启动。
func StartMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
