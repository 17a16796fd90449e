// Package metrics はgatewayのPrometheusメトリクスを提供する。
//
// 受信したHTTPリクエストと教育サーバーへの呼び出しをそれぞれ計測し、
// /metrics で公開する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "havirkesht_gateway"
	// unmatchedRoute はどのルートにも一致しなかったリクエストのラベル値。
	unmatchedRoute = "unmatched"
)

// Metrics はgatewayが公開するコレクタ一式を保持する。
type Metrics struct {
	// registry はコレクタを登録する独自のレジストリ。
	registry *prometheus.Registry

	// httpInFlight は処理中のリクエスト数。
	httpInFlight prometheus.Gauge
	// httpRequests はメソッド、ルート、ステータスごとのリクエスト数。
	httpRequests *prometheus.CounterVec
	// httpDuration はメソッド、ルートごとの処理時間。
	httpDuration *prometheus.HistogramVec
	// upstreamRequests は教育サーバーへの呼び出し数。
	upstreamRequests *prometheus.CounterVec
	// upstreamDuration は教育サーバーへの呼び出しの所要時間。
	upstreamDuration *prometheus.HistogramVec
}

// New は独自のレジストリにコレクタを登録したMetricsを生成する。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "route"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the teacher server.",
		}, []string{"method", "endpoint", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests sent to the teacher server.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "endpoint"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.upstreamRequests,
		m.upstreamDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler は登録済みメトリクスを公開するHTTPハンドラーを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware はリクエスト数と処理時間を記録するGinミドルウェアを返す。
// ラベルにはパスではなくルートのパターンを使う。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveUpstream は教育サーバーへの呼び出し1回分を記録する。
// 応答が得られなかった場合のstatusは0で、ラベルは "error" になる。
func (m *Metrics) ObserveUpstream(method, endpoint string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamRequests.WithLabelValues(method, endpoint, label).Inc()
	m.upstreamDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
