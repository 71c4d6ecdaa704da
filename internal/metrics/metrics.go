// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 各パッケージは必要なメソッドのみを持つ小さなインターフェースとして受け取る。
type MetricsCollector interface {
	RecordSave(result string)
	RecordDelete(result string)
	RecordGateRejection()
	SetDBConnected(connected bool)
	RecordHTTPStatus(statusCode int)
	ObserveSearch(result string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	saves          *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	gateRejections prometheus.Counter
	dbConnected    prometheus.Gauge
	httpStatus     *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nytreact_saves_total",
			Help: "記事保存リクエストの結果別の合計数",
		}, []string{"result"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nytreact_deletes_total",
			Help: "記事削除リクエストの結果別の合計数",
		}, []string{"result"}),
		gateRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nytreact_gate_rejections_total",
			Help: "DB未接続により503で拒否したリクエストの合計数",
		}),
		dbConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nytreact_db_connected",
			Help: "DB接続状態（1: 接続中, 0: 未接続）",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nytreact_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nytreact_search_latency_seconds",
			Help:    "記事検索APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.saves,
		c.deletes,
		c.gateRejections,
		c.dbConnected,
		c.httpStatus,
		c.searchLatency,
	)

	return c
}

// RecordSave は記事保存の結果を記録する。
func (c *Collector) RecordSave(result string) {
	c.saves.WithLabelValues(result).Inc()
}

// RecordDelete は記事削除の結果を記録する。
func (c *Collector) RecordDelete(result string) {
	c.deletes.WithLabelValues(result).Inc()
}

// RecordGateRejection は可用性ゲートによる拒否を記録する。
func (c *Collector) RecordGateRejection() {
	c.gateRejections.Inc()
}

// SetDBConnected はDB接続状態を記録する。
func (c *Collector) SetDBConnected(connected bool) {
	if connected {
		c.dbConnected.Set(1)
		return
	}
	c.dbConnected.Set(0)
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveSearch は記事検索の結果とレイテンシを記録する。
func (c *Collector) ObserveSearch(result string, duration time.Duration) {
	c.searchLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
