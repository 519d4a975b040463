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
// ハンドラーやライブバインディング層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordLiveDelivery(collection string)
	RecordLiveTeardown()
	RecordSummarizerFallback()
	RecordImportResult(imported, skipped, failed int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus          *prometheus.CounterVec
	requestLatency      prometheus.Histogram
	liveDeliveries      *prometheus.CounterVec
	liveTeardowns       prometheus.Counter
	summarizerFallbacks prometheus.Counter
	importPosts         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vtblogs_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtblogs_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		liveDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vtblogs_live_deliveries_total",
			Help: "ライブバインディングが配信したスナップショットの合計数",
		}, []string{"collection"}),
		liveTeardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vtblogs_live_teardowns_total",
			Help: "破棄されたライブバインディングの合計数",
		}),
		summarizerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vtblogs_summarizer_fallback_total",
			Help: "要約サービスの失敗により要約フィールドへフォールバックした合計数",
		}),
		importPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vtblogs_import_posts_total",
			Help: "フィードインポートの結果別記事数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.liveDeliveries,
		c.liveTeardowns,
		c.summarizerFallbacks,
		c.importPosts,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordLiveDelivery はライブバインディングのスナップショット配信を記録する。
func (c *Collector) RecordLiveDelivery(collection string) {
	c.liveDeliveries.WithLabelValues(collection).Inc()
}

// RecordLiveTeardown はライブバインディングの破棄を記録する。
func (c *Collector) RecordLiveTeardown() {
	c.liveTeardowns.Inc()
}

// RecordSummarizerFallback は要約フォールバックの発生を記録する。
func (c *Collector) RecordSummarizerFallback() {
	c.summarizerFallbacks.Inc()
}

// RecordImportResult はフィードインポートの結果を記録する。
func (c *Collector) RecordImportResult(imported, skipped, failed int) {
	c.importPosts.WithLabelValues("imported").Add(float64(imported))
	c.importPosts.WithLabelValues("skipped").Add(float64(skipped))
	c.importPosts.WithLabelValues("failed").Add(float64(failed))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
