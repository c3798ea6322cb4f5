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
// サービス層およびHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordProvisionSuccess()
	RecordProvisionFailure()
	RecordItemWrite()
	RecordCommentWrite()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	provisionSuccess prometheus.Counter
	provisionFail    prometheus.Counter
	itemWrites       prometheus.Counter
	commentWrites    prometheus.Counter
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		provisionSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantbase_provision_success_total",
			Help: "テナントスキーマのプロビジョニング成功の合計数",
		}),
		provisionFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantbase_provision_fail_total",
			Help: "テナントスキーマのプロビジョニング失敗の合計数",
		}),
		itemWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantbase_item_writes_total",
			Help: "アイテムの作成・更新の合計数",
		}),
		commentWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantbase_comment_writes_total",
			Help: "コメント投稿の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantbase_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tenantbase_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.provisionSuccess,
		c.provisionFail,
		c.itemWrites,
		c.commentWrites,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordProvisionSuccess はプロビジョニング成功を記録する。
func (c *Collector) RecordProvisionSuccess() {
	c.provisionSuccess.Inc()
}

// RecordProvisionFailure はプロビジョニング失敗を記録する。
func (c *Collector) RecordProvisionFailure() {
	c.provisionFail.Inc()
}

// RecordItemWrite はアイテムの作成・更新を記録する。
func (c *Collector) RecordItemWrite() {
	c.itemWrites.Inc()
}

// RecordCommentWrite はコメント投稿を記録する。
func (c *Collector) RecordCommentWrite() {
	c.commentWrites.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
