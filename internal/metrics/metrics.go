// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// ミドルウェア、ディスパッチャー、ワーカーから利用する。
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordResourceOperation(resource, action, outcome string)
	RecordAccessDenied(resource, action, role string)
	RecordAuthFailure(reason string)
	RecordRateLimited(limit string)
	RecordEventsCompleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	resourceOps     *prometheus.CounterVec
	accessDenied    *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	eventsCompleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventhub_http_requests_total",
			Help: "ルート・メソッド・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventhub_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		resourceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventhub_resource_operations_total",
			Help: "リソース・操作・結果別のCRUD操作数",
		}, []string{"resource", "action", "outcome"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventhub_access_denied_total",
			Help: "アクセスポリシーで拒否された操作数",
		}, []string{"resource", "action", "role"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventhub_auth_failures_total",
			Help: "理由別の認証失敗数",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventhub_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		}, []string{"limit"}),
		eventsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventhub_events_completed_total",
			Help: "ワーカーが完了状態に更新したイベント数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.resourceOps,
		c.accessDenied,
		c.authFailures,
		c.rateLimited,
		c.eventsCompleted,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはパスパラメータを含まないルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordResourceOperation(resource, action, outcome string) {
	c.resourceOps.WithLabelValues(resource, action, outcome).Inc()
}

func (c *Collector) RecordAccessDenied(resource, action, role string) {
	c.accessDenied.WithLabelValues(resource, action, role).Inc()
}

func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRateLimited(limit string) {
	c.rateLimited.WithLabelValues(limit).Inc()
}

func (c *Collector) RecordEventsCompleted(count int64) {
	c.eventsCompleted.Add(float64(count))
}

// Nop は何も記録しないRecorder。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordResourceOperation(string, string, string)      {}
func (Nop) RecordAccessDenied(string, string, string)           {}
func (Nop) RecordAuthFailure(string)                            {}
func (Nop) RecordRateLimited(string)                            {}
func (Nop) RecordEventsCompleted(int64)                         {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsのみを提供する専用サーバー向けハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
