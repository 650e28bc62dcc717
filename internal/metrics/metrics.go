// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// メッセージ取得経路のラベル値
const (
	PathFull  = "full"
	PathDelta = "delta"
)

// セッション解決結果のラベル値
const (
	ResolveHit   = "hit"
	ResolveMiss  = "miss"
	ResolveError = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordDeltaQuery(path string, returned int)
	RecordSessionResolve(outcome string)
	RecordSessionResolveRetry()
	RecordMessageSent()
	RecordSessionsReaped(count int64)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	deltaQueries   *prometheus.CounterVec
	deltaReturned  prometheus.Counter
	sessionResolve *prometheus.CounterVec
	resolveRetries prometheus.Counter
	messagesSent   prometheus.Counter
	sessionsReaped prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deltaQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_delta_queries_total",
			Help: "メッセージ取得リクエスト数（full: 初回全件, delta: 差分）",
		}, []string{"path"}),
		deltaReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatline_delta_messages_returned_total",
			Help: "メッセージ取得で返したメッセージの合計数",
		}),
		sessionResolve: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_session_resolve_total",
			Help: "セッション解決の結果別件数",
		}, []string{"outcome"}),
		resolveRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatline_session_resolve_retries_total",
			Help: "セッション解決のリトライ回数",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatline_messages_sent_total",
			Help: "送信されたメッセージの合計数",
		}),
		sessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatline_sessions_reaped_total",
			Help: "クリーンアップで削除された期限切れセッション数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatline_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.deltaQueries,
		c.deltaReturned,
		c.sessionResolve,
		c.resolveRetries,
		c.messagesSent,
		c.sessionsReaped,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordDeltaQuery はメッセージ取得の経路と返却件数を記録する。
func (c *Collector) RecordDeltaQuery(path string, returned int) {
	c.deltaQueries.WithLabelValues(path).Inc()
	c.deltaReturned.Add(float64(returned))
}

// RecordSessionResolve はセッション解決の結果を記録する。
func (c *Collector) RecordSessionResolve(outcome string) {
	c.sessionResolve.WithLabelValues(outcome).Inc()
}

// RecordSessionResolveRetry はセッション解決のリトライを記録する。
func (c *Collector) RecordSessionResolveRetry() {
	c.resolveRetries.Inc()
}

// RecordMessageSent はメッセージ送信を記録する。
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

// RecordSessionsReaped は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsReaped(count int64) {
	c.sessionsReaped.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordDeltaQuery(string, int)       {}
func (Nop) RecordSessionResolve(string)        {}
func (Nop) RecordSessionResolveRetry()         {}
func (Nop) RecordMessageSent()                 {}
func (Nop) RecordSessionsReaped(int64)         {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}

// OrNop はmがnilの場合にNopを返す。
func OrNop(m MetricsCollector) MetricsCollector {
	if m == nil {
		return Nop{}
	}
	return m
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
