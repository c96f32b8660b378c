package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 上游邮箱指标
	UpstreamCallsTotal   *prometheus.CounterVec
	UpstreamCallDuration *prometheus.HistogramVec

	// 缓存指标
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// 业务指标
	AliasesRegistered prometheus.Counter
	MessagesServed    prometheus.Counter
	OTPExtracted      prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 系统指标
	SystemUptime prometheus.Gauge
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliasmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aliasmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		UpstreamCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliasmail_upstream_calls_total",
				Help: "Total number of upstream mailbox API calls",
			},
			[]string{"operation", "status"},
		),

		UpstreamCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aliasmail_upstream_call_duration_seconds",
				Help:    "Upstream mailbox API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliasmail_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"kind"},
		),

		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliasmail_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"kind"},
		),

		AliasesRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aliasmail_aliases_registered_total",
				Help: "Total number of alias registrations",
			},
		),

		MessagesServed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aliasmail_messages_served_total",
				Help: "Total number of messages served to clients",
			},
		),

		OTPExtracted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aliasmail_otp_extracted_total",
				Help: "Total number of messages with an extracted verification code",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aliasmail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aliasmail_panics_total",
				Help: "Total number of panics",
			},
		),

		SystemUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "aliasmail_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordUpstreamCall 记录上游邮箱调用
func (m *Metrics) RecordUpstreamCall(operation, status string, duration time.Duration) {
	m.UpstreamCallsTotal.WithLabelValues(operation, status).Inc()
	m.UpstreamCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit 记录缓存命中
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMisses.WithLabelValues(kind).Inc()
}

// RecordAliasRegistered 记录别名注册
func (m *Metrics) RecordAliasRegistered() {
	m.AliasesRegistered.Inc()
}

// RecordMessageServed 记录下发的邮件
func (m *Metrics) RecordMessageServed() {
	m.MessagesServed.Inc()
}

// RecordOTPExtracted 记录成功提取的验证码
func (m *Metrics) RecordOTPExtracted() {
	m.OTPExtracted.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// UpdateSystemUptime 更新系统运行时间
func (m *Metrics) UpdateSystemUptime(uptime time.Duration) {
	m.SystemUptime.Set(uptime.Seconds())
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
