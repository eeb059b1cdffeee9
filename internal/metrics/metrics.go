package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)

	// Download authorization metrics
	DownloadsAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_allowed_total",
			Help: "Authorized downloads by applied quality tier",
		},
		[]string{"tier"},
	)
	DownloadsDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_denied_total",
			Help: "Denied download authorizations by reason",
		},
		[]string{"reason"},
	)

	// Payment callback metrics
	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment gateway callbacks by outcome",
		},
		[]string{"outcome"},
	)

	// Rate limiter metrics
	LimiterRecordsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_records_swept_total",
			Help: "Expired rate limit records removed by the sweeper",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)

	prometheus.MustRegister(DownloadsAllowed)
	prometheus.MustRegister(DownloadsDenied)

	prometheus.MustRegister(CallbacksTotal)
	prometheus.MustRegister(LimiterRecordsSwept)

	prometheus.MustRegister(prometheus.NewGoCollector())
	prometheus.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
