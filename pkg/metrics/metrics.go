// Package metrics holds the site's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "site_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_http_requests_total",
			Help: "Total HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	ContactSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_contact_submissions_total",
			Help: "Contact form submissions by outcome",
		},
		[]string{"result"}, // "accepted", "invalid", "rejected_origin", "rate_limited", "lost"
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_emails_total",
			Help: "Outgoing emails by kind and result",
		},
		[]string{"kind", "result"}, // kind: "admin", "auto_reply"
	)

	UploadTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "site_upload_urls_issued_total",
			Help: "Presigned attachment upload URLs issued",
		},
	)

	UploadRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_upload_rejections_total",
			Help: "Attachment upload requests rejected by origin, rate limit or policy",
		},
		[]string{"reason"},
	)

	AssetsMigrated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_assets_migrated_total",
			Help: "Cloudinary assets processed by the migration, by result",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest observes one finished request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, s).Inc()
}

// RecordEmail counts one send attempt.
func RecordEmail(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailsSent.WithLabelValues(kind, result).Inc()
}
