package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the finboard service
var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPResponseSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finboard_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	InboundRateLimitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_inbound_rate_limit_total",
			Help: "Inbound API requests by rate limit decision",
		},
		[]string{"result"}, // allowed/blocked
	)

	// External providers
	ExternalAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_external_api_requests_total",
			Help: "Total number of provider API requests",
		},
		[]string{"provider", "endpoint", "status_code"},
	)

	ExternalAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finboard_external_api_request_duration_seconds",
			Help:    "Provider API request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"provider", "endpoint"},
	)

	ExternalAPIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_external_api_retries_total",
			Help: "Total number of provider API retry attempts",
		},
		[]string{"provider", "endpoint", "attempt"},
	)

	ExternalAPIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_external_api_errors_total",
			Help: "Classified provider failures",
		},
		[]string{"provider", "kind"},
	)

	ProviderRateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_provider_rate_limit_rejections_total",
			Help: "Calls rejected by the local provider rate limiter",
		},
		[]string{"provider"},
	)

	ProviderCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_provider_cache_total",
			Help: "Provider response cache lookups",
		},
		[]string{"provider", "result"}, // hit/miss
	)

	// Data service
	DataRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_data_requests_total",
			Help: "DataService requests by source and outcome",
		},
		[]string{"source", "result"}, // hit/fetched/error
	)

	FallbackActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_fallback_activations_total",
			Help: "Times a secondary provider was used after the primary failed",
		},
		[]string{"category", "from", "to"},
	)

	// Widgets
	WidgetRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_widget_refreshes_total",
			Help: "Widget refresh outcomes",
		},
		[]string{"trigger", "result"}, // initial/auto/manual/retry ; success/error/stale
	)

	WidgetsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finboard_widgets",
			Help: "Widgets on the dashboard by status",
		},
		[]string{"status"},
	)

	ScheduledTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finboard_scheduled_tasks",
			Help: "Pending staggered refresh tasks",
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finboard_stream_clients",
			Help: "Connected websocket clients",
		},
	)

	// Layout store
	LayoutOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finboard_layout_operations_total",
			Help: "Layout persistence operations",
		},
		[]string{"operation", "result"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finboard_application_info",
			Help: "Application information",
		},
		[]string{"version", "go_version"},
	)
)

func RecordHTTPRequest(method, path string, statusCode int, duration float64, responseSize int64) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	if responseSize > 0 {
		HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

func RecordInboundRateLimit(allowed bool) {
	result := "blocked"
	if allowed {
		result = "allowed"
	}
	InboundRateLimitTotal.WithLabelValues(result).Inc()
}

// RecordExternalAPICall records one provider round trip. statusCode is 0 for transport failures.
func RecordExternalAPICall(provider, endpoint string, statusCode int, duration float64) {
	ExternalAPIRequestsTotal.WithLabelValues(provider, endpoint, strconv.Itoa(statusCode)).Inc()
	ExternalAPIRequestDuration.WithLabelValues(provider, endpoint).Observe(duration)
}

func RecordExternalAPIRetry(provider, endpoint string, attempt int) {
	ExternalAPIRetries.WithLabelValues(provider, endpoint, strconv.Itoa(attempt)).Inc()
}

func RecordExternalAPIError(provider, kind string) {
	ExternalAPIErrors.WithLabelValues(provider, kind).Inc()
}

func RecordProviderRateLimitRejection(provider string) {
	ProviderRateLimitRejections.WithLabelValues(provider).Inc()
}

func RecordProviderCache(provider string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ProviderCacheTotal.WithLabelValues(provider, result).Inc()
}

func RecordDataRequest(source, result string) {
	DataRequestsTotal.WithLabelValues(source, result).Inc()
}

func RecordFallbackActivation(category, from, to string) {
	FallbackActivationsTotal.WithLabelValues(category, from, to).Inc()
}

func RecordWidgetRefresh(trigger, result string) {
	WidgetRefreshesTotal.WithLabelValues(trigger, result).Inc()
}

// UpdateWidgetStatusCounts replaces the per-status widget gauges
func UpdateWidgetStatusCounts(counts map[string]int) {
	for _, status := range []string{"idle", "loading", "ready", "errored"} {
		WidgetsGauge.WithLabelValues(status).Set(float64(counts[status]))
	}
}

func SetScheduledTasks(n int) {
	ScheduledTasks.Set(float64(n))
}

func SetStreamClients(n int) {
	StreamClients.Set(float64(n))
}

func RecordLayoutOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	LayoutOperationsTotal.WithLabelValues(operation, result).Inc()
}

func SetApplicationInfo(version, goVersion string) {
	ApplicationInfo.WithLabelValues(version, goVersion).Set(1)
}
