package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audiocast",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"method", "path"})

	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiocast",
		Name:      "active_streams",
		Help:      "Number of stream deliveries currently in flight.",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "cache_hits_total",
		Help:      "Total content cache hits.",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "cache_misses_total",
		Help:      "Total content cache misses.",
	})

	CacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "cache_evictions_total",
		Help:      "Total cache entries removed by TTL or size sweeps.",
	})

	CacheErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "cache_errors_total",
		Help:      "Total non-fatal cache disk failures.",
	})

	CacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiocast",
		Name:      "cache_size_bytes",
		Help:      "Current total size of the content cache in bytes.",
	})

	ResolveAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "resolve_attempts_total",
		Help:      "Origin provider resolve attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	ResolveExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "resolve_exhausted_total",
		Help:      "Total resolutions that exhausted every origin provider.",
	})

	TranscodeJobs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "transcode_jobs_total",
		Help:      "Total encoder invocations started.",
	})

	TranscodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "transcode_failures_total",
		Help:      "Total encoder invocations that exited with an error.",
	})

	TranscodeBypass = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "transcode_bypass_total",
		Help:      "Total transcodes skipped because the source already matched the target container.",
	})

	TranscodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "audiocast",
		Name:      "transcode_duration_seconds",
		Help:      "Duration of encoder invocations in seconds.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	ProxySessions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "proxy_sessions_total",
		Help:      "Total upstream range-proxy sessions started.",
	})

	ProxyFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "proxy_fallbacks_total",
		Help:      "Total proxy sessions that failed before headers and fell back to the local fetch path.",
	})

	MirrorRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocast",
		Name:      "mirror_refreshes_total",
		Help:      "Mirror health-feed refreshes by provider and outcome.",
	}, []string{"provider", "outcome"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveStreams,
		CacheHits,
		CacheMisses,
		CacheEvictions,
		CacheErrors,
		CacheSizeBytes,
		ResolveAttempts,
		ResolveExhausted,
		TranscodeJobs,
		TranscodeFailures,
		TranscodeBypass,
		TranscodeDuration,
		ProxySessions,
		ProxyFallbacks,
		MirrorRefreshes,
	)
}
