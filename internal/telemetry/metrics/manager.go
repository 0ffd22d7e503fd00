package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests              *prometheus.CounterVec
	CounterHandleRequestPanic    prometheus.Counter
	CounterRateLimitedRequests   prometheus.Counter
	CounterPostsCreated          prometheus.Counter
	CounterPostsPublished        prometheus.Counter
	CounterPostViews             prometheus.Counter
	CounterUnsupportedBlocks     *prometheus.CounterVec
	CounterDiagramRenderFailures prometheus.Counter
	CounterAssetUploads          prometheus.Counter
	CounterRenderCacheHits       prometheus.Counter
	CounterRenderCacheMisses     prometheus.Counter

	// gauges
	GaugeRequests   prometheus.Gauge
	GaugeLifeSignal prometheus.Gauge

	// histograms
	HistDocumentRenderDuration prometheus.Histogram
	HistogramRequestDuration   *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("backend", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("backend", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterPostsCreated := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "posts_created",
		Help:      "The total number of created blog posts",
	})
	counterPostsPublished := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "posts_published",
		Help:      "The total number of blog post publish transitions",
	})
	counterPostViews := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "post_views",
		Help:      "The total number of public blog post reads",
	})
	counterUnsupportedBlocks := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "unsupported_blocks",
		Help:      "Content blocks rendered as a placeholder because their type is unknown",
	}, []string{"type"})
	counterDiagramRenderFailures := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "diagram_render_failures",
		Help:      "Diagram blocks that failed to render",
	})
	counterAssetUploads := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "asset_uploads",
		Help:      "The total number of uploaded assets",
	})
	counterRenderCacheHits := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "render_cache_hits",
		Help:      "Rendered post lookups served from cache",
	})
	counterRenderCacheMisses := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "render_cache_misses",
		Help:      "Rendered post lookups that had to render the document",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "current_requests",
		Help:        "Current number of requests served",
		ConstLabels: nil,
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "life_signal",
		Help:        "Shows whether the service is alive",
		ConstLabels: nil,
	})

	histDocumentRenderDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
			Name:      "document_render_duration_seconds",
			Help:      "Duration of rendering a single content document in seconds",
		},
	)

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})

	return &Manager{
		CounterRequests:              counterRequests,
		CounterHandleRequestPanic:    counterHandleRequestPanic,
		CounterRateLimitedRequests:   counterRateLimitedRequests,
		CounterPostsCreated:          counterPostsCreated,
		CounterPostsPublished:        counterPostsPublished,
		CounterPostViews:             counterPostViews,
		CounterUnsupportedBlocks:     counterUnsupportedBlocks,
		CounterDiagramRenderFailures: counterDiagramRenderFailures,
		CounterAssetUploads:          counterAssetUploads,
		CounterRenderCacheHits:       counterRenderCacheHits,
		CounterRenderCacheMisses:     counterRenderCacheMisses,
		GaugeRequests:                gaugeRequests,
		GaugeLifeSignal:              gaugeLifeSignal,
		HistDocumentRenderDuration:   histDocumentRenderDuration,
		HistogramRequestDuration:     histogramRequestDuration,
	}
}
