package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	searchesTotal   *prometheus.CounterVec
	parseFailures   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wanderplan_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanderplan_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanderplan_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanderplan_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanderplan_llm_tokens_total",
				Help: "Total completion-engine tokens consumed.",
			},
			[]string{"type"},
		),
		searchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanderplan_ai_searches_total",
				Help: "Total AI searches by domain and outcome.",
			},
			[]string{"domain", "status"},
		),
		parseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wanderplan_ai_parse_failures_total",
				Help: "AI responses that could not be parsed into options.",
			},
			[]string{"domain"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrSearch increments the AI search counter for a domain and outcome
// ("success", "parse_failure", "error").
func (m *Metrics) IncrSearch(dom, status string) {
	m.searchesTotal.WithLabelValues(dom, status).Inc()
}

// IncrParseFailure counts a response the extractor rejected.
func (m *Metrics) IncrParseFailure(dom string) {
	m.parseFailures.WithLabelValues(dom).Inc()
}

// GetSearchSnapshot returns a snapshot of AI-search metrics suitable
// for the GET /v1/metrics/search endpoint.
func (m *Metrics) GetSearchSnapshot() *domain.SearchMetrics {
	// Prometheus counters expose cumulative values.
	var total, failures float64
	for _, dom := range []string{domain.SearchDomainTravel, domain.SearchDomainActivity, domain.SearchDomainStay} {
		for _, status := range []string{"success", "parse_failure", "error"} {
			total += getCounterValue(m.searchesTotal, dom, status)
		}
		failures += getCounterValue(m.parseFailures, dom)
	}

	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	cacheHits := getCounterValue(m.cacheHits, "search")
	cacheMisses := getCounterValue(m.cacheMisses, "search")

	avgTokens := float64(0)
	failureRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		avgTokens = (promptTokens + completionTokens) / total
		failureRate = failures / total
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// Estimated cost: ~$1/1M prompt tokens, ~$1/1M completion tokens
	// plus a flat per-request fee (sonar pricing).
	estimatedCost := (promptTokens+completionTokens)/1_000_000 + total*0.005

	return &domain.SearchMetrics{
		TotalSearches:       int64(total),
		ParseFailures:       int64(failures),
		ParseFailureRate:    failureRate,
		AvgTokensPerRequest: avgTokens,
		EstimatedCostUsd:    estimatedCost,
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
