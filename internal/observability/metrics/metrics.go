package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/studio-site/internal/leads"
	"github.com/wolfman30/studio-site/internal/pocketbase"
	"github.com/wolfman30/studio-site/internal/seo"
)

const namespace = "studio"

// LeadMetrics exposes counters/histograms for the lead intake flow.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	tokenRefreshes   *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead form submissions by outcome",
		}, []string{"outcome"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "upstream_requests_total",
			Help:      "Content store calls made while saving leads",
		}, []string{"operation", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of content store calls made while saving leads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pocketbase",
			Name:      "token_refresh_total",
			Help:      "Service account authentications by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.upstreamTotal, m.upstreamLatency, m.tokenRefreshes)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveUpstream(operation, result string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(operation, result).Inc()
	m.upstreamLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *LeadMetrics) ObserveTokenRefresh(result string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

// SEOMetrics counts metadata lookups and cache results.
type SEOMetrics struct {
	lookupsTotal *prometheus.CounterVec
	cacheTotal   *prometheus.CounterVec
}

func NewSEOMetrics(reg prometheus.Registerer) *SEOMetrics {
	m := &SEOMetrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seo",
			Name:      "lookups_total",
			Help:      "SEO metadata resolutions by result (found, default, error)",
		}, []string{"result"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seo",
			Name:      "cache_total",
			Help:      "SEO record cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.lookupsTotal, m.cacheTotal)
	return m
}

func (m *SEOMetrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *SEOMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

var (
	_ leads.SubmissionObserver   = (*LeadMetrics)(nil)
	_ leads.UpstreamObserver     = (*LeadMetrics)(nil)
	_ pocketbase.RefreshObserver = (*LeadMetrics)(nil)
	_ seo.LookupObserver         = (*SEOMetrics)(nil)
	_ seo.CacheObserver          = (*SEOMetrics)(nil)
)
