package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Discard reasons.
const (
	ReasonRecentlyPosted = "recently_posted"
	ReasonSimilarTitle   = "similar_title"
)

type Metrics struct {
	mu sync.RWMutex

	registry *prometheus.Registry

	cycles            prometheus.Counter
	productsScraped   *prometheus.CounterVec
	dealsFound        *prometheus.CounterVec
	discarded         *prometheus.CounterVec
	categoriesSkipped *prometheus.CounterVec
	publishes         *prometheus.CounterVec
	cycleDuration     prometheus.Histogram

	// Status
	LastRunTime     time.Time
	LastPublishTime time.Time
	LastErrorTime   time.Time
	LastError       string
	IsHealthy       bool

	// Counters mirrored for the JSON stats endpoint
	TotalCycles    int64
	TotalPublished int64
	TotalDiscarded int64
}

var Global = New()

// New creates a metrics set registered on its own registry.
func New() *Metrics {
	m := &Metrics{IsHealthy: true, registry: prometheus.NewRegistry()}
	m.cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dealbot_cycles_total",
		Help: "Selection cycles started.",
	})
	m.productsScraped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealbot_products_scraped_total",
		Help: "Products extracted from category listings.",
	}, []string{"category"})
	m.dealsFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealbot_deals_found_total",
		Help: "Extracted products that carry a discount.",
	}, []string{"category"})
	m.discarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealbot_candidates_discarded_total",
		Help: "Candidates rejected by anti-repetition rules.",
	}, []string{"reason"})
	m.categoriesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealbot_categories_skipped_total",
		Help: "Categories that contributed no candidate.",
	}, []string{"reason"})
	m.publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealbot_publishes_total",
		Help: "Publish attempts by result.",
	}, []string{"result"})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealbot_cycle_duration_seconds",
		Help:    "Wall time of a selection cycle.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	m.registry.MustRegister(
		m.cycles, m.productsScraped, m.dealsFound, m.discarded,
		m.categoriesSkipped, m.publishes, m.cycleDuration,
	)
	return m
}

// Registry exposes the prometheus registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncrementCycles() {
	m.cycles.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalCycles++
}

func (m *Metrics) AddScraped(category string, products, withDeal int) {
	m.productsScraped.WithLabelValues(category).Add(float64(products))
	m.dealsFound.WithLabelValues(category).Add(float64(withDeal))
}

func (m *Metrics) IncrementDiscarded(reason string) {
	m.discarded.WithLabelValues(reason).Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalDiscarded++
}

func (m *Metrics) IncrementCategorySkipped(reason string) {
	m.categoriesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordPublish(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	m.publishes.WithLabelValues(result).Inc()
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalPublished++
	m.LastPublishTime = time.Now()
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.cycleDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"total_cycles":      m.TotalCycles,
		"total_published":   m.TotalPublished,
		"total_discarded":   m.TotalDiscarded,
		"last_run_time":     m.LastRunTime.Format(time.RFC3339),
		"last_publish_time": m.LastPublishTime.Format(time.RFC3339),
		"last_error_time":   m.LastErrorTime.Format(time.RFC3339),
		"last_error":        m.LastError,
		"is_healthy":        m.IsHealthy,
	}
}
