package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classboard/enrollment-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the enrollment core.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	waitlistJoins     prometheus.Counter
	waitlistRefusals  *prometheus.CounterVec
	promotionsOffered prometheus.Counter
	promotionFailures prometheus.Counter
	offerResponses    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	waitlistJoins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_joins_total",
		Help: "Waitlist entries created",
	})
	waitlistRefusals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_refusals_total",
		Help: "Waitlist admissions refused, by reason",
	}, []string{"reason"})
	promotionsOffered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_promotions_offered_total",
		Help: "Promotion offers sent to waitlisted students",
	})
	promotionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_promotion_failures_total",
		Help: "Promotion offers that failed to persist",
	})
	offerResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_offer_responses_total",
		Help: "Offer outcomes, by response",
	}, []string{"response"})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration,
		cacheHits, cacheMisses,
		waitlistJoins, waitlistRefusals, promotionsOffered, promotionFailures, offerResponses)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		dbQueryDuration:   dbQueryDuration,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		waitlistJoins:     waitlistJoins,
		waitlistRefusals:  waitlistRefusals,
		promotionsOffered: promotionsOffered,
		promotionFailures: promotionFailures,
		offerResponses:    offerResponses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveDBQuery records a database query duration.
func (s *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	s.dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordCacheOperation tracks cache hit/miss counters.
func (s *MetricsService) RecordCacheOperation(hit bool, _ time.Duration) {
	if hit {
		s.cacheHits.Inc()
		return
	}
	s.cacheMisses.Inc()
}

// RecordWaitlistJoin counts a successful waitlist insertion.
func (s *MetricsService) RecordWaitlistJoin() {
	s.waitlistJoins.Inc()
}

// RecordWaitlistRefusal counts a refused admission by reason code.
func (s *MetricsService) RecordWaitlistRefusal(reason string) {
	s.waitlistRefusals.WithLabelValues(reason).Inc()
}

// RecordPromotionOffered counts a promotion offer sent.
func (s *MetricsService) RecordPromotionOffered() {
	s.promotionsOffered.Inc()
}

// RecordPromotionFailure counts an offer that failed to persist.
func (s *MetricsService) RecordPromotionFailure() {
	s.promotionFailures.Inc()
}

// RecordOfferResponse counts an offer outcome.
func (s *MetricsService) RecordOfferResponse(resp models.WaitlistResponse) {
	s.offerResponses.WithLabelValues(string(resp)).Inc()
}
