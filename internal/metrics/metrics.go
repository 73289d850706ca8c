// Package metrics exposes review pipeline and HTTP metrics in Prometheus
// format. A Recorder owns its registry so tests and multiple servers in
// one process never collide on the default registerer.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/codecoach/internal/review"
)

const namespace = "codecoach"

var durationBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80}

// Recorder implements review.Observer.
type Recorder struct {
	registry *prometheus.Registry

	categories       *prometheus.CounterVec
	categoryDuration *prometheus.HistogramVec
	categoryItems    *prometheus.CounterVec
	groupings        *prometheus.CounterVec
	groupsFound      prometheus.Counter
	groupingDuration prometheus.Histogram
	submissions      *prometheus.CounterVec
	submitDuration   prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

var _ review.Observer = (*Recorder)(nil)

// New returns a Recorder with its metrics registered. Process and Go
// runtime collectors are included.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		categories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_analyses_total",
			Help:      "Category analyses by outcome.",
		}, []string{"category", "result"}),
		categoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "category_analysis_duration_seconds",
			Help:      "Time spent on one category's analysis.",
			Buckets:   durationBuckets,
		}, []string{"category"}),
		categoryItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_items_total",
			Help:      "Feedback items pooled, by category.",
		}, []string{"category"}),
		groupings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groupings_total",
			Help:      "Similarity grouping calls by outcome.",
		}, []string{"result"}),
		groupsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_groups_total",
			Help:      "Merge groups returned by similarity grouping.",
		}),
		groupingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grouping_duration_seconds",
			Help:      "Time spent on similarity grouping.",
			Buckets:   durationBuckets,
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Review submissions by outcome.",
		}, []string{"result"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "End-to-end submission time.",
			Buckets:   durationBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		collectors.NewGoCollector(),
		r.categories, r.categoryDuration, r.categoryItems,
		r.groupings, r.groupsFound, r.groupingDuration,
		r.submissions, r.submitDuration,
		r.httpRequests, r.httpDuration,
	)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (r *Recorder) CategoryDone(o review.CategoryOutcome) {
	result := "ok"
	if !o.OK() {
		result = "error"
	}
	cat := string(o.Category)
	r.categories.WithLabelValues(cat, result).Inc()
	r.categoryDuration.WithLabelValues(cat).Observe(float64(o.DurationMs) / 1000)
	r.categoryItems.WithLabelValues(cat).Add(float64(o.Items))
}

func (r *Recorder) GroupingDone(groups int, d time.Duration, err error) {
	r.groupings.WithLabelValues(resultOf(err)).Inc()
	r.groupsFound.Add(float64(groups))
	r.groupingDuration.Observe(d.Seconds())
}

func (r *Recorder) SubmissionDone(_ *review.Report, d time.Duration, err error) {
	r.submissions.WithLabelValues(resultOf(err)).Inc()
	r.submitDuration.Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, review.ErrSuperseded):
		return "superseded"
	default:
		return "error"
	}
}
