// Package metrics exports boundary, notification and sink activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
)

const DefaultNamespace = "resilience"

// Collector implements boundary.Observer, notify.Observer and
// sink.PublishObserver.
type Collector struct {
	// ErrorsCaught counts errors intercepted by a boundary
	ErrorsCaught *prometheus.CounterVec
	// Retries counts scheduled boundary retries
	Retries *prometheus.CounterVec
	// RetryDelay tracks the backoff delay chosen per retry
	RetryDelay *prometheus.HistogramVec
	// Recoveries counts retries that rendered the child successfully
	Recoveries *prometheus.CounterVec
	// Exhausted counts boundaries that spent their retry budget
	Exhausted *prometheus.CounterVec
	// Notifications counts entries added to the notification center
	Notifications *prometheus.CounterVec
	// Dismissals counts entries removed from the notification center
	Dismissals *prometheus.CounterVec
	// PublishLatency tracks sink publish latency
	PublishLatency *prometheus.HistogramVec
	// PublishErrors counts failed sink publishes
	PublishErrors *prometheus.CounterVec
}

// NewCollector registers all metrics on reg. A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)
	return &Collector{
		ErrorsCaught: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_errors_caught_total",
			Help:      "Total number of errors caught by boundaries",
		}, []string{"boundary", "code", "severity"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_retries_total",
			Help:      "Total number of scheduled boundary retries",
		}, []string{"boundary"}),
		RetryDelay: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "boundary_retry_delay_seconds",
			Help:      "Backoff delay before a boundary retry in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"boundary"}),
		Recoveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_recoveries_total",
			Help:      "Total number of successful boundary recoveries",
		}, []string{"boundary"}),
		Exhausted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_retries_exhausted_total",
			Help:      "Total number of times a boundary ran out of retries",
		}, []string{"boundary"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notifications added",
		}, []string{"code", "severity"}),
		Dismissals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dismissed_total",
			Help:      "Total number of notifications removed",
		}, []string{"reason"}),
		PublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_publish_latency_seconds",
			Help:      "Notification sink publish latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publish_errors_total",
			Help:      "Total number of failed notification publishes",
		}, []string{"sink"}),
	}
}

func (c *Collector) ObserveCatch(boundary string, d apperr.Details) {
	c.ErrorsCaught.WithLabelValues(boundary, codeLabel(d.Code), string(d.Severity)).Inc()
}

func (c *Collector) ObserveRetry(boundary string, _ int, delay time.Duration) {
	c.Retries.WithLabelValues(boundary).Inc()
	c.RetryDelay.WithLabelValues(boundary).Observe(delay.Seconds())
}

func (c *Collector) ObserveRecovery(boundary string, _ int) {
	c.Recoveries.WithLabelValues(boundary).Inc()
}

func (c *Collector) ObserveExhausted(boundary string, _ int) {
	c.Exhausted.WithLabelValues(boundary).Inc()
}

func (c *Collector) ObserveNotification(d apperr.Details) {
	c.Notifications.WithLabelValues(codeLabel(d.Code), string(d.Severity)).Inc()
}

func (c *Collector) ObserveDismissal(reason string) {
	c.Dismissals.WithLabelValues(reason).Inc()
}

func (c *Collector) ObservePublish(sink string, d time.Duration, err error) {
	c.PublishLatency.WithLabelValues(sink).Observe(d.Seconds())
	if err != nil {
		c.PublishErrors.WithLabelValues(sink).Inc()
	}
}

func codeLabel(code string) string {
	if code == "" {
		return "none"
	}
	return code
}
