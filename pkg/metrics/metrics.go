package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	// Registry holds the application collectors served on /metrics.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	referralsTracked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referrals",
			Name:      "tracked_total",
			Help:      "Referrals created in pending state.",
		},
		[]string{"source"},
	)

	referralsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referrals",
			Name:      "completed_total",
			Help:      "Referrals moved from pending to completed.",
		},
	)

	referralsPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referrals",
			Name:      "paid_total",
			Help:      "Referrals moved from completed to paid.",
		},
	)

	commissionEarned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referrals",
			Name:      "commission_earned_total",
			Help:      "Sum of commission credited at completion, in currency units.",
		},
	)

	recomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "recomputes_total",
			Help:      "Stats recomputations by result.",
		},
		[]string{"result"},
	)

	recomputeQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "recompute_queue_depth",
			Help:      "Referrers waiting for a recompute retry.",
		},
	)

	referralEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Referral analytics events recorded.",
		},
		[]string{"type"},
	)

	couponValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coupons",
			Name:      "validations_total",
			Help:      "Checkout code validations by resolved source.",
		},
		[]string{"source", "valid"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Payment webhook deliveries by type and outcome.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		referralsTracked,
		referralsCompleted,
		referralsPaid,
		commissionEarned,
		recomputes,
		recomputeQueueDepth,
		referralEvents,
		couponValidations,
		webhookEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func IncInFlight() { httpInFlight.Inc() }
func DecInFlight() { httpInFlight.Dec() }

// ObserveHTTPRequest records one handled request. path must be the route
// template, not the raw URL, to keep label cardinality bounded.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordReferralTracked(source string) {
	referralsTracked.WithLabelValues(source).Inc()
}

func RecordReferralCompleted(commission float64) {
	referralsCompleted.Inc()
	if commission > 0 {
		commissionEarned.Add(commission)
	}
}

func RecordReferralPaid() {
	referralsPaid.Inc()
}

func RecordRecompute(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	recomputes.WithLabelValues(result).Inc()
}

func SetRecomputeQueueDepth(depth int64) {
	recomputeQueueDepth.Set(float64(depth))
}

func RecordReferralEvent(eventType string) {
	referralEvents.WithLabelValues(eventType).Inc()
}

func RecordCouponValidation(source string, valid bool) {
	couponValidations.WithLabelValues(source, strconv.FormatBool(valid)).Inc()
}

func RecordWebhookEvent(eventType, result string) {
	webhookEvents.WithLabelValues(eventType, result).Inc()
}
