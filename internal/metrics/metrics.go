package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "checkin"

// Check-in outcomes used as label values.
const (
	OutcomeSuccess            = "success"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeActivationNotFound = "activation_not_found"
	OutcomeActivationInactive = "activation_inactive"
	OutcomeDuplicate          = "duplicate"
	OutcomeStorageFailure     = "storage_failure"
)

type Metrics struct {
	checkins      *prometheus.CounterVec
	pointsGranted prometheus.Counter
	qrMinted      *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Check-in submissions by outcome.",
		}, []string{"outcome", "form"}),
		pointsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_granted_total",
			Help:      "Points granted through committed check-ins.",
		}),
		qrMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qrcodes_minted_total",
			Help:      "QR codes minted by image format.",
		}, []string{"format"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.checkins, m.pointsGranted, m.qrMinted, m.httpDuration)

	return m
}

// ObserveCheckin records one submission. form is empty when decoding never succeeded.
func (m *Metrics) ObserveCheckin(outcome, form string, points int) {
	if m == nil {
		return
	}

	m.checkins.WithLabelValues(outcome, form).Inc()
	if outcome == OutcomeSuccess && points > 0 {
		m.pointsGranted.Add(float64(points))
	}
}

func (m *Metrics) ObserveMint(format string) {
	if m == nil {
		return
	}

	m.qrMinted.WithLabelValues(format).Inc()
}

func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
