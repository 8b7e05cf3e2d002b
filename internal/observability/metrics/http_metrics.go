package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonUniqueViolation      = "unique_violation"
	ReasonSerializationFailure = "serialization_failure"
	ReasonLockTimeout          = "db_lock_timeout"
	ReasonNotFound             = "not_found"
	ReasonUnknown              = "unknown"
)

// HTTPMetrics holds the Prometheus collectors scraped from /metrics.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
	webhookFailures *prometheus.CounterVec
}

// NewHTTPMetrics registers request and webhook collectors on the default registry.
func NewHTTPMetrics(cfg Config) (*HTTPMetrics, error) {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) (*HTTPMetrics, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "frontdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"service": serviceName, "env": environment}

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "frontdesk_http_request_duration_seconds",
		Help:        "HTTP request latency by route.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"route", "method", "status_code"})
	webhookFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "frontdesk_webhook_failures_total",
		Help:        "Processor webhook events that could not be applied.",
		ConstLabels: constLabels,
	}, []string{"event_type", "reason"})

	var err error
	if requestDuration, err = register(registerer, requestDuration); err != nil {
		return nil, err
	}
	if webhookFailures, err = register(registerer, webhookFailures); err != nil {
		return nil, err
	}
	return &HTTPMetrics{requestDuration: requestDuration, webhookFailures: webhookFailures}, nil
}

// register tolerates a collector that is already present, which happens when
// several fx apps share the default registry in one test binary.
func register[T prometheus.Collector](registerer prometheus.Registerer, c T) (T, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// GinMiddleware observes request latency per matched route.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// RecordWebhookFailure counts a webhook event that failed to apply.
func (m *HTTPMetrics) RecordWebhookFailure(eventType string, err error) {
	if m == nil || err == nil {
		return
	}
	m.webhookFailures.WithLabelValues(strings.TrimSpace(eventType), ClassifyStoreError(err)).Inc()
}

// ClassifyStoreError maps storage errors onto a low-cardinality reason.
func ClassifyStoreError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReasonNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ReasonUniqueViolation
		case "40001":
			return ReasonSerializationFailure
		case "55P03":
			return ReasonLockTimeout
		}
	}
	return ReasonUnknown
}
