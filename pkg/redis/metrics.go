package redis

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

var (
	redisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_requests_total",
			Help: "Total number of Redis requests by method.",
		},
		[]string{"method"},
	)
	redisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis errors by method.",
		},
		[]string{"method"},
	)
	redisRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_request_duration_seconds",
			Help:    "Redis request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(redisRequestsTotal, redisErrorsTotal, redisRequestDuration)
}

// MetricsClient instruments the typed helpers with request, error and
// latency metrics. The profile cache goes through it so cache pressure
// shows up on dashboards.
type MetricsClient struct {
	next *Client
}

// NewMetricsClient wraps a Client with instrumentation.
func NewMetricsClient(next *Client) *MetricsClient {
	return &MetricsClient{next: next}
}

func (m *MetricsClient) Get(ctx context.Context, key string) (string, error) {
	defer observe("get", time.Now())
	result, err := m.next.Get(ctx, key)
	count("get", err)
	return result, err
}

func (m *MetricsClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	defer observe("set", time.Now())
	err := m.next.Set(ctx, key, value, ttl)
	count("set", err)
	return err
}

func (m *MetricsClient) Delete(ctx context.Context, key string) error {
	defer observe("delete", time.Now())
	err := m.next.Delete(ctx, key)
	count("delete", err)
	return err
}

// TxPipeline forwards to the underlying client uninstrumented.
func (m *MetricsClient) TxPipeline() goredis.Pipeliner {
	return m.next.TxPipeline()
}

func (m *MetricsClient) Close() error {
	return m.next.Close()
}

func observe(method string, start time.Time) {
	redisRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func count(method string, err error) {
	redisRequestsTotal.WithLabelValues(method).Inc()
	if err != nil {
		redisErrorsTotal.WithLabelValues(method).Inc()
	}
}
