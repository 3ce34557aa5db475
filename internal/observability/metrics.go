// Package observability holds Prometheus collectors and OpenTelemetry setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogicum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by key family and outcome.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result (hit, miss, error)",
	}, []string{"family", "result"})

	// ContentWrites counts successful writes of blog content.
	ContentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_content_writes_total",
		Help: "Posts and comments written, by kind and action",
	}, []string{"kind", "action"})

	// AuthEvents counts login, registration and logout outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_auth_events_total",
		Help: "Authentication events by type and result",
	}, []string{"event", "result"})

	// OwnershipDenials counts mutations refused by the ownership check.
	OwnershipDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_ownership_denials_total",
		Help: "Mutations refused because the viewer is not the owner",
	}, []string{"resource", "action"})

	// ImageProcessingDuration records how long an upload takes to normalize.
	ImageProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blogicum_image_processing_seconds",
		Help:    "Time spent decoding, cropping and encoding uploaded images",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
	})
)

const startedAtKey = "observability:started_at"

// GormMetrics is a gorm plugin that feeds DatabaseQueryLatency.
type GormMetrics struct{}

// Name implements gorm.Plugin.
func (GormMetrics) Name() string {
	return "blogicum:metrics"
}

// Initialize registers before/after callbacks on every gorm processor.
func (p GormMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op       string
		register func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.op
		if err := h.register("metrics:before_"+op, markStart); err != nil {
			return err
		}
		if err := h.after("metrics:after_"+op, func(tx *gorm.DB) { observe(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startedAtKey, time.Now())
}

func observe(tx *gorm.DB, op string) {
	v, ok := tx.InstanceGet(startedAtKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
}
