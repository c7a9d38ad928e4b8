package observability

import (
	"errors"
	"time"

	"clanhub/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clanhub_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WorkflowTransitions counts moderation workflow actions by outcome.
	// outcome is "ok" or the error code that rejected the action.
	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanhub_workflow_transitions_total",
		Help: "Total moderation workflow actions by workflow, action and outcome",
	}, []string{"workflow", "action", "outcome"})

	// EventsPublished counts moderation events handed to the notifier.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanhub_events_published_total",
		Help: "Total moderation events published by event type and result",
	}, []string{"event_type", "result"})
)

// Outcome returns the metric label for the result of a workflow action.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}

// RecordTransition counts one workflow action.
func RecordTransition(workflow, action string, err error) {
	WorkflowTransitions.WithLabelValues(workflow, action, Outcome(err)).Inc()
}

const queryStartKey = "observability:query_start"

// RegisterGormMetrics installs callbacks that feed DatabaseQueryLatency.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
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
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		operation string
		register  func() error
	}{
		{"create", func() error {
			if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("metrics:after_create", after("create"))
		}},
		{"query", func() error {
			if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("metrics:after_query", after("query"))
		}},
		{"update", func() error {
			if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("metrics:after_update", after("update"))
		}},
		{"delete", func() error {
			if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete"))
		}},
	}
	for _, step := range steps {
		if err := step.register(); err != nil {
			return err
		}
	}
	return nil
}
