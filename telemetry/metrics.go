// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesSeen     prometheus.Counter
	CommandsTotal    *prometheus.CounterVec
	RelaysSucceeded  prometheus.Counter
	RelaysFailed     prometheus.Counter
	OriginalsDeleted prometheus.Counter

	// Histograms (seconds)
	RelayDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "masquerade_messages_total", Help: "Number of inbound messages processed"})
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "masquerade_commands_total", Help: "Number of commands dispatched, by kind"}, []string{"kind"})
		RelaysSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "masquerade_relays_succeeded_total", Help: "Number of messages relayed through an impersonation webhook"})
		RelaysFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "masquerade_relays_failed_total", Help: "Number of relay attempts that failed"})
		OriginalsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "masquerade_originals_deleted_total", Help: "Number of original messages deleted after a relay"})
		RelayDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "masquerade_relay_duration_seconds", Help: "Relay duration seconds (webhook create, post, teardown)", Buckets: prometheus.DefBuckets})
	})
}

// IncMessagesSeen counts one inbound message.
func IncMessagesSeen() {
	if MessagesSeen != nil {
		MessagesSeen.Inc()
	}
}

// IncCommand counts one dispatched command by kind.
func IncCommand(kind string) {
	if CommandsTotal != nil {
		CommandsTotal.WithLabelValues(kind).Inc()
	}
}

// IncOriginalsDeleted counts one deleted original message.
func IncOriginalsDeleted() {
	if OriginalsDeleted != nil {
		OriginalsDeleted.Inc()
	}
}

// ObserveRelay records one relay attempt's duration and outcome.
func ObserveRelay(d time.Duration, ok bool) {
	if RelayDuration != nil {
		RelayDuration.Observe(d.Seconds())
	}
	if ok {
		if RelaysSucceeded != nil {
			RelaysSucceeded.Inc()
		}
	} else if RelaysFailed != nil {
		RelaysFailed.Inc()
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
