package state

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "master_schedule"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of headers that passed validation.
	HeadersValidated metrics.Counter
	// Number of rejected headers, labeled by reason.
	HeadersRejected metrics.Counter
	// Number of schedule changes promoted to active.
	ScheduleChanges metrics.Counter
	// Version of the active schedule.
	ScheduleVersion metrics.Gauge
}

// PrometheusMetrics returns Metrics built using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		HeadersValidated: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "headers_validated",
			Help:      "Number of block headers that passed validation.",
		}, labels).With(labelsAndValues...),
		HeadersRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "headers_rejected",
			Help:      "Number of block headers rejected, by reason.",
		}, append(labels, "reason")).With(labelsAndValues...),
		ScheduleChanges: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "changes",
			Help:      "Number of master schedules promoted to active.",
		}, labels).With(labelsAndValues...),
		ScheduleVersion: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "version",
			Help:      "Version of the active master schedule.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		HeadersValidated: discard.NewCounter(),
		HeadersRejected:  discard.NewCounter(),
		ScheduleChanges:  discard.NewCounter(),
		ScheduleVersion:  discard.NewGauge(),
	}
}
