package calculator

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric instruments — initialized once via InitMetrics(). Until then they
// record nothing.
var (
	pressCounter  metric.Int64Counter     = noop.Int64Counter{}
	evalCounter   metric.Int64Counter     = noop.Int64Counter{}
	evalHistogram metric.Float64Histogram = noop.Float64Histogram{}
	errorCounter  metric.Int64Counter     = noop.Int64Counter{}
	resultGauge   metric.Float64Gauge     = noop.Float64Gauge{}
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	pressCounter, err = meter.Int64Counter("calculator.presses.total",
		metric.WithDescription("Total number of calculator button presses applied"),
		metric.WithUnit("{press}"),
	)
	if err != nil {
		return fmt.Errorf("creating press counter: %w", err)
	}

	evalCounter, err = meter.Int64Counter("calculator.evaluations.total",
		metric.WithDescription("Total number of expressions submitted to the evaluator"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return fmt.Errorf("creating evaluation counter: %w", err)
	}

	evalHistogram, err = meter.Float64Histogram("calculator.evaluation.duration",
		metric.WithDescription("Duration of evaluator calls in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return fmt.Errorf("creating evaluation histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of rejected calculator requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The numeric value of the last successful evaluation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	return nil
}

// RegisterSessionGauge exports the number of live sessions in store as
// calculator_active_sessions.
func RegisterSessionGauge(reg prometheus.Registerer, store *Store) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "active_sessions",
		Help:      "Number of calculator sessions currently held in memory.",
	}, func() float64 {
		return float64(store.Len())
	})
	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("registering session gauge: %w", err)
	}
	return nil
}
