package server

import (
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/lab1702/gunnery/server"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics are the OTel instruments recorded per tick. They report to
// whatever MeterProvider is installed globally (no-op by default).
type metrics struct {
	solutions metric.Int64Counter
	fired     metric.Int64Counter
	invalid   metric.Int64Counter
	sessions  metric.Int64UpDownCounter
	power     metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	m := meter()

	solutions, err := m.Int64Counter("gunnery.solutions",
		metric.WithDescription("Firing solutions computed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create solutions counter: %w", err)
	}
	fired, err := m.Int64Counter("gunnery.fired",
		metric.WithDescription("Solutions with a fire decision"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fired counter: %w", err)
	}
	invalid, err := m.Int64Counter("gunnery.invalid_input",
		metric.WithDescription("Ticks rejected as invalid input"))
	if err != nil {
		return nil, fmt.Errorf("failed to create invalid counter: %w", err)
	}
	sessions, err := m.Int64UpDownCounter("gunnery.sessions",
		metric.WithDescription("Connected agent sessions"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions counter: %w", err)
	}
	power, err := m.Float64Histogram("gunnery.fire_power",
		metric.WithDescription("Power of fired shots"))
	if err != nil {
		return nil, fmt.Errorf("failed to create power histogram: %w", err)
	}

	return &metrics{
		solutions: solutions,
		fired:     fired,
		invalid:   invalid,
		sessions:  sessions,
		power:     power,
	}, nil
}

// stats are the in-process counters served by /api/stats
type stats struct {
	sessions       atomic.Int64
	solutions      atomic.Int64
	fired          atomic.Int64
	invalid        atomic.Int64
	droppedShots   atomic.Int64
	recordFailures atomic.Int64
}
