// Package metrics wires netifd's OpenTelemetry counters: kernel operations
// issued, kernel operation failures, and resolv.conf rewrites.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds netifd's counters. Only the resolv.conf write counter is
// incremented in this tree (by netifd.System.WriteResolvConf);
// RecordKernelOp and AdjustHostRoutes have no callers.
type Metrics struct {
	logger *slog.Logger

	kernelOpsTotal   metric.Int64Counter
	kernelErrorTotal metric.Int64Counter
	resolvWrites     metric.Int64Counter
	hostRoutesActive metric.Int64UpDownCounter
}

// New creates the metrics collector against the global OTel meter
// provider, registering it under the "netifd" instrumentation name.
func New(logger *slog.Logger) (*Metrics, error) {
	meter := otel.Meter("netifd",
		metric.WithInstrumentationVersion("1.0.0"),
		metric.WithSchemaURL("https://github.com/netifd-go/netifd"),
	)

	kernelOpsTotal, err := meter.Int64Counter(
		"netifd_kernel_ops_total",
		metric.WithDescription("Total kernel operations issued by the executor"),
		metric.WithUnit("operations"),
	)
	if err != nil {
		return nil, err
	}

	kernelErrorTotal, err := meter.Int64Counter(
		"netifd_kernel_errors_total",
		metric.WithDescription("Total kernel operations that returned an error"),
		metric.WithUnit("operations"),
	)
	if err != nil {
		return nil, err
	}

	resolvWrites, err := meter.Int64Counter(
		"netifd_resolv_conf_writes_total",
		metric.WithDescription("Total resolv.conf rewrites attempted"),
		metric.WithUnit("writes"),
	)
	if err != nil {
		return nil, err
	}

	hostRoutesActive, err := meter.Int64UpDownCounter(
		"netifd_host_routes_active",
		metric.WithDescription("Number of host routes currently installed by the resolver"),
		metric.WithUnit("routes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		logger:           logger.With("component", "metrics"),
		kernelOpsTotal:   kernelOpsTotal,
		kernelErrorTotal: kernelErrorTotal,
		resolvWrites:     resolvWrites,
		hostRoutesActive: hostRoutesActive,
	}, nil
}

// RecordKernelOp increments the op counter, tagged by operation name, and
// the error counter too when err is non-nil.
func (m *Metrics) RecordKernelOp(op string, err error) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.kernelOpsTotal.Add(context.Background(), 1, attrs)
	if err != nil {
		m.kernelErrorTotal.Add(context.Background(), 1, attrs)
	}
}

// RecordResolvWrite increments the resolv.conf write counter.
func (m *Metrics) RecordResolvWrite() {
	m.resolvWrites.Add(context.Background(), 1)
}

// AdjustHostRoutes changes the active host-route gauge by delta (positive
// on install, negative on removal).
func (m *Metrics) AdjustHostRoutes(delta int64) {
	m.hostRoutesActive.Add(context.Background(), delta)
}
