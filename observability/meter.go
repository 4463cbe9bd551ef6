package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/tailpipe/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by instrumented Stages.
type Metrics struct {
	itemsTotal   metric.Int64Counter
	pushDuration metric.Float64Histogram
	errorTotal   metric.Int64Counter
	closedTotal  metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	itemsTotal, err := meter.Int64Counter("pipeline.items",
		metric.WithDescription("Items pushed into a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.items counter: %w", err)
	}

	pushDuration, err := meter.Float64Histogram("pipeline.push.duration",
		metric.WithDescription("Time a push spent in a stage and its subtree"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.push.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pipeline.errors",
		metric.WithDescription("Failed pushes and faults by stage and error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.errors counter: %w", err)
	}

	closedTotal, err := meter.Int64Counter("pipeline.stage.closed",
		metric.WithDescription("Stages closed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.stage.closed counter: %w", err)
	}

	return &Metrics{
		itemsTotal:   itemsTotal,
		pushDuration: pushDuration,
		errorTotal:   errorTotal,
		closedTotal:  closedTotal,
	}, nil
}

// RecordPush records one push through stage.
func (m *Metrics) RecordPush(ctx context.Context, stage, status string, duration time.Duration) {
	m.itemsTotal.Add(ctx, 1, metric.WithAttributes(
		AttrStage.String(stage),
		AttrStatus.String(status),
	))
	m.pushDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		AttrStage.String(stage),
	))
}

// RecordError records a failure by stage and error code.
func (m *Metrics) RecordError(ctx context.Context, stage, code string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		AttrStage.String(stage),
		AttrErrorCode.String(code),
	))
}

// RecordClose records a stage closing.
func (m *Metrics) RecordClose(ctx context.Context, stage string) {
	m.closedTotal.Add(ctx, 1, metric.WithAttributes(AttrStage.String(stage)))
}
