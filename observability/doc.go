// Package observability provides OpenTelemetry tracing and metrics for
// pipelines.
//
// Export:
//
//	shutdown, err := observability.Init(ctx, cfg)
//	defer shutdown(ctx)
//
// Instrumenting a Stage:
//
//	metrics, err := observability.NewMetrics(observability.Meter("tailpipe"))
//	sink := observability.Instrument[string](pipeline.NewSink[string](w), metrics, nil)
//
// Each push through an instrumented Stage opens a pipeline.push span and
// records pipeline.items and pipeline.push.duration; failures record
// pipeline.errors keyed by error code.
package observability
