package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/healthsnap/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount      metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	PipelineRunCount  metric.Int64Counter
	StageDuration     metric.Float64Histogram
	StageTokens       metric.Int64Counter
	TranscriptionReqs metric.Int64Counter
}

// Setup initializes OpenTelemetry trace and metric providers
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		if err := meterProvider.Shutdown(ctx); err != nil {
			return err
		}
		return tracerProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// defaultMetrics is set by InitMetrics so application code can record
// pipeline metrics without threading the struct through every layer.
var defaultMetrics *Metrics

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	pipelineRunCount, err := meter.Int64Counter(
		"pipeline.run.count",
		metric.WithDescription("Number of report pipeline runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline.stage.duration",
		metric.WithDescription("Analysis stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stageTokens, err := meter.Int64Counter(
		"pipeline.stage.tokens",
		metric.WithDescription("Tokens consumed per analysis stage"),
	)
	if err != nil {
		return nil, err
	}

	transcriptionReqs, err := meter.Int64Counter(
		"transcription.request.count",
		metric.WithDescription("Transcription provider requests by provider and outcome"),
	)
	if err != nil {
		return nil, err
	}

	metrics := &Metrics{
		RequestCount:      requestCount,
		RequestDuration:   requestDuration,
		PipelineRunCount:  pipelineRunCount,
		StageDuration:     stageDuration,
		StageTokens:       stageTokens,
		TranscriptionReqs: transcriptionReqs,
	}
	defaultMetrics = metrics
	return metrics, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request metric
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordPipelineRun records a completed pipeline run
func RecordPipelineRun(ctx context.Context, outcome string) {
	if defaultMetrics == nil {
		return
	}
	defaultMetrics.PipelineRunCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline.outcome", outcome),
	))
}

// RecordStageMetric records duration and token usage for one analysis stage
func RecordStageMetric(ctx context.Context, stage string, duration time.Duration, tokens int, success bool) {
	if defaultMetrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pipeline.stage", stage),
		attribute.Bool("pipeline.stage.success", success),
	}
	defaultMetrics.StageDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	defaultMetrics.StageTokens.Add(ctx, int64(tokens), metric.WithAttributes(attrs...))
}

// RecordTranscriptionRequest records one provider call from the gateway
func RecordTranscriptionRequest(ctx context.Context, provider string, success bool) {
	if defaultMetrics == nil {
		return
	}
	defaultMetrics.TranscriptionReqs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transcription.provider", provider),
		attribute.Bool("transcription.success", success),
	))
}
