// Package telemetry provides OpenTelemetry integration for copylog.
//
// Telemetry is off unless COPYLOG_OTEL_ENABLED=true. When off, Init
// installs no-op providers and WrapTracker returns trackers unchanged.
//
// # Environment
//
//	COPYLOG_OTEL_ENABLED=true            enable telemetry
//	COPYLOG_OTEL_STDOUT=true             print spans and metrics to stderr
//	COPYLOG_OTEL_SAMPLE_RATIO=0.25       fraction of runs traced (default 1)
//	COPYLOG_OTEL_METRIC_INTERVAL=1m      metric export interval (default 30s)
//	OTEL_EXPORTER_OTLP_ENDPOINT=...      OTLP/HTTP metrics, host:port or URL
//
// Without an OTLP endpoint, spans and metrics go to stderr.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/copylog/copylog"

const defaultMetricInterval = 30 * time.Second

// Settings are the telemetry options read from the environment.
type Settings struct {
	Enabled        bool
	Stdout         bool
	OTLPEndpoint   string
	SampleRatio    float64
	MetricInterval time.Duration
}

// SettingsFromEnv reads Settings. Malformed numbers fall back to defaults.
func SettingsFromEnv() Settings {
	s := Settings{
		Enabled:        os.Getenv("COPYLOG_OTEL_ENABLED") == "true",
		Stdout:         os.Getenv("COPYLOG_OTEL_STDOUT") == "true",
		SampleRatio:    1,
		MetricInterval: defaultMetricInterval,
	}
	for _, key := range []string{"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		if v := os.Getenv(key); v != "" {
			s.OTLPEndpoint = v
			break
		}
	}
	if v, err := strconv.ParseFloat(os.Getenv("COPYLOG_OTEL_SAMPLE_RATIO"), 64); err == nil && v >= 0 && v <= 1 {
		s.SampleRatio = v
	}
	if v, err := time.ParseDuration(os.Getenv("COPYLOG_OTEL_METRIC_INTERVAL")); err == nil && v > 0 {
		s.MetricInterval = v
	}
	return s
}

// toStderr reports whether spans and metrics are printed locally.
func (s Settings) toStderr() bool {
	return s.Stdout || s.OTLPEndpoint == ""
}

var shutdownFns []func(context.Context) error

// Enabled reports whether telemetry is active.
func Enabled() bool {
	return SettingsFromEnv().Enabled
}

// Init configures the global providers from the environment.
func Init(ctx context.Context, serviceName, version string) error {
	s := SettingsFromEnv()
	if !s.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := newTracerProvider(s, res)
	if err != nil {
		return fmt.Errorf("telemetry: trace provider: %w", err)
	}
	mp, err := newMeterProvider(ctx, s, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: metric provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, tp.Shutdown, mp.Shutdown)
	return nil
}

func newTracerProvider(s Settings, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))),
	}
	// Spans have no OTLP exporter; with only an endpoint set they are dropped.
	if s.toStderr() {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, s Settings, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if s.toStderr() {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(s.MetricInterval))))
	}
	if s.OTLPEndpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, s.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(s.MetricInterval))))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns a tracer for name, or for copylog when name is empty.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns a meter for name, or for copylog when name is empty.
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes pending spans and metrics. Call it once before exit
// with a short-lived context.
func Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range shutdownFns {
		errs = append(errs, fn(ctx))
	}
	shutdownFns = nil
	return errors.Join(errs...)
}
