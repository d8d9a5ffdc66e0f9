package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/RAWENTERISLIVE/music-ai/internal/config"
)

const instrumentationName = "github.com/RAWENTERISLIVE/music-ai"

// Telemetry bundles the tracer, the metric instruments and the scrape handler
type Telemetry struct {
	Tracer         trace.Tracer
	Metrics        *Metrics
	MetricsHandler http.Handler
	shutdown       func(context.Context) error
}

// Shutdown flushes pending spans and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// Noop returns telemetry that records nothing, for tests and disabled setups
func Noop() *Telemetry {
	metrics, _ := NewMetrics(metricnoop.NewMeterProvider().Meter(instrumentationName))
	return &Telemetry{
		Tracer:  tracenoop.NewTracerProvider().Tracer(instrumentationName),
		Metrics: metrics,
	}
}

// Setup installs global trace and meter providers. Spans go to a rotated
// file, metrics are served in Prometheus format.
func Setup(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Telemetry, error) {
	if !cfg.Telemetry.Enabled {
		logger.Info("Telemetry disabled")
		return Noop(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Telemetry.TraceFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	traceFile := &lumberjack.Logger{
		Filename:   cfg.Telemetry.TraceFile,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}

	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	var metricsHandler http.Handler
	var mp *sdkmetric.MeterProvider
	promExporter, err := prometheus.New()
	if err != nil {
		logger.Warn("Failed to initialize prometheus exporter", zap.Error(err))
		mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	} else {
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(promExporter),
			sdkmetric.WithResource(res),
		)
		metricsHandler = promhttp.Handler()
	}
	otel.SetMeterProvider(mp)

	metrics, err := NewMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	logger.Info("Telemetry initialized",
		zap.String("traceFile", cfg.Telemetry.TraceFile),
		zap.Bool("prometheus", metricsHandler != nil))

	return &Telemetry{
		Tracer:         tp.Tracer(instrumentationName),
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		shutdown: func(ctx context.Context) error {
			var errs []error
			if err := mp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := tp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := traceFile.Close(); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}, nil
}
