// Package telemetry sets up logging, tracing and metrics for the process.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "mindchat"

func rotated(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}, nil
}

// InitLogger installs a JSON slog logger writing to stdout, or to a rotated
// file when path is set. The returned func closes the file.
func InitLogger(level slog.Level, path string) (*slog.Logger, func(), error) {
	var (
		out     io.Writer = os.Stdout
		cleanup           = func() {}
	)
	if path != "" {
		file, err := rotated(path)
		if err != nil {
			return nil, nil, err
		}
		out = file
		cleanup = func() { _ = file.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// InitTelemetry exports traces and metrics to rotated files. With empty paths
// the global no-op providers stay in place.
func InitTelemetry(ctx context.Context, version, traceFile, metricsFile string) (func(), error) {
	if traceFile == "" && metricsFile == "" {
		return func() {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var shutdowns []func(context.Context) error

	if traceFile != "" {
		file, err := rotated(traceFile)
		if err != nil {
			return nil, err
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown, func(context.Context) error { return file.Close() })
	}

	if metricsFile != "" {
		file, err := rotated(metricsFile)
		if err != nil {
			return nil, err
		}
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(file))
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown, func(context.Context) error { return file.Close() })
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil {
				slog.Error("failed to shutdown telemetry", "error", err)
			}
		}
	}, nil
}
