package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config selects what InitTelemetry exports. Endpoints and credentials come
// from the standard OTEL_EXPORTER_OTLP_* environment variables.
type Config struct {
	ServiceName string
	Version     string

	Traces bool
	// SampleRatio is the fraction of root traces recorded; child spans follow their parent.
	SampleRatio float64

	Metrics bool
	// MetricInterval is how often metrics are pushed. Default: 10s
	MetricInterval time.Duration
}

// Enabled reports whether anything is exported.
func (c *Config) Enabled() bool {
	return c.Traces || c.Metrics
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "tenancy-server"
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 10 * time.Second
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be between 0 and 1, got %v", c.SampleRatio)
	}
	if c.MetricInterval < time.Second {
		return fmt.Errorf("metric interval must be at least 1s, got %s", c.MetricInterval)
	}
	return nil
}

// InitTelemetry installs the global tracer and meter providers selected by
// cfg. An exporter that cannot be created is logged and skipped. The returned
// function flushes and stops whatever was started.
func InitTelemetry(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithOSType(),
		resource.WithContainer(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdowns []func(context.Context) error

	if cfg.Traces {
		shutdown, err := initTraceProvider(ctx, res, newSampler(cfg.SampleRatio))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize trace provider, continuing without tracing")
		} else {
			shutdowns = append(shutdowns, shutdown)
		}

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	if cfg.Metrics {
		shutdown, err := initMeterProvider(ctx, res, cfg.MetricInterval)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize meter provider, continuing without metrics")
		} else {
			shutdowns = append(shutdowns, shutdown)
		}
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Bool("traces", cfg.Traces).
		Bool("metrics", cfg.Metrics).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("OpenTelemetry initialized")

	return func(ctx context.Context) error {
		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(ctx))
		}
		return errors.Join(errs...)
	}, nil
}

func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func initTraceProvider(ctx context.Context, res *resource.Resource, sampler sdktrace.Sampler) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func initMeterProvider(ctx context.Context, res *resource.Resource, interval time.Duration) (func(context.Context) error, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
