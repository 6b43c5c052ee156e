package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const metricsExportInterval = 60 * time.Second

// MeterProvider wraps the OpenTelemetry MeterProvider with lifecycle management.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   config.TelemetryConfig
}

// NewMeterProvider creates the OTLP gRPC meter provider. Metrics need both
// telemetry and metrics enabled; otherwise the global no-op meter is used.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{
		logger: logger,
		config: cfg,
	}

	if !cfg.Enabled || !cfg.MetricsEnabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricsExportInterval))),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
	)
	return mp, nil
}

// Shutdown flushes pending metrics.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		mp.logger.Error("Error shutting down meter provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// Meter returns a named meter from the provider.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled returns whether metrics are enabled.
func (mp *MeterProvider) IsEnabled() bool {
	return mp.provider != nil
}

// Counter is a helper for monotonically increasing values.
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new Counter metric.
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Inc increments the counter by 1 with optional attributes.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Metric attribute keys
const (
	AttrKind           = attribute.Key("kind")
	AttrOutcome        = attribute.Key("outcome")
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrCompanyID      = attribute.Key("company_id")
)

// MarketMetrics are the marketplace business counters
type MarketMetrics struct {
	registrations     *Counter
	listingsCreated   *Counter
	messagesSent      *Counter
	webhookDeliveries *Counter
}

// NewMarketMetrics registers the counters on meter
func NewMarketMetrics(meter metric.Meter) (*MarketMetrics, error) {
	var (
		m   MarketMetrics
		err error
	)
	if m.registrations, err = NewCounter(meter, "market.registrations", "Companies registered", "{company}"); err != nil {
		return nil, err
	}
	if m.listingsCreated, err = NewCounter(meter, "market.listings.created", "Products and services created", "{listing}"); err != nil {
		return nil, err
	}
	if m.messagesSent, err = NewCounter(meter, "market.messages.sent", "Messages sent between companies", "{message}"); err != nil {
		return nil, err
	}
	if m.webhookDeliveries, err = NewCounter(meter, "market.webhook.deliveries", "Activation webhook deliveries", "{delivery}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NopMarketMetrics returns counters on the no-op meter, for tests and tools.
func NopMarketMetrics() *MarketMetrics {
	m, _ := NewMarketMetrics(otel.GetMeterProvider().Meter("noop"))
	return m
}

// RecordRegistration counts a company registration
func (m *MarketMetrics) RecordRegistration(ctx context.Context) {
	m.registrations.Inc(ctx)
}

// RecordListingCreated counts a new listing of kind
func (m *MarketMetrics) RecordListingCreated(ctx context.Context, kind string) {
	m.listingsCreated.Inc(ctx, AttrKind.String(kind))
}

// RecordMessageSent counts a sent message
func (m *MarketMetrics) RecordMessageSent(ctx context.Context) {
	m.messagesSent.Inc(ctx)
}

// RecordWebhookDelivery counts a webhook delivery by outcome
// (processed, duplicate, rejected).
func (m *MarketMetrics) RecordWebhookDelivery(ctx context.Context, outcome string) {
	m.webhookDeliveries.Inc(ctx, AttrOutcome.String(outcome))
}
