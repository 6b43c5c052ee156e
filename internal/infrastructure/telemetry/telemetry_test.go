package telemetry_test

import (
	"context"
	"errors"
	"runtime/pprof"
	"testing"

	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := config.TelemetryConfig{ServiceName: "test-service"}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	require.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := telemetry.NewProfiler(config.TelemetryConfig{ProfilingEnabled: true, ServiceName: "svc"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server address")
}

func TestMarketMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	m, err := telemetry.NewMarketMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordRegistration(ctx)
	m.RecordListingCreated(ctx, "product")
	m.RecordListingCreated(ctx, "service")
	m.RecordMessageSent(ctx)
	m.RecordWebhookDelivery(ctx, "duplicate")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	totals := map[string]int64{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, metric.Name)
		for _, dp := range sum.DataPoints {
			totals[metric.Name] += dp.Value
		}
	}
	assert.Equal(t, map[string]int64{
		"market.registrations":      1,
		"market.listings.created":   2,
		"market.messages.sent":      1,
		"market.webhook.deliveries": 1,
	}, totals)

	assert.NotPanics(t, func() { telemetry.NopMarketMetrics().RecordMessageSent(ctx) })
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	ctx, span := telemetry.StartServiceSpan(context.Background(), "catalog", "fetch",
		telemetry.SpanAttrCompanyID, "c-1", "page", 2, 42, "ignored")
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.SetAttributes(span, "published", true)
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "catalog.fetch", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Contains(t, s.Attributes(), attribute.String(telemetry.SpanAttrCompanyID, "c-1"))
	assert.Contains(t, s.Attributes(), attribute.Int("page", 2))
	assert.Contains(t, s.Attributes(), attribute.Bool("published", true))
	assert.Len(t, s.Attributes(), 3)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestDBTracingPlugin_MarksTableAndErrors(t *testing.T) {
	sr := setupTestTracer(t)
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	plugin := telemetry.NewDBTracingPlugin("sqlite", 0, zap.NewNop())
	require.NoError(t, plugin.Register(db))

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&widget{}))
	before := len(sr.Ended())

	require.NoError(t, db.WithContext(context.Background()).Create(&widget{Name: "a"}).Error)
	err = db.WithContext(context.Background()).Table("missing_table").Count(new(int64)).Error
	require.Error(t, err)

	spans := sr.Ended()[before:]
	require.NotEmpty(t, spans)
	var sawError bool
	for _, s := range spans {
		if s.Status().Code == codes.Error {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestWithProfilingLabels(t *testing.T) {
	ctx := context.Background()

	var route, company string
	var routeOK, emptyOK bool
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelRoute:     "/api/v1/catalog",
		telemetry.ProfilingLabelCompanyID: "c-1",
		telemetry.ProfilingLabelMethod:    "",
	}, func(c context.Context) {
		route, routeOK = pprof.Label(c, telemetry.ProfilingLabelRoute)
		company, _ = pprof.Label(c, telemetry.ProfilingLabelCompanyID)
		_, emptyOK = pprof.Label(c, telemetry.ProfilingLabelMethod)
	})
	assert.True(t, routeOK)
	assert.Equal(t, "/api/v1/catalog", route)
	assert.Equal(t, "c-1", company)
	assert.False(t, emptyOK, "empty values are dropped")

	called := false
	telemetry.WithProfilingLabels(ctx, nil, func(context.Context) { called = true })
	assert.True(t, called)
}
