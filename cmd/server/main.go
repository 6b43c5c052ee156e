package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	appcompany "github.com/b2bmarket/backend/internal/application/company"
	appidentity "github.com/b2bmarket/backend/internal/application/identity"
	appmedia "github.com/b2bmarket/backend/internal/application/media"
	appmessaging "github.com/b2bmarket/backend/internal/application/messaging"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/infrastructure/auth"
	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
	"github.com/b2bmarket/backend/internal/infrastructure/event"
	"github.com/b2bmarket/backend/internal/infrastructure/idp"
	"github.com/b2bmarket/backend/internal/infrastructure/logger"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/migration"
	"github.com/b2bmarket/backend/internal/infrastructure/pdf"
	"github.com/b2bmarket/backend/internal/infrastructure/persistence"
	"github.com/b2bmarket/backend/internal/infrastructure/storage"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/b2bmarket/backend/internal/interfaces/http/handler"
	"github.com/b2bmarket/backend/internal/interfaces/http/middleware"
	"github.com/b2bmarket/backend/internal/interfaces/http/router"
	"github.com/b2bmarket/backend/internal/interfaces/web"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/b2bmarket/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			B2B Marketplace API
//	@version		1.0
//	@description	Company directory, product and service catalog and inter-company messaging.

//	@contact.name	API Support
//	@contact.url	https://github.com/b2bmarket/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}". Browsers may send the session cookie instead.

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log := logger.New(logCfg)

	ctx := context.Background()

	// Telemetry comes first so the logger can tee into the OTLP bridge.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		log = logger.New(logCfg, loggerProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	defer func() { _ = log.Sync() }()

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link profiles to spans", zap.Error(err))
		}
	}

	log.Info("Starting B2B marketplace",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	metrics := telemetry.NopMarketMetrics()
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	if meterProvider.IsEnabled() {
		if metrics, err = telemetry.NewMarketMetrics(meter); err != nil {
			log.Fatal("Failed to create marketplace metrics", zap.Error(err))
		}
	}

	db, err := persistence.NewDatabase(cfg.Database,
		persistence.WithGormLogger(log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(db.Driver, cfg.Telemetry.DBSlowQueryThresh, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	kv := cache.NewKV(cfg.Redis, log)
	defer func() { _ = kv.Close() }()

	jwtService := auth.NewJWTService(cfg.JWT)
	provider := idp.NewLocalProvider(db.DB, jwtService, auth.NewTokenBlacklist(kv), idp.NewTokenStore(kv),
		cfg.Identity, idp.WithProviderLogger(log))

	if err := prepareSchema(db, provider, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	store, err := docstore.Open(ctx, cfg.DocStore, db.DB, kv, log)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	users := persistence.NewUserRepository(store)
	companies := persistence.NewCompanyRepository(store)
	listings := persistence.NewListingRepository(store)
	categories := persistence.NewCategoryRepository(store)
	messages := persistence.NewMessageRepository(store)
	notifications := persistence.NewNotificationRepository(store)
	assets := persistence.NewAssetRepository(store)

	mailer, err := mail.NewMailer(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	templates, err := mail.LoadTemplates()
	if err != nil {
		log.Fatal("Failed to load mail templates", zap.Error(err))
	}
	links := mail.Links{BaseURL: cfg.App.BaseURL}

	objects, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	pdfRenderer := pdf.New(cfg.PDF, log)
	defer func() { _ = pdfRenderer.Close() }()

	pages, err := web.NewRenderer()
	if err != nil {
		log.Fatal("Failed to parse page templates", zap.Error(err))
	}

	// Notifications fan out from domain events. Each handler is wrapped so a
	// redelivered event is handled once.
	idempotency := cache.NewIdempotencyStore(kv)
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		appcompany.NewActivationNotifier(users, notifications, mailer, templates, links, log), idempotency, log))
	eventBus.Subscribe(event.NewIdempotentHandler(
		appmessaging.NewMessageNotifier(companies, users, notifications, mailer, templates, links, log), idempotency, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	authService := appidentity.NewAuthService(provider, users, companies, mailer, templates, links, cfg.Identity, metrics, log)
	userService := appidentity.NewUserService(users, companies, provider, mailer, templates, links, cfg.Identity.InviteTokenTTL, log)
	catalogService := catalogapp.NewCatalogService(listings, categories, log)
	listingService := catalogapp.NewListingService(listings, categories, companies, assets, metrics, log)
	companyService := appcompany.NewCompanyService(companies, categories, listings, assets, pdfRenderer, pages, log)
	activationService := appcompany.NewActivationService(companies, eventBus, idempotency, cfg.Webhook.Secret, metrics, log,
		appcompany.WithCacheInvalidator(docstore.Invalidation(store)))
	messageService := appmessaging.NewMessageService(messages, companies, listings, eventBus, metrics, log)
	notificationService := appmessaging.NewNotificationService(notifications, log)
	uploadService := appmedia.NewUploadService(assets, objects, cfg.Storage.MaxImageSize, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))

	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.App.Env == "production"
	engine.Use(middleware.SecureWithConfig(securityConfig))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", handler.UnreadCountHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Uploads are bounded by the image size limit instead.
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, "/api/v1/uploads"))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	var authLimit gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer authLimiter.Stop()
		authLimit = middleware.AuthRateLimit(authLimiter)
	}

	r := router.NewRouter(engine)
	router.RegisterAPI(r, router.Handlers{
		Auth:          handler.NewAuthHandler(authService, cfg.Cookie),
		Users:         handler.NewUserHandler(userService),
		Companies:     handler.NewCompanyHandler(companyService),
		Catalog:       handler.NewCatalogHandler(catalogService),
		Products:      handler.NewListingHandler(catalog.KindProduct, listingService),
		Services:      handler.NewListingHandler(catalog.KindService, listingService),
		Messages:      handler.NewMessageHandler(messageService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Uploads:       handler.NewUploadHandler(uploadService),
		Webhooks:      handler.NewWebhookHandler(activationService),
	}, authLimit)

	engine.Use(middleware.Session(middleware.SessionConfig{
		Authenticator:    authService,
		CookieName:       cfg.Cookie.Name,
		SkipPaths:        []string{"/", "/health"},
		SkipPathPrefixes: []string{"/swagger", "/c/", "/files"},
		SkipRoutes:       r.PublicRoutes(),
		Logger:           log,
	}))
	engine.Use(middleware.SpanEnricher())
	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = profiler.IsEnabled()
	engine.Use(middleware.Profiling(profilingConfig))
	engine.Use(middleware.HTTPMetrics(meter))

	r.Setup()
	web.NewHandler(pages, catalogService, companyService).Register(engine)
	if cfg.Storage.Driver == "local" {
		engine.Static("/files", cfg.Storage.LocalDir)
	}

	health := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"docstore": store.Ping,
		"database": db.Ping,
		"cache": func(ctx context.Context) error {
			return kv.Set(ctx, "health:probe", time.Now().UTC().Format(time.RFC3339), time.Minute)
		},
	})
	engine.GET("/health", health.Health)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// prepareSchema runs the embedded migrations on postgres. SQLite databases
// are used for development and get their tables from AutoMigrate.
func prepareSchema(db *persistence.Database, provider *idp.LocalProvider, log *zap.Logger) error {
	if db.Driver != "postgres" {
		if err := docstore.NewSQLStore(db.DB).AutoMigrate(); err != nil {
			return err
		}
		return provider.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}
