package main

import (
	"context"
	"fmt"

	appcompany "github.com/b2bmarket/backend/internal/application/company"
	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
	"github.com/b2bmarket/backend/internal/infrastructure/event"
	"github.com/b2bmarket/backend/internal/infrastructure/logger"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/persistence"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what the subcommands share. It is opened once per invocation.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *persistence.Database
	kv         cache.KV
	store      docstore.Store
	bus        *event.InMemoryEventBus
	companies  company.Repository
	categories catalog.CategoryRepository
	activation *appcompany.ActivationService
}

func openApp(ctx context.Context, logLevel string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})

	db, err := persistence.NewDatabase(cfg.Database, persistence.WithGormLogger(log, "warn", 0))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if db.Driver != "postgres" {
		if err := docstore.NewSQLStore(db.DB).AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare schema: %w", err)
		}
	}

	kv := cache.NewKV(cfg.Redis, log)
	store, err := docstore.Open(ctx, cfg.DocStore, db.DB, kv, log)
	if err != nil {
		_ = kv.Close()
		_ = db.Close()
		return nil, fmt.Errorf("open document store: %w", err)
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		kv:         kv,
		store:      store,
		companies:  persistence.NewCompanyRepository(store),
		categories: persistence.NewCategoryRepository(store),
	}

	// Activating from the CLI notifies the company's users the same way the
	// webhook does.
	mailer, err := mail.NewMailer(cfg.Mail, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initialize mailer: %w", err)
	}
	templates, err := mail.LoadTemplates()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	idempotency := cache.NewIdempotencyStore(kv)
	a.bus = event.NewInMemoryEventBus(log)
	a.bus.Subscribe(event.NewIdempotentHandler(
		appcompany.NewActivationNotifier(
			persistence.NewUserRepository(store),
			persistence.NewNotificationRepository(store),
			mailer, templates, mail.Links{BaseURL: cfg.App.BaseURL}, log,
		), idempotency, log))
	if err := a.bus.Start(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("start event bus: %w", err)
	}
	a.activation = appcompany.NewActivationService(a.companies, a.bus, idempotency, cfg.Webhook.Secret,
		telemetry.NopMarketMetrics(), log, appcompany.WithCacheInvalidator(docstore.Invalidation(store)))
	return a, nil
}

func (a *app) close() {
	if a.bus != nil {
		_ = a.bus.Stop(context.Background())
	}
	_ = a.store.Close()
	_ = a.kv.Close()
	_ = a.db.Close()
	_ = a.log.Sync()
}

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		a        *app
	)

	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Operate the B2B marketplace",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = openApp(cmd.Context(), logLevel)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	current := func() *app { return a }
	root.AddCommand(newSeedCmd(current), newCompanyCmd(current))
	return root
}
