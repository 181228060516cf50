package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/auth"
	"github.com/frahmantamala/paylink/internal/chain"
	"github.com/frahmantamala/paylink/internal/core/events"
	"github.com/frahmantamala/paylink/internal/dashboard"
	"github.com/frahmantamala/paylink/internal/dashboard/cache"
	dashboardPostgres "github.com/frahmantamala/paylink/internal/dashboard/postgres"
	"github.com/frahmantamala/paylink/internal/ledger"
	"github.com/frahmantamala/paylink/internal/merchant"
	merchantPostgres "github.com/frahmantamala/paylink/internal/merchant/postgres"
	"github.com/frahmantamala/paylink/internal/notify"
	"github.com/frahmantamala/paylink/internal/payment"
	paymentPostgres "github.com/frahmantamala/paylink/internal/payment/postgres"
	"github.com/frahmantamala/paylink/internal/paymentlink"
	paymentlinkPostgres "github.com/frahmantamala/paylink/internal/paymentlink/postgres"
	"github.com/frahmantamala/paylink/pkg/database"
	"github.com/frahmantamala/paylink/pkg/logger"
)

// application holds the services every command builds on. Optional
// integrations stay nil when they are not configured.
type application struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Logger *slog.Logger
	Bus    *events.EventBus

	Tokens       *auth.RSATokenGenerator
	Merchants    *merchant.Service
	Links        *paymentlink.Service
	Payments     *payment.Service
	Dashboard    *dashboard.Service
	Chains       *chain.Service
	EventHandler *payment.EventHandler

	Redis  *redis.Client
	Kafka  *notify.KafkaDispatcher
	Ledger *ledger.Client
}

func newApplication(ctx context.Context, cfg *internal.Config) (*application, error) {
	log := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gormDB, err := database.NewGorm(db.DB)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	app := &application{
		Config: cfg,
		DB:     db,
		Gorm:   gormDB,
		Logger: log,
		Bus:    events.NewEventBus(log),
	}

	app.Tokens, err = auth.NewTokenGeneratorFromConfig(cfg.Security)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Merchants = merchant.NewService(merchantPostgres.NewMerchantRepository(gormDB))
	app.Links = paymentlink.NewService(paymentlinkPostgres.NewPaymentLinkRepository(gormDB), log)
	app.Payments = payment.NewService(paymentPostgres.NewPaymentRepository(gormDB), app.Links, app.Bus, log)
	app.Dashboard = dashboard.NewService(
		dashboardPostgres.NewSessionRepository(gormDB),
		app.Merchants,
		app.Links,
		app.Payments,
		app.Tokens,
		cfg.Dashboard,
		log,
	)

	if cfg.Redis.URL != "" {
		app.Redis, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.Dashboard.SetLockout(cache.NewRedisLockoutStore(app.Redis, cfg.Dashboard.LockoutThreshold, cfg.Dashboard.LockoutWindow))
	} else {
		log.Warn("redis not configured, dashboard login lockout disabled")
	}

	if len(cfg.RPC.Chains) > 0 {
		app.Chains, err = chain.NewServiceFromConfig(ctx, cfg.RPC, log)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	var mirror payment.TransactionMirror
	if cfg.Ledger.BaseURL != "" {
		app.Ledger = ledger.NewClient(ledger.Config{
			BaseURL: cfg.Ledger.BaseURL,
			APIKey:  cfg.Ledger.APIKey,
			Timeout: cfg.Ledger.Timeout,
		}, log)
		mirror = app.Ledger
	}

	var dispatcher payment.WebhookDispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		app.Kafka, err = notify.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.WebhookTopic, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		dispatcher = app.Kafka
	}

	app.EventHandler = payment.NewEventHandler(mirror, dispatcher, app.Payments, log)
	app.EventHandler.RegisterEventHandlers(app.Bus)

	return app, nil
}

func (a *application) Close() {
	if a.Bus != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.Bus.Wait(drainCtx); err != nil {
			a.Logger.Error("event handlers still running at shutdown", "error", err)
		}
		cancel()
	}

	if a.Kafka != nil {
		if err := a.Kafka.Close(); err != nil {
			a.Logger.Error("kafka writer close error", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
