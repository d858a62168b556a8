package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mukeshbadgujar/emandate-service/internal"
	"github.com/mukeshbadgujar/emandate-service/internal/core/events"
	"github.com/mukeshbadgujar/emandate-service/internal/customer"
	customerpg "github.com/mukeshbadgujar/emandate-service/internal/customer/postgres"
	"github.com/mukeshbadgujar/emandate-service/internal/dispatcher"
	"github.com/mukeshbadgujar/emandate-service/internal/gateway"
	"github.com/mukeshbadgujar/emandate-service/internal/mandate"
	mandatepg "github.com/mukeshbadgujar/emandate-service/internal/mandate/postgres"
	"github.com/mukeshbadgujar/emandate-service/internal/payment"
	paymentpg "github.com/mukeshbadgujar/emandate-service/internal/payment/postgres"
	"github.com/mukeshbadgujar/emandate-service/internal/transport"
	"github.com/mukeshbadgujar/emandate-service/internal/transport/rest"
	"github.com/mukeshbadgujar/emandate-service/internal/webhook"
	"github.com/mukeshbadgujar/emandate-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and provider webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Redis    *redis.Client
	Queue    *dispatcher.Queue
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger

	CustomerHandler *customer.Handler
	MandateHandler  *mandate.Handler
	PaymentHandler  *payment.Handler
	WebhookHandler  *webhook.Handler

	MandateService *mandate.Service
	PaymentService *payment.Service
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Redis,
		deps.CustomerHandler, deps.MandateHandler, deps.PaymentHandler, deps.WebhookHandler,
		deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func (d *Dependencies) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
}

// initializeDependencies wires the full object graph. The HTTP server and
// the worker share it: the server only enqueues jobs, the worker registers
// processors and starts consuming.
func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	env := "development"
	if config.Observability.Logging.Format == "json" {
		env = "production"
	}
	logger.Init(env, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	queue := dispatcher.NewQueue(redisClient, dispatcher.Config{
		Workers:        config.Dispatcher.Workers,
		MaxAttempts:    config.Dispatcher.MaxAttempts,
		RetryBaseDelay: config.Dispatcher.RetryBaseDelay,
		RetryMaxDelay:  config.Dispatcher.RetryMaxDelay,
		SweepInterval:  config.Dispatcher.SweepInterval,
		StuckJobAge:    config.Dispatcher.StuckJobAge,
	}, lg)

	eventBus := events.NewEventBus(lg)
	gatewayClient := gateway.NewFromConfig(config.Gateway, lg)

	customerRepo := customerpg.NewCustomerRepository(gormDB)
	mandateRepo := mandatepg.NewMandateRepository(gormDB)
	paymentRepo := paymentpg.NewPaymentRepository(gormDB)

	customerService := customer.NewService(customerRepo, gatewayClient, lg)
	mandateService := mandate.NewService(mandateRepo, customerRepo, gatewayClient, queue, eventBus, lg)
	paymentService := payment.NewService(paymentRepo, mandateRepo, gatewayClient, queue, eventBus, lg)
	reconciler := webhook.NewReconciler(gormDB, eventBus, lg)

	baseHandler := transport.NewBaseHandler(lg)

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		GormDB:   gormDB,
		Redis:    redisClient,
		Queue:    queue,
		EventBus: eventBus,
		Router:   chi.NewRouter(),

		CustomerHandler: customer.NewHandler(baseHandler, customerService, lg),
		MandateHandler:  mandate.NewHandler(baseHandler, mandateService, lg),
		PaymentHandler:  payment.NewHandler(baseHandler, paymentService, lg),
		WebhookHandler:  webhook.NewHandler(baseHandler, reconciler, gatewayClient, lg),

		MandateService: mandateService,
		PaymentService: paymentService,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
