package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetly/internal/config"
	"budgetly/internal/database"
	"budgetly/internal/handlers"
	"budgetly/internal/logger"
	"budgetly/internal/middleware"
	"budgetly/internal/notify"
	"budgetly/internal/repository"
	"budgetly/internal/server"
	"budgetly/internal/services"
	"budgetly/internal/validator"
)

// @title           Budgetly API
// @version         1.0
// @description     Budgetly tracks a monthly budget split into leisure, essentials and savings, and applies expenses against it.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("database close failed", "error", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	notifier, closeNotifier, err := buildNotifier(appConfig)
	if err != nil {
		return err
	}
	defer closeNotifier()

	validator.Register()

	// Initialize services
	store := repository.NewGormStore(dbManager.DB())
	userService := services.NewUserService(store)
	budgetService := services.NewBudgetService(store, notifier)
	expenseService := services.NewExpenseService(store, budgetService,
		services.WithReconciliation(appConfig.ReconcileSpent))

	tokens := middleware.NewTokenManager(appConfig.JWTSecret, appConfig.JWTExpirationDur)

	router := server.NewRouter(server.Deps{
		Auth:        handlers.NewAuthHandler(userService, tokens),
		Budgets:     handlers.NewBudgetHandler(budgetService, expenseService),
		Expenses:    handlers.NewExpenseHandler(expenseService),
		Tokens:      tokens,
		CORSOrigins: appConfig.CORSOrigins,
		DB:          dbManager,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Budgetly server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildNotifier always logs alerts and also publishes them to AMQP when
// AMQP_URL is set.
func buildNotifier(cfg *config.Config) (notify.Notifier, func(), error) {
	logNotifier := notify.NewLogNotifier(logger.Named("alerts"))
	if cfg.AMQPURL == "" {
		return logNotifier, func() {}, nil
	}

	amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AlertRoutingKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	closeFn := func() {
		if err := amqpNotifier.Close(); err != nil {
			logger.Get().Warnw("amqp close failed", "error", err)
		}
	}
	return notify.Multi{logNotifier, amqpNotifier}, closeFn, nil
}
