package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/vibecodefixers/help-request-service/internal/api/http"
	"github.com/vibecodefixers/help-request-service/internal/api/http/handlers"
	"github.com/vibecodefixers/help-request-service/internal/auth"
	"github.com/vibecodefixers/help-request-service/internal/config"
	"github.com/vibecodefixers/help-request-service/internal/events"
	"github.com/vibecodefixers/help-request-service/internal/observability"
	"github.com/vibecodefixers/help-request-service/internal/persistence"
	"github.com/vibecodefixers/help-request-service/internal/repository"
	"github.com/vibecodefixers/help-request-service/internal/service"
	"github.com/vibecodefixers/help-request-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	requestRepo := repository.NewHelpRequestRepository(pool)
	historyRepo := repository.NewRequestHistoryRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	usageStore := repository.NewRedisUsageStore(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, usageStore, cfg.Subscription, logger)
	requestService := service.NewHelpRequestService(service.HelpRequestDependencies{
		RequestRepo:  requestRepo,
		HistoryRepo:  historyRepo,
		Subscription: subscriptionService,
		Dispatcher:   dispatcher,
		Logger:       logger,
		RequestTTL:   cfg.Worker.RequestTTL(),
	})

	notificationService := service.NewNotificationService(dispatcher, logger)
	notificationService.RegisterHandlers()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Requests:       handlers.NewHelpRequestsHandler(requestService),
		ExpertRequests: handlers.NewExpertRequestsHandler(requestService),
		AuthMiddleware: authMiddleware,
	})

	expirationWorker := worker.NewExpirationWorker(requestService, cfg.Worker.SweepInterval(), logger)
	go expirationWorker.Run(ctx)

	usageRetryWorker := worker.NewUsageRetryWorker(subscriptionService, cfg.Worker.UsageRetryInterval(), logger)
	go usageRetryWorker.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
