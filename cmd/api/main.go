package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/citytransit/transit-service/internal/api/http"
	"github.com/citytransit/transit-service/internal/api/http/handlers"
	"github.com/citytransit/transit-service/internal/auth"
	"github.com/citytransit/transit-service/internal/config"
	"github.com/citytransit/transit-service/internal/events"
	"github.com/citytransit/transit-service/internal/observability"
	"github.com/citytransit/transit-service/internal/persistence"
	"github.com/citytransit/transit-service/internal/repository"
	"github.com/citytransit/transit-service/internal/service"
	"github.com/citytransit/transit-service/internal/worker"
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

	metrics, err := observability.NewHTTPMetrics(observability.HTTPMetricsOptions{})
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	if len(cfg.Kafka.Brokers) > 0 {
		bridge, err := events.NewKafkaBridge(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("failed to init kafka bridge", zap.Error(err))
		}
		defer bridge.Close() //nolint:errcheck
		bridge.Attach(dispatcher)
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	routeRepo := repository.NewRouteRepository(pool)
	pricingRepo := repository.NewPricingRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: userRepo})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	routeService := service.NewRouteService(service.RouteDependencies{RouteRepo: routeRepo})
	pricingService := service.NewPricingService(service.PricingDependencies{
		PricingRepo: pricingRepo,
		Cache:       redis.CacheClient(),
		CacheTTL:    cfg.Redis.PriceCacheTTL,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UsageRepo:  usageRepo,
		RouteRepo:  routeRepo,
		Prices:     pricingService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketRepo: ticketRepo,
		UsageRepo:  usageRepo,
		RouteRepo:  routeRepo,
		UserRepo:   userRepo,
	})

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	notifications.RegisterHandlers()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Routes:         handlers.NewRoutesHandler(routeService),
		Pricing:        handlers.NewPricingHandler(pricingService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		AuthMiddleware: authMiddleware,
	})

	expiry := worker.NewExpiryWorker(ticketService, cfg.Worker.ExpiryInterval, logger)
	go expiry.Run(ctx)

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
