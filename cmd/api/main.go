package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httpapi "github.com/spec-kit/ticket-resolution/internal/api/http"
	"github.com/spec-kit/ticket-resolution/internal/api/http/handlers"
	"github.com/spec-kit/ticket-resolution/internal/auth"
	"github.com/spec-kit/ticket-resolution/internal/config"
	"github.com/spec-kit/ticket-resolution/internal/events"
	"github.com/spec-kit/ticket-resolution/internal/observability"
	"github.com/spec-kit/ticket-resolution/internal/persistence"
	"github.com/spec-kit/ticket-resolution/internal/ratelimit"
	"github.com/spec-kit/ticket-resolution/internal/repository"
	"github.com/spec-kit/ticket-resolution/internal/service"
	"github.com/spec-kit/ticket-resolution/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	ticketRepo := repository.NewTicketRepository(pg.PoolHandle())
	commentRepo := repository.NewCommentRepository(pg.PoolHandle())
	userRepo := repository.NewUserRepository(pg.PoolHandle())
	historyRepo := repository.NewTicketHistoryRepository(pg.PoolHandle())

	dispatcher := events.NewInMemoryDispatcher()

	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	dashboardSvc := service.NewDashboardService(ticketRepo, userRepo, rdb.Client, nil, logger)
	notifySvc := service.NewNotificationService(cfg.Notification, logger)
	notifySvc.RegisterHandlers(dispatcher)

	if cfg.SLAMonitor.Enabled {
		monitor := worker.NewSLAMonitor(ticketSvc, cfg.SLAMonitor.Interval(), logger)
		go monitor.Run(ctx)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	limiter := ratelimit.New(rdb.Client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httpapi.ErrorHandler(logger),
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})

	httpapi.RegisterMiddlewares(app, logger)
	httpapi.RegisterRoutes(app, httpapi.RouterDeps{
		Auth:      auth.NewMiddleware(tokens),
		Limiter:   limiter,
		Health:    handlers.NewHealthHandler(pg, rdb, cfg.App.Version),
		Tickets:   handlers.NewTicketsHandler(ticketSvc),
		Dashboard: handlers.NewDashboardHandler(dashboardSvc),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
