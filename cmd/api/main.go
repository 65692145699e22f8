package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/iterview/session-service/internal/api/http"
	"github.com/iterview/session-service/internal/api/http/handlers"
	"github.com/iterview/session-service/internal/auth"
	"github.com/iterview/session-service/internal/config"
	"github.com/iterview/session-service/internal/domain"
	"github.com/iterview/session-service/internal/events"
	"github.com/iterview/session-service/internal/observability"
	"github.com/iterview/session-service/internal/persistence"
	"github.com/iterview/session-service/internal/repository"
	"github.com/iterview/session-service/internal/service"
	"github.com/iterview/session-service/internal/worker"
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

	useRedis := cfg.RefreshStore.Backend == config.RefreshStoreRedis
	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger, useRedis)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	dependencies := map[string]handlers.Pinger{}
	pool := pg.PoolHandle()

	var (
		memberRepo    repository.MemberRepository
		authorityRepo repository.AuthorityRepository
		refreshStore  repository.RefreshTokenStore
	)
	if pool != nil {
		memberRepo = repository.NewMemberRepository(pool)
		authorityRepo = repository.NewAuthorityRepository(pool)
		dependencies["postgres"] = pg
	} else {
		logger.Warn("using in-memory profile directory")
		memberRepo = repository.NewMemoryMemberRepository()
		authorityRepo = repository.NewMemoryAuthorityRepository(domain.Authority(cfg.Auth.DefaultAuthority))
	}

	switch {
	case useRedis:
		refreshStore = repository.NewRedisRefreshTokenStore(redis.Client, cfg.Redis.KeyPrefix, cfg.Auth.RefreshTokenTTL())
		dependencies["redis"] = redis
	case pool != nil:
		refreshStore = repository.NewPostgresRefreshTokenStore(pool)
	default:
		logger.Fatal("REFRESH_STORE=postgres requires POSTGRES_DSN")
	}

	metrics := observability.NewMetrics("session")
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		MemberRepo:    memberRepo,
		AuthorityRepo: authorityRepo,
		RefreshStore:  refreshStore,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	if err := authService.CheckProvisioning(ctx); err != nil {
		logger.Fatal("provisioning check failed", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenCodec())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:              handlers.NewAuthHandler(authService),
		AuthMiddleware:    authMiddleware,
		Metrics:           metrics,
		RequiredAuthority: cfg.Auth.DefaultAuthority,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
