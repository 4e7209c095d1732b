package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/route-engine/internal/config"
	"github.com/kursadbilgin/route-engine/internal/handler"
	"github.com/kursadbilgin/route-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/route-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/route-engine/internal/infra/redis"
	"github.com/kursadbilgin/route-engine/internal/observability"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
	"github.com/kursadbilgin/route-engine/internal/queue"
	"github.com/kursadbilgin/route-engine/internal/repository"
	"github.com/kursadbilgin/route-engine/internal/service"
	"github.com/kursadbilgin/route-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout       = 15 * time.Second
	consumerPrefetch      = 1
	autoGenerateScanLimit = 50
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("route-engine stopped with error", zap.Error(err))
	}
	logger.Info("route-engine stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, postgresql.DefaultPoolOptions(), logger)
	if err != nil {
		return err
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	mq, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer mq.Close()

	publisher := queue.NewRabbitMQPublisher(mq)
	consumer := queue.NewRabbitMQConsumer(mq, consumerPrefetch, logger)

	tokens, err := newTokenSource(cfg)
	if err != nil {
		return err
	}
	optimizerClient, err := optimizer.NewHTTPClient(cfg.OptimizerURL, tokens, cfg.OptimizerTimeoutDuration())
	if err != nil {
		return fmt.Errorf("optimizer client init failed: %w", err)
	}

	locker, err := infraredis.NewBatchLocker(rdb, cfg.GenerationLockTTLDuration())
	if err != nil {
		return fmt.Errorf("batch locker init failed: %w", err)
	}

	metrics := observability.NewMetrics()
	batches := repository.NewGormBatchRepo(db)

	generation, err := service.NewRouteGenerationService(
		batches,
		repository.NewGormOrderRepo(db),
		repository.NewGormDriverRepo(db),
		repository.NewGormRouteRepo(db),
		optimizerClient,
		service.GenerationSettings{
			DepotLat: cfg.DepotLat,
			DepotLng: cfg.DepotLng,
			Location: cfg.DeliveryLocation(),
			Timeout:  cfg.GenerationTimeoutDuration(),
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("route generation service init failed: %w", err)
	}
	generation.SetLocker(locker)
	generation.SetPublisher(publisher)
	generation.SetMetrics(metrics)

	worker, err := service.NewGenerationWorker(consumer, generation, cfg.WorkerConcurrency, logger)
	if err != nil {
		return fmt.Errorf("generation worker init failed: %w", err)
	}
	worker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:               "route-engine",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(observability.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware(transport.StatusFromError))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app,
		handler.PostgresCheck(sqlDB),
		handler.RedisCheck(rdb),
		handler.RabbitMQCheck(mq),
	)
	if err := handler.RegisterBatchRoutes(app, generation); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("route-engine api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down http server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	g.Go(func() error {
		return worker.Start(groupCtx)
	})

	if interval := cfg.AutoGenerateIntervalDuration(); interval > 0 {
		scanner, err := service.NewAutoGenerateScanner(batches, publisher, cfg.DeliveryLocation(), interval, autoGenerateScanLimit, logger)
		if err != nil {
			return fmt.Errorf("auto-generate scanner init failed: %w", err)
		}
		scanner.SetMetrics(metrics)

		g.Go(func() error {
			return scanner.Start(groupCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newTokenSource(cfg *config.Config) (optimizer.TokenSource, error) {
	if !cfg.UsesServiceAccount() {
		return optimizer.StaticTokenSource(cfg.OptimizerStaticToken), nil
	}

	source, err := optimizer.NewServiceAccountTokenSource(optimizer.ServiceAccountConfig{
		TokenURL:      cfg.OptimizerTokenURL,
		ClientEmail:   cfg.OptimizerClientEmail,
		PrivateKeyPEM: cfg.OptimizerPrivateKey,
		Scope:         cfg.OptimizerScope,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("optimizer credentials init failed: %w", err)
	}
	return source, nil
}
