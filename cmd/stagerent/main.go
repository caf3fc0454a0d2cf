package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"stagerent/internal/app/locks"
	"stagerent/internal/infra/broker/kafka"
	"stagerent/internal/infra/config"
	mongostore "stagerent/internal/infra/db/mongo"
	"stagerent/internal/infra/fixtures"
	ginserver "stagerent/internal/infra/http/gin"
	"stagerent/internal/infra/locks/memlock"
	"stagerent/internal/infra/locks/redislock"
	"stagerent/internal/infra/obs"
	infraoutbox "stagerent/internal/infra/outbox"
	"stagerent/internal/infra/schedule"
	"stagerent/internal/infra/wiring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stagerent stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stagerent stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	locker, closeLocker, err := buildLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	g, ctx := errgroup.WithContext(ctx)

	var (
		app   *wiring.App
		ready func(context.Context) error
	)
	switch cfg.Storage {
	case config.StorageMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		}()
		if err := client.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			return fmt.Errorf("outbox store: %w", err)
		}
		idem, err := mongostore.NewIdempotencyStore(ctx, client.DB)
		if err != nil {
			return fmt.Errorf("idempotency store: %w", err)
		}
		app, err = wiring.Build(wiring.Deps{
			Factory:     mongostore.NewFactory(client.DB),
			Outbox:      box,
			Idempotency: idem,
			Locker:      locker,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		ready = client.Ping

		worker := &infraoutbox.Worker{
			Store:       box,
			Sink:        app.Dispatcher,
			Logger:      logger,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, "stagerent-outbox", nil)
			if err != nil {
				return fmt.Errorf("kafka producer: %w", err)
			}
			defer producer.Close()
			worker.Producer = producer
		}
		g.Go(func() error { return worker.Run(ctx) })
	default:
		mem, err := wiring.NewMemory(wiring.Deps{Locker: locker, Logger: logger})
		if err != nil {
			return err
		}
		app = mem.App
	}

	if cfg.CatalogFixtures != "" {
		if err := seedCatalog(ctx, app, cfg.CatalogFixtures, logger); err != nil {
			logger.Warn("catalog fixtures load failed", "error", err, "path", cfg.CatalogFixtures)
		}
	}

	scheduler, err := schedule.New(app.Commands, cfg.ExpireUnpaidSchedule, logger)
	if err != nil {
		return err
	}
	g.Go(func() error { return scheduler.Run(ctx) })

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, app.HTTPHandlers(logger))
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildLocker prefers Redis so several replicas share product locks.
func buildLocker(ctx context.Context, cfg config.Config) (locks.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return memlock.New(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	locker := redislock.New(client, redislock.Options{TTL: cfg.LockTTL, Wait: cfg.LockWait})
	return locker, func() { _ = client.Close() }, nil
}

func seedCatalog(ctx context.Context, app *wiring.App, path string, logger *slog.Logger) error {
	catalog, err := fixtures.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("catalog fixtures file not found, skipping", "path", path)
			return nil
		}
		return err
	}
	n, err := fixtures.Seed(ctx, app.Commands, catalog)
	if err != nil {
		return err
	}
	logger.Info("catalog fixtures imported", "assets", n, "path", path)
	return nil
}
