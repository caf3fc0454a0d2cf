// Command notifier consumes order events from Kafka and sends customer
// notifications. Each event is handled once per consumer group thanks to the
// inbox, which lives in Redis when REDIS_ADDR is set and in Mongo otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"stagerent/internal/app/handlers/notifications"
	"stagerent/internal/app/notify"
	"stagerent/internal/infra/broker/kafka"
	"stagerent/internal/infra/config"
	mongostore "stagerent/internal/infra/db/mongo"
	"stagerent/internal/infra/inbox"
	"stagerent/internal/infra/obs"
	infraoutbox "stagerent/internal/infra/outbox"
	"stagerent/internal/infra/wiring"
)

const inboxTTL = 7 * 24 * time.Hour

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
		logger.Error("notifier stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("notifier stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	dedup, closeInbox, err := buildInbox(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeInbox()

	dispatcher := notify.NewDispatcher(logger)
	wiring.Subscribe(dispatcher, nil, logger)

	handler := kafka.EventHandler{Sink: dispatcher, Inbox: dedup, Logger: logger}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()

	policy := notifications.Policy{}
	topics := topicsFor(cfg.KafkaTopicPrefix, policy.Events())
	logger.Info("notifier consuming", "topics", topics, "group", cfg.KafkaGroupID)
	return consumer.Run(ctx, topics)
}

func buildInbox(ctx context.Context, cfg config.Config) (kafka.Deduper, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return inbox.NewRedisStore(client, cfg.KafkaGroupID, inboxTTL), func() { _ = client.Close() }, nil
	}
	if cfg.MongoURI == "" {
		return nil, nil, errors.New("either REDIS_ADDR or MONGO_URI is required for the inbox")
	}
	client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}
	store, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("inbox store: %w", err)
	}
	return store, closeFn, nil
}

func topicsFor(prefix string, events []string) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, name := range events {
		topic := infraoutbox.TopicFor(prefix, name)
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}
