package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/example/notification-pipeline/internal/broker"
	"github.com/example/notification-pipeline/internal/channels"
	"github.com/example/notification-pipeline/internal/common"
	"github.com/example/notification-pipeline/internal/milestone"
	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/orders"
	"github.com/example/notification-pipeline/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("notifier")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort)
	defer metricsSrv.Shutdown(context.Background())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	var recipients channels.RecipientResolver
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo, err := orders.NewRepository(pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build orders repository")
		}
		recipients = repo
	} else {
		logger.Warn().Msg("DATABASE_URL unset, email recipients resolved from payloads only")
	}

	b, err := broker.Connect(ctx, cfg.AMQPURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer b.Close()

	if err := b.DeclareTopology(broker.DefaultTopology()); err != nil {
		logger.Fatal().Err(err).Msg("failed to declare topology")
	}
	if err := b.Qos(cfg.PrefetchCount); err != nil {
		logger.Fatal().Err(err).Msg("failed to set prefetch")
	}

	mailer := &channels.HTTPMailer{
		Endpoint: envOr("MAIL_ENDPOINT", "https://mail.local"),
		APIKey:   os.Getenv("MAIL_API_KEY"),
		From:     envOr("MAIL_FROM", "notifications@example.com"),
	}

	redisStore := store.NewRedis(redisClient)
	fanout := channels.NewFanout(logger,
		&channels.EmailChannel{Mailer: mailer, Recipients: recipients, Logger: logger},
		&channels.PushChannel{List: redisStore, Cap: int64(cfg.PushCap)},
		&channels.DashboardChannel{List: redisStore, Broadcast: redisStore, Cap: int64(cfg.DashboardCap)},
		&channels.SlackChannel{Queue: redisStore},
	)

	pipeline := &notify.Pipeline{
		Store:  store.NewHistory(redisClient, int64(cfg.UserHistoryCap)),
		Fanout: fanout,
		Logger: logger,
	}
	analytics := &notify.AnalyticsPipeline{
		Pipeline: pipeline,
		Detector: &milestone.Detector{
			Store:    redisStore,
			Bus:      b,
			Exchange: broker.ExchangeAnalytics,
			Ladder:   cfg.MilestoneLadder,
			Period:   24 * time.Hour,
			Logger:   logger,
		},
		Logger: logger,
	}

	consumers := []*broker.Consumer{
		{Channel: b.Channel(), Queue: broker.QueueOrders, Handler: pipeline.Handle, Logger: logger},
		{Channel: b.Channel(), Queue: broker.QueueAnalytics, Handler: analytics.Handle, Logger: logger},
		{Channel: b.Channel(), Queue: broker.QueueAlerts, Handler: pipeline.Handle, Logger: logger},
	}
	for _, c := range consumers {
		c := c
		go func() {
			logger.Info().Str("queue", c.Queue).Msg("consumer started")
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Fatal().Err(err).Str("queue", c.Queue).Msg("consumer stopped")
			}
		}()
	}

	logger.Info().Msg("notifier started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
