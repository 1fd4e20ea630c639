package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"bmdb-api/internal/adapters/repo"
	"bmdb-api/internal/infra/cache"
	"bmdb-api/internal/infra/config"
	"bmdb-api/internal/infra/db"
	applog "bmdb-api/internal/infra/log"
	"bmdb-api/internal/infra/metrics"
	"bmdb-api/internal/infra/queue"
	"bmdb-api/internal/usecase/activity"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	pool, err := db.Connect(cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("activity-worker: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var (
		redisClient *redis.Client
		dedupe      activity.Deduper
	)
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("activity-worker: нет подключения к Redis")
		}
		defer redisClient.Close()
		dedupe = cache.NewRedis(redisClient, "bmdb")
	}

	activityQueue, closeQueue, err := queue.Open(cfg.Queues.Backend, redisClient, cfg.Queues.RabbitURL, cfg.Queues.Activity)
	if err != nil {
		logger.Fatal().Err(err).Msg("activity-worker: не удалось открыть очередь")
	}
	defer closeQueue()
	if activityQueue == nil {
		logger.Fatal().Msg("activity-worker: очередь не настроена (ACTIVITY_QUEUE_BACKEND=none)")
	}

	worker := activity.NewWorker(activityQueue, repoAdapter, dedupe, logger.With().Str("component", "activity").Logger())
	logger.Info().Str("backend", cfg.Queues.Backend).Msg("activity-worker: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("activity-worker: остановлен")
}
