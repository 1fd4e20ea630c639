package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"bmdb-api/internal/adapters/httpapi"
	"bmdb-api/internal/adapters/repo"
	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/cache"
	"bmdb-api/internal/infra/config"
	"bmdb-api/internal/infra/db"
	httpinfra "bmdb-api/internal/infra/http"
	applog "bmdb-api/internal/infra/log"
	"bmdb-api/internal/infra/metrics"
	"bmdb-api/internal/infra/queue"
	"bmdb-api/internal/usecase/comments"
	"bmdb-api/internal/usecase/discover"
	"bmdb-api/internal/usecase/ratings"
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
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	if cfg.Auth.JWTSecret == "" {
		logger.Warn().Msg("api: SUPABASE_JWT_SECRET не задан, пишущие запросы будут отклоняться")
	}

	repoAdapter := repo.NewPostgres(pool)
	fetcher := repo.NewBreakerFetcher(repoAdapter, "postgres-discover", cfg.Breaker.Failures, cfg.Breaker.Timeout,
		logger.With().Str("component", "breaker").Logger())

	var (
		redisClient *redis.Client
		throttle    domain.WriteThrottle
	)
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к Redis")
		}
		defer redisClient.Close()
		throttle = cache.NewRedis(redisClient, "bmdb")
	} else {
		logger.Info().Msg("api: REDIS_ADDR не задан, лимит записей отключён")
	}

	activityQueue, closeQueue, err := queue.Open(cfg.Queues.Backend, redisClient, cfg.Queues.RabbitURL, cfg.Queues.Activity)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось открыть очередь активности")
	}
	defer closeQueue()
	publisher := queue.NewPublisher(activityQueue, logger.With().Str("component", "activity").Logger())

	api := httpapi.New(httpapi.Deps{
		Discover:        discover.NewService(fetcher, logger.With().Str("component", "discover").Logger()),
		Ratings:         ratings.NewService(repoAdapter, publisher, logger.With().Str("component", "ratings").Logger()),
		Comments:        comments.NewService(repoAdapter, publisher, logger.With().Str("component", "comments").Logger()),
		Auth:            httpinfra.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Audience),
		Throttle:        throttle,
		WritesPerMinute: cfg.Limits.WritesPerMinute,
		Health:          repoAdapter,
		Log:             logger.With().Str("component", "httpapi").Logger(),
	})

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger(), httpinfra.Options{
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		RateLimitRPM:       cfg.HTTP.RateLimitRPM,
	})
	api.Routes(server.Router, cfg.BasePath)

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка остановки сервера")
	}
}
