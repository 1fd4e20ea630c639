package queue

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"bmdb-api/internal/domain"
)

const (
	BackendNone     = "none"
	BackendRedis    = "redis"
	BackendRabbitMQ = "rabbitmq"
)

// Open выбирает реализацию очереди активности по имени backend.
// Для none возвращает nil очередь без ошибки.
func Open(backend string, redisClient *redis.Client, rabbitURL, key string) (domain.ActivityQueue, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNone:
		return nil, noop, nil
	case BackendRedis:
		if redisClient == nil {
			return nil, noop, fmt.Errorf("queue: backend redis требует REDIS_ADDR")
		}
		return NewRedisActivityQueue(redisClient, key), noop, nil
	case BackendRabbitMQ:
		q, err := NewRabbitActivityQueue(rabbitURL, key)
		if err != nil {
			return nil, noop, err
		}
		return q, q.Close, nil
	default:
		return nil, noop, fmt.Errorf("queue: неизвестный backend %q", backend)
	}
}
