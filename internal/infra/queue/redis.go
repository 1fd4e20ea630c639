package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// RedisActivityQueue реализует очередь событий на базе Redis lists.
// Подтверждение не поддерживается: событие удаляется из списка при чтении.
type RedisActivityQueue struct {
	client *redis.Client
	key    string
}

var _ domain.ActivityQueue = (*RedisActivityQueue)(nil)

// NewRedisActivityQueue создаёт очередь по указанному ключу.
func NewRedisActivityQueue(client *redis.Client, key string) *RedisActivityQueue {
	return &RedisActivityQueue{client: client, key: key}
}

// Enqueue публикует событие в очередь.
func (q *RedisActivityQueue) Enqueue(ctx context.Context, event domain.ActivityEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

// Receive блокирующе читает событие из очереди.
func (q *RedisActivityQueue) Receive(ctx context.Context) (domain.ActivityEvent, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ActivityEvent{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.ActivityEvent{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.ActivityEvent{}, nil, err
		}
		if len(res) != 2 {
			return domain.ActivityEvent{}, nil, errors.New("redis queue: unexpected response")
		}
		event, err := decodeEvent([]byte(res[1]))
		if err != nil {
			return domain.ActivityEvent{}, nil, err
		}
		payload := res[1]
		ack := func(success bool) error {
			if success {
				return nil
			}
			// возвращаем событие в хвост, чтобы его забрал следующий Receive
			return q.client.RPush(context.WithoutCancel(ctx), q.key, payload).Err()
		}
		return event, ack, nil
	}
}
