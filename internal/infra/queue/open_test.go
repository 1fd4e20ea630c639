package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestOpenNone(t *testing.T) {
	q, closeFn, err := Open("none", nil, "", "bmdb_activity")
	if err != nil || q != nil {
		t.Fatalf("ожидали nil очередь без ошибки, получили %v %v", q, err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestOpenRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	q, _, err := Open("Redis", client, "", "bmdb_activity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := q.(*RedisActivityQueue); !ok {
		t.Fatalf("ожидали RedisActivityQueue, получили %T", q)
	}
	if _, _, err := Open("redis", nil, "", "bmdb_activity"); err == nil {
		t.Fatalf("redis без клиента должен давать ошибку")
	}
}

func TestOpenRejects(t *testing.T) {
	if _, _, err := Open("kafka", nil, "", "bmdb_activity"); err == nil {
		t.Fatalf("неизвестный backend должен давать ошибку")
	}
	if _, _, err := Open("rabbitmq", nil, "", "bmdb_activity"); err == nil {
		t.Fatalf("rabbitmq без URL должен давать ошибку")
	}
}
