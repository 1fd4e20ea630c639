package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// RabbitActivityQueue реализует очередь событий через AMQP.
// После обрыва соединения или канала следующий вызов переподключается.
type RabbitActivityQueue struct {
	url   string
	conn  *amqp.Connection
	queue string

	mu         sync.Mutex
	publishCh  *amqp.Channel
	consumeCh  *amqp.Channel
	deliveries <-chan amqp.Delivery
}

var _ domain.ActivityQueue = (*RabbitActivityQueue)(nil)

var errDeliveriesClosed = errors.New("rabbitmq: delivery channel closed")

// NewRabbitActivityQueue подключается к брокеру и объявляет durable очередь.
func NewRabbitActivityQueue(amqpURL, queue string) (*RabbitActivityQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitActivityQueue{url: amqpURL, conn: conn, queue: queue, publishCh: ch}, nil
}

// Enqueue публикует событие в очередь.
func (q *RabbitActivityQueue) Enqueue(ctx context.Context, event domain.ActivityEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, err := q.publishChannel()
	if err != nil {
		return err
	}
	start := time.Now()
	err = ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Receive блокирующе читает событие. Подтверждение выполняется через AckFunc.
func (q *RabbitActivityQueue) Receive(ctx context.Context) (domain.ActivityEvent, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.ActivityEvent{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.ActivityEvent{}, nil, ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				q.resetConsumer(deliveries)
				return domain.ActivityEvent{}, nil, errDeliveriesClosed
			}
			event, err := decodeEvent(delivery.Body)
			if err != nil {
				// битое сообщение не вернётся в очередь
				_ = delivery.Nack(false, false)
				return domain.ActivityEvent{}, nil, err
			}
			ack := func(success bool) error {
				if success {
					return delivery.Ack(false)
				}
				return delivery.Nack(false, true)
			}
			return event, ack, nil
		}
	}
}

func (q *RabbitActivityQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	if err := q.ensureConn(); err != nil {
		return nil, err
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.consumeCh = ch
	q.deliveries = deliveries
	return deliveries, nil
}

// resetConsumer забывает закрытую подписку, чтобы следующий Receive подписался заново.
func (q *RabbitActivityQueue) resetConsumer(closed <-chan amqp.Delivery) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != closed {
		return
	}
	if q.consumeCh != nil {
		_ = q.consumeCh.Close()
	}
	q.consumeCh = nil
	q.deliveries = nil
}

// publishChannel возвращает живой канал публикации. Вызывается под q.mu.
func (q *RabbitActivityQueue) publishChannel() (*amqp.Channel, error) {
	if q.publishCh != nil && !q.publishCh.IsClosed() {
		return q.publishCh, nil
	}
	if err := q.ensureConn(); err != nil {
		return nil, err
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q.publishCh = ch
	return ch, nil
}

// ensureConn переподключается к брокеру, если соединение закрыто. Вызывается под q.mu.
func (q *RabbitActivityQueue) ensureConn() error {
	if q.conn != nil && !q.conn.IsClosed() {
		return nil
	}
	if q.url == "" {
		return errors.New("amqp url is empty")
	}
	start := time.Now()
	conn, err := amqp.Dial(q.url)
	metrics.ObserveNetworkRequest("rabbitmq", "redial", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	// каналы старого соединения уже мертвы
	q.conn = conn
	q.publishCh = nil
	q.consumeCh = nil
	q.deliveries = nil
	return nil
}

// Close закрывает каналы и соединение.
func (q *RabbitActivityQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.consumeCh != nil {
		_ = q.consumeCh.Close()
	}
	if q.publishCh != nil {
		_ = q.publishCh.Close()
	}
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}
