package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// Publisher отправляет события активности в очередь.
// Ошибки очереди не влияют на ответ пользователю, они только логируются.
type Publisher struct {
	queue domain.ActivityQueue
	log   zerolog.Logger
	now   func() time.Time
}

var _ domain.ActivityPublisher = (*Publisher)(nil)

// NewPublisher создаёт публикатор. queue может быть nil, тогда события отбрасываются.
func NewPublisher(queue domain.ActivityQueue, logger zerolog.Logger) *Publisher {
	return &Publisher{queue: queue, log: logger, now: time.Now}
}

// Publish реализует domain.ActivityPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.ActivityEvent) {
	if p == nil || p.queue == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	if err := p.queue.Enqueue(context.WithoutCancel(ctx), event); err != nil {
		metrics.IncActivity(string(event.Kind), "publish_failed")
		p.log.Warn().Err(err).Str("kind", string(event.Kind)).Str("event_id", event.ID).Msg("activity: publish failed")
		return
	}
	metrics.IncActivity(string(event.Kind), "published")
}
