package activity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

const dedupeTTL = 24 * time.Hour

// Deduper выполняет fn не более одного раза для ключа.
type Deduper interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// Worker читает события активности и сохраняет их как бизнес-метрики.
type Worker struct {
	queue      domain.ActivityQueue
	store      domain.BusinessMetricRepo
	dedupe     Deduper
	log        zerolog.Logger
	retryDelay time.Duration
}

// NewWorker создаёт обработчик очереди. dedupe может быть nil.
func NewWorker(queue domain.ActivityQueue, store domain.BusinessMetricRepo, dedupe Deduper, logger zerolog.Logger) *Worker {
	return &Worker{queue: queue, store: store, dedupe: dedupe, log: logger, retryDelay: time.Second}
}

// Run обрабатывает очередь до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	for {
		event, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("activity: ошибка чтения очереди")
			w.sleep(ctx)
			continue
		}

		eventLog := w.log.With().Str("event_id", event.ID).Str("kind", string(event.Kind)).Logger()
		if err := w.Handle(ctx, event); err != nil {
			eventLog.Warn().Err(err).Msg("activity: не удалось сохранить событие, вернём в очередь")
			metrics.IncActivity(string(event.Kind), "failed")
			if ackErr := ack(false); ackErr != nil {
				eventLog.Error().Err(ackErr).Msg("activity: не удалось вернуть событие в очередь")
			}
			w.sleep(ctx)
			continue
		}
		if err := ack(true); err != nil {
			eventLog.Error().Err(err).Msg("activity: не удалось подтвердить событие")
		}
	}
}

// Handle сохраняет одно событие. Неизвестные типы пропускаются.
func (w *Worker) Handle(ctx context.Context, event domain.ActivityEvent) error {
	metric, ok := domain.BusinessMetricFromActivity(event)
	if !ok {
		w.log.Warn().Str("kind", string(event.Kind)).Msg("activity: неизвестный тип события, пропускаем")
		metrics.IncActivity(string(event.Kind), "skipped")
		return nil
	}
	record := func() error {
		return w.store.RecordBusinessMetric(ctx, metric)
	}
	var err error
	if w.dedupe != nil && event.ID != "" {
		err = w.dedupe.Once(ctx, "activity:"+event.ID, dedupeTTL, record)
	} else {
		err = record()
	}
	if err != nil {
		return err
	}
	metrics.IncActivity(string(event.Kind), "recorded")
	return nil
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.retryDelay):
	}
}
