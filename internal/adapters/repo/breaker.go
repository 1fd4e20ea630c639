package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// BreakerFetcher защищает чтения Discover circuit breaker'ами.
// Список проектов и вспомогательные чтения идут через разные цепи:
// сбои агрегатов, счётчиков и активности не размыкают основной путь.
type BreakerFetcher struct {
	next      domain.DiscoveryFetcher
	cb        *gobreaker.CircuitBreaker[any]
	secondary *gobreaker.CircuitBreaker[any]
}

var _ domain.DiscoveryFetcher = (*BreakerFetcher)(nil)

// NewBreakerFetcher оборачивает fetcher. failures задаёт число подряд идущих ошибок до размыкания.
// Вспомогательная цепь называется name+"-secondary" и использует те же настройки.
func NewBreakerFetcher(next domain.DiscoveryFetcher, name string, failures uint32, timeout time.Duration, logger zerolog.Logger) *BreakerFetcher {
	if failures == 0 {
		failures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BreakerFetcher{
		next:      next,
		cb:        newBreaker(name, failures, timeout, logger),
		secondary: newBreaker(name+"-secondary", failures, timeout, logger),
	}
}

func newBreaker(name string, failures uint32, timeout time.Duration, logger zerolog.Logger) *gobreaker.CircuitBreaker[any] {
	metrics.DBBreakerState.WithLabelValues(name).Set(breakerStateValue(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// отмена клиентом не говорит о состоянии БД
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker: state changed")
			metrics.DBBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

// State возвращает состояние цепи списка проектов.
func (b *BreakerFetcher) State() gobreaker.State {
	return b.cb.State()
}

// SecondaryState возвращает состояние цепи вспомогательных чтений.
func (b *BreakerFetcher) SecondaryState() gobreaker.State {
	return b.secondary.State()
}

func (b *BreakerFetcher) ListDiscoverableProjects(ctx context.Context) ([]domain.Project, error) {
	return guarded(b.cb, func() ([]domain.Project, error) {
		return b.next.ListDiscoverableProjects(ctx)
	})
}

func (b *BreakerFetcher) RatingAggregates(ctx context.Context, projectIDs []string) (map[string]domain.RatingAggregate, error) {
	return guarded(b.secondary, func() (map[string]domain.RatingAggregate, error) {
		return b.next.RatingAggregates(ctx, projectIDs)
	})
}

func (b *BreakerFetcher) VisibleCommentCounts(ctx context.Context, projectIDs []string) (map[string]int, error) {
	return guarded(b.secondary, func() (map[string]int, error) {
		return b.next.VisibleCommentCounts(ctx, projectIDs)
	})
}

func (b *BreakerFetcher) RecentActivity(ctx context.Context, projectIDs []string, since time.Time) (domain.ActivityScores, error) {
	return guarded(b.secondary, func() (domain.ActivityScores, error) {
		return b.next.RecentActivity(ctx, projectIDs, since)
	})
}

func guarded[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
