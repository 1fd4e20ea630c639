package discover

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// Snapshot содержит всё, что нужно агрегатору за один проход.
type Snapshot struct {
	Projects      []domain.Project
	Aggregates    map[string]domain.RatingAggregate
	CommentCounts map[string]int
	Activity      domain.ActivityScores
}

// Aggregate строит четыре витрины из снимка данных. Функция чистая: одинаковые снимок и now
// дают одинаковый результат.
func Aggregate(snapshot Snapshot, now time.Time) domain.DiscoverFeed {
	cards := ProjectCards(snapshot.Projects, snapshot.Aggregates, snapshot.CommentCounts)
	return domain.DiscoverFeed{
		Trending:   RankTrending(cards, snapshot.Activity),
		TopRated:   RankTopRated(cards),
		NewNotable: RankNewNotable(cards, now),
		Recent:     RankRecent(cards),
	}
}

// EmptyFeed возвращает ленту с пустыми (не nil) витринами.
func EmptyFeed() domain.DiscoverFeed {
	return domain.DiscoverFeed{
		Trending:   []domain.ProjectCard{},
		TopRated:   []domain.ProjectCard{},
		NewNotable: []domain.ProjectCard{},
		Recent:     []domain.ProjectCard{},
	}
}

// Service собирает данные для Discover и агрегирует их.
type Service struct {
	fetcher domain.DiscoveryFetcher
	log     zerolog.Logger
}

// NewService создаёт сервис витрин.
func NewService(fetcher domain.DiscoveryFetcher, logger zerolog.Logger) *Service {
	return &Service{fetcher: fetcher, log: logger}
}

// Build читает проекты и вспомогательные таблицы и возвращает витрины на момент now.
// Ошибкой завершается только чтение списка проектов.
func (s *Service) Build(ctx context.Context, now time.Time) (domain.DiscoverFeed, error) {
	start := time.Now()
	defer func() {
		metrics.DiscoverBuildSeconds.Observe(time.Since(start).Seconds())
	}()

	projects, err := s.fetcher.ListDiscoverableProjects(ctx)
	if err != nil {
		return domain.DiscoverFeed{}, fmt.Errorf("%w: список проектов: %w", domain.ErrFetchFailure, err)
	}
	if len(projects) == 0 {
		return EmptyFeed(), nil
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	since := now.UTC().AddDate(0, 0, -TrendingWindowDays)

	snapshot := Snapshot{Projects: projects}
	var g errgroup.Group
	g.Go(func() error {
		aggregates, err := s.fetcher.RatingAggregates(ctx, ids)
		snapshot.Aggregates = bestEffort(s.log, "rating_aggregates", aggregates, err)
		return nil
	})
	g.Go(func() error {
		counts, err := s.fetcher.VisibleCommentCounts(ctx, ids)
		snapshot.CommentCounts = bestEffort(s.log, "comment_counts", counts, err)
		return nil
	})
	g.Go(func() error {
		activity, err := s.fetcher.RecentActivity(ctx, ids, since)
		snapshot.Activity = bestEffort(s.log, "recent_activity", activity, err)
		return nil
	})
	_ = g.Wait()

	return Aggregate(snapshot, now), nil
}

// bestEffort подменяет результат вспомогательного чтения пустым значением при ошибке.
func bestEffort[T any](logger zerolog.Logger, source string, value T, err error) T {
	if err == nil {
		return value
	}
	var zero T
	logger.Warn().Err(err).Str("source", source).Msg("discover: вспомогательные данные недоступны, используем значения по умолчанию")
	metrics.DiscoverDegradedFetches.WithLabelValues(source).Inc()
	return zero
}
