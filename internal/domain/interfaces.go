package domain

import (
	"context"
	"time"
)

// DiscoveryFetcher читает из БД исходные данные для витрин Discover.
type DiscoveryFetcher interface {
	// ListDiscoverableProjects возвращает опубликованные, не удалённые проекты с датой публикации.
	ListDiscoverableProjects(ctx context.Context) ([]Project, error)
	RatingAggregates(ctx context.Context, projectIDs []string) (map[string]RatingAggregate, error)
	VisibleCommentCounts(ctx context.Context, projectIDs []string) (map[string]int, error)
	// RecentActivity считает оценки и видимые комментарии, созданные не раньше since.
	RecentActivity(ctx context.Context, projectIDs []string, since time.Time) (ActivityScores, error)
}

// RatingRepo управляет оценками проектов.
type RatingRepo interface {
	// SetProjectRating вызывает set_project_rating от имени пользователя и возвращает id оценки.
	SetProjectRating(ctx context.Context, user User, projectID string, rating int) (string, error)
	// RatingAggregate возвращает ErrNotFound, если у проекта ещё нет оценок.
	RatingAggregate(ctx context.Context, projectID string) (RatingAggregate, error)
	// UserRating возвращает ErrNotFound, если пользователь не оценивал проект.
	UserRating(ctx context.Context, projectID, userID string) (int, error)
	RatingDistribution(ctx context.Context, projectID string) (map[int]int, error)
}

// CommentRepo управляет комментариями проектов.
type CommentRepo interface {
	CreateProjectComment(ctx context.Context, user User, projectID, body string) (string, error)
	EditProjectComment(ctx context.Context, user User, commentID, body string) error
	RemoveProjectComment(ctx context.Context, user User, commentID string, reason *string) error
	// ListVisibleComments возвращает видимые комментарии по убыванию created_at, строго раньше before.
	ListVisibleComments(ctx context.Context, projectID string, before *time.Time, limit int) ([]Comment, error)
}

// WriteThrottle ограничивает частоту пишущих запросов.
type WriteThrottle interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
