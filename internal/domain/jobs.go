package domain

import (
	"context"
	"time"
)

// ActivityKind описывает тип пользовательской активности по проекту.
type ActivityKind string

const (
	// ActivityRatingSet: пользователь поставил или изменил оценку.
	ActivityRatingSet ActivityKind = "rating_set"
	// ActivityCommentCreated: пользователь оставил комментарий.
	ActivityCommentCreated ActivityKind = "comment_created"
	// ActivityCommentEdited: пользователь отредактировал комментарий.
	ActivityCommentEdited ActivityKind = "comment_edited"
	// ActivityCommentRemoved: комментарий скрыт автором или модератором.
	ActivityCommentRemoved ActivityKind = "comment_removed"
)

// ActivityEvent публикуется после успешной записи и обрабатывается activity-worker.
type ActivityEvent struct {
	ID         string       `json:"event_id"`
	Kind       ActivityKind `json:"kind"`
	UserID     string       `json:"user_id"`
	ProjectID  string       `json:"project_id,omitempty"`
	CommentID  string       `json:"comment_id,omitempty"`
	Rating     *int         `json:"rating,omitempty"`
	Reason     *string      `json:"reason,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ActivityQueue описывает очередь событий активности.
type ActivityQueue interface {
	Enqueue(ctx context.Context, event ActivityEvent) error
	Receive(ctx context.Context) (ActivityEvent, AckFunc, error)
}

// AckFunc подтверждает успешную обработку или запрашивает повтор доставки события.
type AckFunc func(success bool) error

// ActivityPublisher публикует события. Реализация должна быть безопасна для nil-очереди.
type ActivityPublisher interface {
	Publish(ctx context.Context, event ActivityEvent)
}
