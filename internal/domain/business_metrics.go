package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	UserID     *string
	ProjectID  *string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventProjectRated фиксирует установку оценки.
	BusinessMetricEventProjectRated = "project_rated"
	// BusinessMetricEventCommentCreated фиксирует новый комментарий.
	BusinessMetricEventCommentCreated = "comment_created"
	// BusinessMetricEventCommentEdited фиксирует редактирование комментария.
	BusinessMetricEventCommentEdited = "comment_edited"
	// BusinessMetricEventCommentRemoved фиксирует скрытие комментария.
	BusinessMetricEventCommentRemoved = "comment_removed"
)

var activityMetricEvents = map[ActivityKind]string{
	ActivityRatingSet:      BusinessMetricEventProjectRated,
	ActivityCommentCreated: BusinessMetricEventCommentCreated,
	ActivityCommentEdited:  BusinessMetricEventCommentEdited,
	ActivityCommentRemoved: BusinessMetricEventCommentRemoved,
}

// BusinessMetricFromActivity переводит событие активности в бизнес-метрику.
// Для неизвестного типа события возвращает false.
func BusinessMetricFromActivity(event ActivityEvent) (BusinessMetric, bool) {
	name, ok := activityMetricEvents[event.Kind]
	if !ok {
		return BusinessMetric{}, false
	}
	metric := BusinessMetric{
		Event:      name,
		OccurredAt: event.OccurredAt,
		Metadata:   map[string]any{"event_id": event.ID},
	}
	if event.UserID != "" {
		userID := event.UserID
		metric.UserID = &userID
	}
	if event.ProjectID != "" {
		projectID := event.ProjectID
		metric.ProjectID = &projectID
	}
	if event.CommentID != "" {
		metric.Metadata["comment_id"] = event.CommentID
	}
	if event.Rating != nil {
		metric.Metadata["rating"] = *event.Rating
	}
	if event.Reason != nil {
		metric.Metadata["reason"] = *event.Reason
	}
	return metric, true
}

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
