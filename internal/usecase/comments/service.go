package comments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/validation"
)

const (
	// DefaultPageSize используется, если limit не передан.
	DefaultPageSize = 20
	// MaxPageSize ограничивает limit сверху.
	MaxPageSize = 100
)

// BodyInput описывает тело запроса на создание или редактирование комментария.
type BodyInput struct {
	Body string `json:"body" validate:"min=3,max=1500"`
}

// ListQuery хранит параметры страницы комментариев в исходном строковом виде.
type ListQuery struct {
	Cursor string
	Limit  string
}

// Service управляет комментариями проектов.
type Service struct {
	repo      domain.CommentRepo
	publisher domain.ActivityPublisher
	log       zerolog.Logger
}

// NewService создаёт сервис комментариев. publisher может быть nil.
func NewService(repo domain.CommentRepo, publisher domain.ActivityPublisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, log: logger}
}

// Create добавляет комментарий и возвращает его id.
func (s *Service) Create(ctx context.Context, user domain.User, projectID string, input BodyInput) (string, error) {
	if user.ID == "" {
		return "", domain.ErrUnauthorized
	}
	if err := validation.Struct(input); err != nil {
		return "", err
	}
	id, err := s.repo.CreateProjectComment(ctx, user, projectID, input.Body)
	if err != nil {
		return "", fmt.Errorf("create comment: %w", err)
	}
	s.publish(ctx, domain.ActivityEvent{
		Kind:      domain.ActivityCommentCreated,
		UserID:    user.ID,
		ProjectID: projectID,
		CommentID: id,
	})
	return id, nil
}

// Edit меняет текст комментария.
func (s *Service) Edit(ctx context.Context, user domain.User, commentID string, input BodyInput) error {
	if user.ID == "" {
		return domain.ErrUnauthorized
	}
	if err := validation.Struct(input); err != nil {
		return err
	}
	if err := s.repo.EditProjectComment(ctx, user, commentID, input.Body); err != nil {
		return fmt.Errorf("edit comment: %w", err)
	}
	s.publish(ctx, domain.ActivityEvent{
		Kind:      domain.ActivityCommentEdited,
		UserID:    user.ID,
		CommentID: commentID,
	})
	return nil
}

// Remove скрывает комментарий. Пустая причина сохраняется как NULL.
func (s *Service) Remove(ctx context.Context, user domain.User, commentID, reason string) error {
	if user.ID == "" {
		return domain.ErrUnauthorized
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.repo.RemoveProjectComment(ctx, user, commentID, reasonPtr); err != nil {
		return fmt.Errorf("remove comment: %w", err)
	}
	s.publish(ctx, domain.ActivityEvent{
		Kind:      domain.ActivityCommentRemoved,
		UserID:    user.ID,
		CommentID: commentID,
		Reason:    reasonPtr,
	})
	return nil
}

// List возвращает страницу видимых комментариев, новые первыми.
func (s *Service) List(ctx context.Context, projectID string, query ListQuery) (domain.CommentPage, error) {
	limit, before, err := parseListQuery(query)
	if err != nil {
		return domain.CommentPage{}, err
	}
	items, err := s.repo.ListVisibleComments(ctx, projectID, before, limit)
	if err != nil {
		return domain.CommentPage{}, fmt.Errorf("list comments: %w", err)
	}
	if items == nil {
		items = []domain.Comment{}
	}
	page := domain.CommentPage{Comments: items}
	if len(items) == limit {
		cursor := items[len(items)-1].CreatedAt.UTC().Format(time.RFC3339Nano)
		page.NextCursor = &cursor
	}
	return page, nil
}

func parseListQuery(query ListQuery) (int, *time.Time, error) {
	limit := DefaultPageSize
	if raw := strings.TrimSpace(query.Limit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, nil, domain.NewValidationError("limit", "integer", "must be an integer")
		}
		if n < 1 || n > MaxPageSize {
			return 0, nil, &domain.ValidationError{Fields: []domain.FieldError{{
				Field:   "limit",
				Rule:    "range",
				Param:   fmt.Sprintf("1..%d", MaxPageSize),
				Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize),
			}}}
		}
		limit = n
	}

	var before *time.Time
	if raw := strings.TrimSpace(query.Cursor); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return 0, nil, domain.NewValidationError("cursor", "timestamp", "must be an RFC3339 timestamp")
		}
		ts = ts.UTC()
		before = &ts
	}
	return limit, before, nil
}

func (s *Service) publish(ctx context.Context, event domain.ActivityEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}
