package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/validation"
)

// RateInput описывает тело запроса на оценку проекта.
// Оценка читается как число JSON: 7 и 7.0 равнозначны, дробная часть запрещена.
type RateInput struct {
	Rating *float64 `json:"rating" validate:"required,min=0,max=10,whole"`
}

// Value возвращает проверенную оценку как целое.
func (in RateInput) Value() int {
	if in.Rating == nil {
		return 0
	}
	return int(*in.Rating)
}

// Service управляет оценками проектов.
type Service struct {
	repo      domain.RatingRepo
	publisher domain.ActivityPublisher
	log       zerolog.Logger
}

// NewService создаёт сервис оценок. publisher может быть nil.
func NewService(repo domain.RatingRepo, publisher domain.ActivityPublisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, log: logger}
}

// Rate ставит или обновляет оценку пользователя и возвращает id записи.
func (s *Service) Rate(ctx context.Context, user domain.User, projectID string, input RateInput) (string, error) {
	if user.ID == "" {
		return "", domain.ErrUnauthorized
	}
	if err := validation.Struct(input); err != nil {
		return "", err
	}
	rating := input.Value()

	id, err := s.repo.SetProjectRating(ctx, user, projectID, rating)
	if err != nil {
		return "", fmt.Errorf("set rating: %w", err)
	}
	s.publish(ctx, domain.ActivityEvent{
		Kind:      domain.ActivityRatingSet,
		UserID:    user.ID,
		ProjectID: projectID,
		Rating:    &rating,
	})
	return id, nil
}

// Summary возвращает агрегат оценок проекта.
// Ошибки чтения не прерывают ответ: поле получает значение по умолчанию.
func (s *Service) Summary(ctx context.Context, projectID string, user *domain.User) domain.RatingsSummary {
	summary := domain.RatingsSummary{Distribution: map[int]int{}}

	aggregate, err := s.repo.RatingAggregate(ctx, projectID)
	switch {
	case err == nil:
		if aggregate.RatingCount > 0 {
			avg := aggregate.AvgRating
			summary.Avg = &avg
			summary.Count = aggregate.RatingCount
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		s.log.Warn().Err(err).Str("project_id", projectID).Msg("ratings: aggregate fetch failed")
	}

	if user != nil && user.ID != "" {
		rating, err := s.repo.UserRating(ctx, projectID, user.ID)
		switch {
		case err == nil:
			summary.UserRating = &rating
		case errors.Is(err, domain.ErrNotFound):
		default:
			s.log.Warn().Err(err).Str("project_id", projectID).Msg("ratings: user rating fetch failed")
		}
	}

	distribution, err := s.repo.RatingDistribution(ctx, projectID)
	if err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID).Msg("ratings: distribution fetch failed")
	} else if distribution != nil {
		summary.Distribution = distribution
	}
	return summary
}

func (s *Service) publish(ctx context.Context, event domain.ActivityEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}
