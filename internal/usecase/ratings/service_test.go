package ratings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
)

type stubRepo struct {
	setCalls     int
	setRating    int
	setErr       error
	aggregate    domain.RatingAggregate
	aggregateErr error
	userRating   int
	userErr      error
	userCalls    int
	distribution map[int]int
	distErr      error
}

func (s *stubRepo) SetProjectRating(_ context.Context, _ domain.User, _ string, rating int) (string, error) {
	s.setCalls++
	s.setRating = rating
	if s.setErr != nil {
		return "", s.setErr
	}
	return "rating-1", nil
}

func (s *stubRepo) RatingAggregate(context.Context, string) (domain.RatingAggregate, error) {
	return s.aggregate, s.aggregateErr
}

func (s *stubRepo) UserRating(context.Context, string, string) (int, error) {
	s.userCalls++
	return s.userRating, s.userErr
}

func (s *stubRepo) RatingDistribution(context.Context, string) (map[int]int, error) {
	return s.distribution, s.distErr
}

type stubPublisher struct {
	events []domain.ActivityEvent
}

func (p *stubPublisher) Publish(_ context.Context, event domain.ActivityEvent) {
	p.events = append(p.events, event)
}

var viewer = domain.User{ID: "u-1", Role: domain.UserRoleAuthenticated}

func floatPtr(v float64) *float64 { return &v }

func TestRateStoresAndPublishes(t *testing.T) {
	repo := &stubRepo{}
	pub := &stubPublisher{}
	svc := NewService(repo, pub, zerolog.Nop())

	id, err := svc.Rate(context.Background(), viewer, "p-1", RateInput{Rating: floatPtr(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "rating-1" || repo.setRating != 0 {
		t.Fatalf("неожиданный результат: id=%s rating=%d", id, repo.setRating)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != domain.ActivityRatingSet || *pub.events[0].Rating != 0 {
		t.Fatalf("ожидали событие rating_set, получили %+v", pub.events)
	}
}

func TestRateValidation(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, zerolog.Nop())

	for _, input := range []RateInput{{}, {Rating: floatPtr(-1)}, {Rating: floatPtr(11)}, {Rating: floatPtr(7.5)}} {
		_, err := svc.Rate(context.Background(), viewer, "p-1", input)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ожидали ValidationError для %+v, получили %v", input, err)
		}
	}
	if repo.setCalls != 0 {
		t.Fatalf("невалидная оценка не должна доходить до БД")
	}
}

func TestRateAcceptsIntegralFloat(t *testing.T) {
	repo := &stubRepo{}
	pub := &stubPublisher{}
	svc := NewService(repo, pub, zerolog.Nop())

	if _, err := svc.Rate(context.Background(), viewer, "p-1", RateInput{Rating: floatPtr(7.0)}); err != nil {
		t.Fatalf("7.0 должна приниматься как 7: %v", err)
	}
	if repo.setRating != 7 || *pub.events[0].Rating != 7 {
		t.Fatalf("ожидали оценку 7, получили %d", repo.setRating)
	}
}

func TestRateRequiresUser(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, zerolog.Nop())
	if _, err := svc.Rate(context.Background(), domain.User{}, "p-1", RateInput{Rating: floatPtr(5)}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("ожидали ErrUnauthorized, получили %v", err)
	}
}

func TestRateStoreRejection(t *testing.T) {
	repo := &stubRepo{setErr: &domain.StoreRejection{Op: "set_project_rating", Message: "Project is not published"}}
	pub := &stubPublisher{}
	svc := NewService(repo, pub, zerolog.Nop())

	_, err := svc.Rate(context.Background(), viewer, "p-1", RateInput{Rating: floatPtr(7)})
	var rejection *domain.StoreRejection
	if !errors.As(err, &rejection) || rejection.Message != "Project is not published" {
		t.Fatalf("ожидали StoreRejection, получили %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("при отказе событие не публикуется")
	}
}

func TestSummaryAuthenticated(t *testing.T) {
	repo := &stubRepo{
		aggregate:    domain.RatingAggregate{ProjectID: "p-1", AvgRating: 7.5, RatingCount: 4},
		userRating:   9,
		distribution: map[int]int{9: 2, 6: 2},
	}
	svc := NewService(repo, nil, zerolog.Nop())

	summary := svc.Summary(context.Background(), "p-1", &viewer)
	if summary.Avg == nil || *summary.Avg != 7.5 || summary.Count != 4 {
		t.Fatalf("неожиданный агрегат: %+v", summary)
	}
	if summary.UserRating == nil || *summary.UserRating != 9 {
		t.Fatalf("ожидали собственную оценку 9")
	}
	if summary.Distribution[9] != 2 || summary.Distribution[6] != 2 {
		t.Fatalf("неожиданное распределение: %v", summary.Distribution)
	}
}

func TestSummaryAnonymousSkipsUserRating(t *testing.T) {
	repo := &stubRepo{aggregateErr: domain.ErrNotFound}
	svc := NewService(repo, nil, zerolog.Nop())

	summary := svc.Summary(context.Background(), "p-1", nil)
	if summary.Avg != nil || summary.Count != 0 || summary.UserRating != nil {
		t.Fatalf("ожидали пустой агрегат, получили %+v", summary)
	}
	if repo.userCalls != 0 {
		t.Fatalf("анонимный запрос не читает собственную оценку")
	}
	if summary.Distribution == nil {
		t.Fatalf("распределение должно быть пустым объектом, а не nil")
	}
}

func TestSummaryDegradesOnErrors(t *testing.T) {
	boom := errors.New("db down")
	repo := &stubRepo{aggregateErr: boom, userErr: boom, distErr: boom}
	svc := NewService(repo, nil, zerolog.Nop())

	summary := svc.Summary(context.Background(), "p-1", &viewer)
	if summary.Avg != nil || summary.Count != 0 || summary.UserRating != nil || len(summary.Distribution) != 0 {
		t.Fatalf("ошибки чтения должны давать значения по умолчанию: %+v", summary)
	}
}

func TestSummaryUserWithoutRating(t *testing.T) {
	repo := &stubRepo{userErr: domain.ErrNotFound}
	summary := NewService(repo, nil, zerolog.Nop()).Summary(context.Background(), "p-1", &viewer)
	if summary.UserRating != nil {
		t.Fatalf("ожидали null для пользователя без оценки")
	}
}
