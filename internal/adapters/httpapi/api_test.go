package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
	infrahttp "bmdb-api/internal/infra/http"
	"bmdb-api/internal/usecase/comments"
	"bmdb-api/internal/usecase/discover"
	"bmdb-api/internal/usecase/ratings"
)

const (
	testSecret  = "super-secret-jwt-token-with-at-least-32-characters"
	testUserID  = "0b6f1a7e-3c55-4d8b-9a3e-5f1c2d3e4f50"
	projectID   = "5a0c3c8e-2f7d-4b1a-8e4f-0a1b2c3d4e5f"
	commentID   = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c7b6a"
	testBaseURL = "/api/bmdb"
)

type stubDiscover struct {
	feed domain.DiscoverFeed
	err  error
}

func (s *stubDiscover) Build(context.Context, time.Time) (domain.DiscoverFeed, error) {
	return s.feed, s.err
}

type stubRatingRepo struct {
	setErr     error
	lastRating int
	lastUser   domain.User
	userRating int
	userCalls  int
}

func (s *stubRatingRepo) SetProjectRating(_ context.Context, user domain.User, _ string, rating int) (string, error) {
	s.lastUser = user
	s.lastRating = rating
	return "rating-1", s.setErr
}

func (s *stubRatingRepo) RatingAggregate(context.Context, string) (domain.RatingAggregate, error) {
	return domain.RatingAggregate{AvgRating: 8, RatingCount: 2}, nil
}

func (s *stubRatingRepo) UserRating(context.Context, string, string) (int, error) {
	s.userCalls++
	return s.userRating, nil
}

func (s *stubRatingRepo) RatingDistribution(context.Context, string) (map[int]int, error) {
	return map[int]int{8: 2}, nil
}

type stubCommentRepo struct {
	writeErr error
	listErr  error
	reason   *string
	items    []domain.Comment
}

func (s *stubCommentRepo) CreateProjectComment(context.Context, domain.User, string, string) (string, error) {
	return "comment-1", s.writeErr
}

func (s *stubCommentRepo) EditProjectComment(context.Context, domain.User, string, string) error {
	return s.writeErr
}

func (s *stubCommentRepo) RemoveProjectComment(_ context.Context, _ domain.User, _ string, reason *string) error {
	s.reason = reason
	return s.writeErr
}

func (s *stubCommentRepo) ListVisibleComments(context.Context, string, *time.Time, int) ([]domain.Comment, error) {
	return s.items, s.listErr
}

type stubThrottle struct {
	allow bool
	err   error
	calls int
}

func (s *stubThrottle) Allow(context.Context, string, int, time.Duration) (bool, error) {
	s.calls++
	return s.allow, s.err
}

type fixture struct {
	discover *stubDiscover
	ratings  *stubRatingRepo
	comments *stubCommentRepo
	throttle *stubThrottle
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		discover: &stubDiscover{feed: discover.EmptyFeed()},
		ratings:  &stubRatingRepo{},
		comments: &stubCommentRepo{},
		throttle: &stubThrottle{allow: true},
	}
	api := New(Deps{
		Discover:        f.discover,
		Ratings:         ratings.NewService(f.ratings, nil, zerolog.Nop()),
		Comments:        comments.NewService(f.comments, nil, zerolog.Nop()),
		Auth:            infrahttp.NewAuthenticator(testSecret, "authenticated"),
		Throttle:        f.throttle,
		WritesPerMinute: 10,
		Log:             zerolog.Nop(),
	})
	r := chi.NewRouter()
	api.Routes(r, testBaseURL)
	f.router = r
	return f
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  testUserID,
		"role": "authenticated",
		"aud":  "authenticated",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func (f *fixture) do(t *testing.T, method, path, body string, auth bool) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, testBaseURL+path, reader)
	if auth {
		req.Header.Set("Authorization", bearer(t))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("ответ не JSON: %q", rec.Body.String())
		}
	}
	return rec, decoded
}

func TestDiscoverReturnsFourLists(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/discover", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	for _, key := range []string{"trending", "topRated", "newNotable", "recent"} {
		list, ok := body[key].([]any)
		if !ok || len(list) != 0 {
			t.Fatalf("ожидали пустой список %s, получили %v", key, body[key])
		}
	}
}

func TestDiscoverFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.discover.err = errors.Join(domain.ErrFetchFailure, errors.New("connection refused"))
	rec, body := f.do(t, http.MethodGet, "/discover", "", false)
	if rec.Code != http.StatusInternalServerError || body["error"] != "Failed to fetch projects" {
		t.Fatalf("ожидали 500 без подробностей, получили %d %v", rec.Code, body)
	}
}

func TestDiscoverUnexpectedError(t *testing.T) {
	f := newFixture(t)
	f.discover.err = errors.New("panic-ish")
	rec, body := f.do(t, http.MethodGet, "/discover", "", false)
	if rec.Code != http.StatusInternalServerError || body["error"] != "Internal server error" {
		t.Fatalf("ожидали общий 500, получили %d %v", rec.Code, body)
	}
}

func TestRateRequiresAuthBeforeValidation(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/rate", `{"rating": 99}`, false)
	if rec.Code != http.StatusUnauthorized || body["error"] != "Unauthorized" {
		t.Fatalf("ожидали 401, получили %d %v", rec.Code, body)
	}
	if f.throttle.calls != 0 {
		t.Fatalf("лимит не проверяется до аутентификации")
	}
}

func TestRateSuccess(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/rate", `{"rating": 8}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d %v", rec.Code, body)
	}
	if body["id"] != "rating-1" || body["rating"] != float64(8) {
		t.Fatalf("неожиданный ответ: %v", body)
	}
	if f.ratings.lastUser.ID != testUserID || f.ratings.lastRating != 8 {
		t.Fatalf("в БД передан неверный пользователь или оценка: %+v", f.ratings)
	}
}

func TestRateAcceptsIntegralFloat(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/rate", `{"rating": 7.0}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("7.0 должна приниматься как 7, получили %d %v", rec.Code, body)
	}
	if body["rating"] != float64(7) || f.ratings.lastRating != 7 {
		t.Fatalf("неожиданная оценка: %v %+v", body, f.ratings)
	}
}

func TestRateInvalidBody(t *testing.T) {
	f := newFixture(t)
	for _, payload := range []string{`{"rating": 11}`, `{"rating": -1}`, `{}`, `{"rating": 7.5}`, `{"rating": "7"}`, `not json`} {
		rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/rate", payload, true)
		if rec.Code != http.StatusBadRequest || body["error"] != "Invalid request body" {
			t.Fatalf("%s: ожидали 400 Invalid request body, получили %d %v", payload, rec.Code, body)
		}
		if _, ok := body["details"].([]any); !ok {
			t.Fatalf("%s: ожидали details, получили %v", payload, body)
		}
	}
}

func TestRateStoreRejection(t *testing.T) {
	f := newFixture(t)
	f.ratings.setErr = &domain.StoreRejection{Op: "set_project_rating", Message: "Project is not published"}
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/rate", `{"rating": 3}`, true)
	if rec.Code != http.StatusBadRequest || body["error"] != "Project is not published" {
		t.Fatalf("ожидали 400 с сообщением процедуры, получили %d %v", rec.Code, body)
	}
}

func TestRateStoreFailureIsGeneric(t *testing.T) {
	f := newFixture(t)
	f.ratings.setErr = errors.New("dial tcp: connection refused")
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/rate", `{"rating": 3}`, true)
	if rec.Code != http.StatusInternalServerError || body["error"] != "Internal server error" {
		t.Fatalf("ожидали общий 500, получили %d %v", rec.Code, body)
	}
}

func TestInvalidPathID(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/projects/not-a-uuid/rate", `{"rating": 3}`, true)
	if rec.Code != http.StatusBadRequest || body["error"] != "Invalid request parameters" {
		t.Fatalf("ожидали 400 для невалидного id, получили %d %v", rec.Code, body)
	}
}

func TestWritesThrottled(t *testing.T) {
	f := newFixture(t)
	f.throttle.allow = false
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/comments", `{"body": ""}`, true)
	if rec.Code != http.StatusTooManyRequests || body["error"] != "Too many requests" {
		t.Fatalf("ожидали 429 до валидации, получили %d %v", rec.Code, body)
	}
}

func TestThrottleFailureAllowsWrite(t *testing.T) {
	f := newFixture(t)
	f.throttle.err = errors.New("redis down")
	rec, _ := f.do(t, http.MethodPost, "/projects/"+projectID+"/comments", `{"body": "Хороший монтаж"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("сбой лимитера не должен блокировать запись, получили %d", rec.Code)
	}
}

func TestCreateComment(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/projects/"+projectID+"/comments", `{"body": "Хороший монтаж"}`, true)
	if rec.Code != http.StatusCreated || body["id"] != "comment-1" {
		t.Fatalf("ожидали 201 с id, получили %d %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodPost, "/projects/"+projectID+"/comments", `{"body": "ok"}`, true)
	if rec.Code != http.StatusBadRequest || body["error"] != "Invalid request body" {
		t.Fatalf("короткий текст должен давать 400, получили %d %v", rec.Code, body)
	}
}

func TestEditAndRemoveComment(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPatch, "/comments/"+commentID, `{"body": "Исправленный текст"}`, true)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("edit: ожидали success, получили %d %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodDelete, "/comments/"+commentID+"?reason=spam", "", true)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("delete: ожидали success, получили %d %v", rec.Code, body)
	}
	if f.comments.reason == nil || *f.comments.reason != "spam" {
		t.Fatalf("причина удаления не передана")
	}

	f.comments.writeErr = &domain.StoreRejection{Op: "remove_project_comment", Message: "Not allowed"}
	rec, body = f.do(t, http.MethodDelete, "/comments/"+commentID, "", true)
	if rec.Code != http.StatusBadRequest || body["error"] != "Not allowed" {
		t.Fatalf("delete: ожидали 400 с сообщением, получили %d %v", rec.Code, body)
	}
}

func TestListComments(t *testing.T) {
	f := newFixture(t)
	f.comments.items = []domain.Comment{{ID: "c1", Body: "abc", Status: domain.CommentStatusVisible, CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}

	rec, body := f.do(t, http.MethodGet, "/projects/"+projectID+"/comments?limit=1", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if body["nextCursor"] != "2026-10-01T00:00:00Z" {
		t.Fatalf("полная страница должна давать курсор, получили %v", body["nextCursor"])
	}

	rec, body = f.do(t, http.MethodGet, "/projects/"+projectID+"/comments", "", false)
	if rec.Code != http.StatusOK || body["nextCursor"] != nil {
		t.Fatalf("неполная страница: ожидали null курсор, получили %v", body["nextCursor"])
	}

	rec, _ = f.do(t, http.MethodGet, "/projects/"+projectID+"/comments?limit=500", "", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit вне диапазона должен давать 400, получили %d", rec.Code)
	}

	f.comments.listErr = errors.New("db down")
	rec, body = f.do(t, http.MethodGet, "/projects/"+projectID+"/comments", "", false)
	if rec.Code != http.StatusInternalServerError || body["error"] != "Failed to fetch comments" {
		t.Fatalf("ожидали 500 Failed to fetch comments, получили %d %v", rec.Code, body)
	}
}

func TestRatingsSummary(t *testing.T) {
	f := newFixture(t)
	f.ratings.userRating = 6

	rec, body := f.do(t, http.MethodGet, "/projects/"+projectID+"/ratings-summary", "", false)
	if rec.Code != http.StatusOK || body["avg"] != float64(8) || body["count"] != float64(2) || body["userRating"] != nil {
		t.Fatalf("анонимный summary: %d %v", rec.Code, body)
	}
	if f.ratings.userCalls != 0 {
		t.Fatalf("анонимный запрос не читает собственную оценку")
	}

	rec, body = f.do(t, http.MethodGet, "/projects/"+projectID+"/ratings-summary", "", true)
	if rec.Code != http.StatusOK || body["userRating"] != float64(6) {
		t.Fatalf("summary с токеном: %d %v", rec.Code, body)
	}
	dist, _ := body["distribution"].(map[string]any)
	if dist["8"] != float64(2) {
		t.Fatalf("неожиданное распределение: %v", body["distribution"])
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{{nil, http.StatusOK}, {errors.New("down"), http.StatusServiceUnavailable}} {
		api := New(Deps{Auth: infrahttp.NewAuthenticator(testSecret, ""), Health: stubPinger{err: tc.err}, Log: zerolog.Nop()})
		r := chi.NewRouter()
		api.Routes(r, testBaseURL)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != tc.code {
			t.Fatalf("ожидали %d, получили %d", tc.code, rec.Code)
		}
	}
}
