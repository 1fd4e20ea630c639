// Package httpapi публикует REST API BMDB поверх chi.
package httpapi

import (
	"context"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"bmdb-api/internal/domain"
	infrahttp "bmdb-api/internal/infra/http"
	"bmdb-api/internal/usecase/comments"
	"bmdb-api/internal/usecase/ratings"
)

// DiscoverBuilder строит витрины Discover.
type DiscoverBuilder interface {
	Build(ctx context.Context, now time.Time) (domain.DiscoverFeed, error)
}

// RatingsService управляет оценками.
type RatingsService interface {
	Rate(ctx context.Context, user domain.User, projectID string, input ratings.RateInput) (string, error)
	Summary(ctx context.Context, projectID string, user *domain.User) domain.RatingsSummary
}

// CommentsService управляет комментариями.
type CommentsService interface {
	Create(ctx context.Context, user domain.User, projectID string, input comments.BodyInput) (string, error)
	Edit(ctx context.Context, user domain.User, commentID string, input comments.BodyInput) error
	Remove(ctx context.Context, user domain.User, commentID, reason string) error
	List(ctx context.Context, projectID string, query comments.ListQuery) (domain.CommentPage, error)
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps перечисляет зависимости обработчиков.
type Deps struct {
	Discover DiscoverBuilder
	Ratings  RatingsService
	Comments CommentsService
	Auth     *infrahttp.Authenticator
	// Throttle может быть nil, тогда лимит записей не применяется.
	Throttle        domain.WriteThrottle
	WritesPerMinute int
	Health          Pinger
	Log             zerolog.Logger
	Now             func() time.Time
}

// API содержит обработчики REST API.
type API struct {
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

// New создаёт API.
func New(deps Deps) *API {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &API{deps: deps, log: deps.Log, now: now}
}

// Routes регистрирует маршруты под basePath и /healthz в корне.
func (a *API) Routes(r chi.Router, basePath string) {
	r.Get("/healthz", a.handleHealth)

	r.Route(basePath, func(r chi.Router) {
		r.Use(a.deps.Auth.Middleware)

		r.Get("/discover", a.handleDiscover)
		r.Get("/projects/{id}/ratings-summary", a.handleRatingsSummary)
		r.Get("/projects/{id}/comments", a.handleListComments)

		r.Group(func(r chi.Router) {
			r.Use(infrahttp.RequireUser)
			r.Use(a.throttleWrites)

			r.Post("/projects/{id}/rate", a.handleRate)
			r.Post("/projects/{id}/comments", a.handleCreateComment)
			r.Patch("/comments/{id}", a.handleEditComment)
			r.Delete("/comments/{id}", a.handleRemoveComment)
		})
	})
}
