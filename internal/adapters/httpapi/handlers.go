package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"bmdb-api/internal/domain"
	infrahttp "bmdb-api/internal/infra/http"
	"bmdb-api/internal/infra/metrics"
	"bmdb-api/internal/usecase/comments"
	"bmdb-api/internal/usecase/ratings"
)

const maxBodyBytes = 64 << 10

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.deps.Health.Ping(ctx); err != nil {
			a.log.Warn().Err(err).Msg("healthz: store unavailable")
			infrahttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleDiscover(w http.ResponseWriter, r *http.Request) {
	feed, err := a.deps.Discover.Build(r.Context(), a.now())
	if err != nil {
		fallback := msgInternal
		if errors.Is(err, domain.ErrFetchFailure) {
			fallback = "Failed to fetch projects"
		}
		a.writeDomainError(w, r, err, fallback)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, feed)
}

func (a *API) handleRatingsSummary(w http.ResponseWriter, r *http.Request) {
	projectID, verr := pathID(chi.URLParam(r, "id"), "projectId")
	if verr != nil {
		writeParamError(w, verr)
		return
	}
	var viewer *domain.User
	if user, ok := infrahttp.UserFromContext(r.Context()); ok {
		viewer = &user
	}
	infrahttp.WriteJSON(w, http.StatusOK, a.deps.Ratings.Summary(r.Context(), projectID, viewer))
}

type rateResponse struct {
	ID     string `json:"id"`
	Rating int    `json:"rating"`
}

func (a *API) handleRate(w http.ResponseWriter, r *http.Request) {
	user, _ := infrahttp.UserFromContext(r.Context())
	projectID, verr := pathID(chi.URLParam(r, "id"), "projectId")
	if verr != nil {
		writeParamError(w, verr)
		return
	}
	var input ratings.RateInput
	if err := decodeBody(limitBody(w, r), &input); err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	id, err := a.deps.Ratings.Rate(r.Context(), user, projectID, input)
	if err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, rateResponse{ID: id, Rating: input.Value()})
}

type createdResponse struct {
	ID string `json:"id"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (a *API) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	user, _ := infrahttp.UserFromContext(r.Context())
	projectID, verr := pathID(chi.URLParam(r, "id"), "projectId")
	if verr != nil {
		writeParamError(w, verr)
		return
	}
	var input comments.BodyInput
	if err := decodeBody(limitBody(w, r), &input); err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	id, err := a.deps.Comments.Create(r.Context(), user, projectID, input)
	if err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	infrahttp.WriteJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (a *API) handleListComments(w http.ResponseWriter, r *http.Request) {
	projectID, verr := pathID(chi.URLParam(r, "id"), "projectId")
	if verr != nil {
		writeParamError(w, verr)
		return
	}
	query := comments.ListQuery{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  r.URL.Query().Get("limit"),
	}
	page, err := a.deps.Comments.List(r.Context(), projectID, query)
	if err != nil {
		var qerr *domain.ValidationError
		if errors.As(err, &qerr) {
			writeParamError(w, qerr)
			return
		}
		a.writeDomainError(w, r, err, "Failed to fetch comments")
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, page)
}

func (a *API) handleEditComment(w http.ResponseWriter, r *http.Request) {
	user, _ := infrahttp.UserFromContext(r.Context())
	commentID, verr := pathID(chi.URLParam(r, "id"), "commentId")
	if verr != nil {
		writeParamError(w, verr)
		return
	}
	var input comments.BodyInput
	if err := decodeBody(limitBody(w, r), &input); err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	if err := a.deps.Comments.Edit(r.Context(), user, commentID, input); err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (a *API) handleRemoveComment(w http.ResponseWriter, r *http.Request) {
	user, _ := infrahttp.UserFromContext(r.Context())
	commentID, verr := pathID(chi.URLParam(r, "id"), "commentId")
	if verr != nil {
		writeParamError(w, verr)
		return
	}
	if err := a.deps.Comments.Remove(r.Context(), user, commentID, r.URL.Query().Get("reason")); err != nil {
		a.writeDomainError(w, r, err, "")
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

// throttleWrites ограничивает число записей пользователя в минуту.
// Сбой хранилища лимитов не блокирует запрос.
func (a *API) throttleWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := infrahttp.UserFromContext(r.Context())
		if a.deps.Throttle == nil || a.deps.WritesPerMinute <= 0 || !user.Role.Throttled() {
			next.ServeHTTP(w, r)
			return
		}
		ok, err := a.deps.Throttle.Allow(r.Context(), "writes:"+user.ID, a.deps.WritesPerMinute, time.Minute)
		if err != nil {
			a.log.Warn().Err(err).Str("user_id", user.ID).Msg("throttle: check failed")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			metrics.WritesThrottled.Inc()
			a.writeDomainError(w, r, domain.ErrRateLimited, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
