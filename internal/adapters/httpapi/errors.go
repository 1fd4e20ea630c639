package httpapi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"bmdb-api/internal/domain"
	infrahttp "bmdb-api/internal/infra/http"
)

const (
	msgUnauthorized    = "Unauthorized"
	msgInvalidBody     = "Invalid request body"
	msgInvalidParams   = "Invalid request parameters"
	msgTooManyRequests = "Too many requests"
	msgInternal        = "Internal server error"
)

// writeDomainError переводит доменные ошибки в HTTP-ответ.
// fallback используется как сообщение для непредвиденных ошибок.
func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		verr      *domain.ValidationError
		rejection *domain.StoreRejection
	)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		infrahttp.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.As(err, &verr):
		infrahttp.WriteErrorDetails(w, http.StatusBadRequest, msgInvalidBody, verr.Fields)
	case errors.As(err, &rejection):
		a.log.Warn().Str("procedure", rejection.Op).Str("code", rejection.Code).Str("request_id", infrahttp.RequestID(r)).Msg(rejection.Message)
		infrahttp.WriteError(w, http.StatusBadRequest, rejection.Error())
	case errors.Is(err, domain.ErrRateLimited):
		infrahttp.WriteError(w, http.StatusTooManyRequests, msgTooManyRequests)
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", infrahttp.RequestID(r)).Msg("request failed")
		if fallback == "" {
			fallback = msgInternal
		}
		infrahttp.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

func writeParamError(w http.ResponseWriter, verr *domain.ValidationError) {
	infrahttp.WriteErrorDetails(w, http.StatusBadRequest, msgInvalidParams, verr.Fields)
}

// decodeBody читает JSON тело запроса. Ошибки разбора возвращаются как ValidationError.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.NewValidationError("body", "json", "request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &domain.ValidationError{Fields: []domain.FieldError{{
				Field:   typeErr.Field,
				Rule:    "type",
				Param:   typeErr.Type.String(),
				Message: "must be of type " + typeErr.Type.String(),
			}}}
		}
		return domain.NewValidationError("body", "json", "must be a valid JSON object")
	}
	return nil
}

// pathID достаёт UUID из параметра маршрута.
func pathID(raw, field string) (string, *domain.ValidationError) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.NewValidationError(field, "uuid", "must be a valid UUID")
	}
	return id.String(), nil
}

func limitBody(w http.ResponseWriter, r *http.Request) *http.Request {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	return r
}
