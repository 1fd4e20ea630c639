package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized возвращается, если у запроса нет действительной сессии.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrFetchFailure возвращается, если основной источник данных недоступен.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrRateLimited возвращается, если пользователь превысил лимит записей.
	ErrRateLimited = errors.New("too many requests")
	// ErrNotFound возвращается, если запись отсутствует.
	ErrNotFound = errors.New("not found")
)

// FieldError описывает нарушение одного поля запроса.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError описывает невалидный запрос.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(parts, "; ")
}

// NewValidationError создаёт ошибку валидации для одного поля.
func NewValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule, Message: message}}}
}

// StoreRejection описывает доменную ошибку, которую вернула хранимая процедура.
type StoreRejection struct {
	Op      string
	Message string
	Code    string
}

func (e *StoreRejection) Error() string {
	if e.Message == "" {
		return e.Op + ": rejected by store"
	}
	return e.Message
}
