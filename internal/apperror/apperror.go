package apperror

import "net/http"

type Code string

const (
	BadRequest  Code = "BAD_REQUEST"
	NotFound    Code = "NOT_FOUND"
	Internal    Code = "INTERNAL"
	Conflict    Code = "CONFLICT"
	UnsafeQuery Code = "UNSAFE_QUERY"
	QueryError  Code = "QUERY_ERROR"
)

type AppError struct {
	code    Code
	message string
}

func New(code Code, message string) *AppError {
	return &AppError{code: code, message: message}
}

func (e *AppError) Error() string   { return e.message }
func (e *AppError) Code() Code      { return e.code }
func (e *AppError) Message() string { return e.message }

// HTTPStatus distinguishes pre-execution rejections (UnsafeQuery, 400) from
// statements that passed the screen but failed at the store (QueryError, 422).
func (e *AppError) HTTPStatus() int {
	switch e.code {
	case BadRequest, UnsafeQuery:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case QueryError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
