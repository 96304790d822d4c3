package errors

import (
	stderrors "errors"
	"net/http"
)

// MapToHTTPStatus translates domain sentinel errors into HTTP status codes
// for the account endpoints. Anything unrecognized is a server fault.
func MapToHTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
