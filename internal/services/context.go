package services

import (
	"context"
	"errors"
	"net/http"

	chatbridge_errors "chatbridge/pkg/errors"
)

type ctxKey string

var userIDKey ctxKey = "user_id"

func WithUserContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// HTTPStatus maps a service error onto the response status. Missing users and
// upstream failures both fall through to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, chatbridge_errors.ErrInvalidInput),
		errors.Is(err, chatbridge_errors.ErrAlreadyExists),
		errors.Is(err, chatbridge_errors.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, chatbridge_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, chatbridge_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, chatbridge_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
