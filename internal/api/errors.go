package api

import (
	"errors"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the backend, carrying the server's
// detail field when present.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

// IsAuthRequired reports whether err means the token is absent or
// rejected; the session must be dropped.
func IsAuthRequired(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// IsPasswordRequired reports whether err means the vault cache is cold
// and the operation needs the user's password.
func IsPasswordRequired(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(ae.Detail), "password")
}

// IsRateLimited reports whether the server itself refused for rate
// limiting; callers should reconcile immediately so the UI reflects truth.
func IsRateLimited(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusTooManyRequests
}
