// api/errors/access_errors.go
package errors

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidToken = errors.New("invalid token")
)
