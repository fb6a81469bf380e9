// api/errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound         = errors.New("policy not found")
	ErrDatabaseOperation      = errors.New("database operation failed")
	ErrInvalidPolicyData      = errors.New("invalid policy data")
	ErrPolicyConflict         = errors.New("policy with this name already exists")
	ErrPolicyStoreUnavailable = errors.New("policy store unavailable")
	ErrInternalServer         = errors.New("internal server error")
	ErrInvalidPagination      = errors.New("invalid pagination parameters")
)
