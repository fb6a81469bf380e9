// api/errors/tenant_errors.go
package errors

import "errors"

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantRequired    = errors.New("tenant context required")
	ErrCrossTenantAccess = errors.New("cross-tenant access denied")
)
