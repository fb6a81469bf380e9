// api/middleware/tenant.go
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// TenantKey is the gin context key holding the resolved *model.TenantContext.
const TenantKey = "gatekeeper.tenant"

type TenantResolverService interface {
	ResolveTenantFromRequest(ctx context.Context, r *http.Request) (*model.TenantContext, error)
}

// TenantResolver attaches the request's tenant when one resolves. It never
// rejects a request: tenant-less access is left to the policies.
func TenantResolver(resolver TenantResolverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := resolver.ResolveTenantFromRequest(c.Request.Context(), c.Request)
		switch {
		case errors.Is(err, gk_errors.ErrTenantNotFound):
			logger.Debug("No active tenant for request", zap.String("path", c.Request.URL.Path))
		case err != nil:
			logger.Warn("Tenant resolution failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		case tc != nil:
			c.Set(TenantKey, tc)
			c.Request = c.Request.WithContext(model.WithTenant(c.Request.Context(), tc))
		}
		c.Next()
	}
}

// GetTenant returns the tenant resolved for the request, or nil.
func GetTenant(c *gin.Context) *model.TenantContext {
	tc, _ := model.TenantFromContext(c.Request.Context())
	return tc
}
