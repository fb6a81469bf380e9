// api/middleware/access_guard.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
	"github.com/dev-mohitbeniwal/gatekeeper/api/service"
	"github.com/dev-mohitbeniwal/gatekeeper/api/util"
)

// ResourceKey is the gin context key under which an earlier handler may
// preload the *pdp_model.Resource a route acts on.
const ResourceKey = "gatekeeper.resource"

// AccessGuard asks the decision engine whether the actor may perform the
// request. Anonymous requests get 401 and denied ones 403.
func AccessGuard(access service.IAccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := util.GetActorFromContext(c)
		if actor == nil {
			util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", gk_errors.ErrUnauthorized)
			c.Abort()
			return
		}

		view := service.RequestView{
			Actor:     actor,
			PathID:    c.Param("id"),
			Method:    c.Request.Method,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if value, ok := c.Get(ResourceKey); ok {
			if resource, ok := value.(*pdp_model.Resource); ok {
				view.Resource = resource
			}
		}

		if !access.Authorize(c.Request.Context(), view) {
			util.RespondWithError(c, http.StatusForbidden, "Access denied", gk_errors.ErrAccessDenied)
			c.Abort()
			return
		}
		c.Next()
	}
}
