// api/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(code, gin.H{"error": message})
}

// GetActorFromContext returns the authenticated actor, or nil.
func GetActorFromContext(c *gin.Context) *model.Actor {
	actor, _ := model.ActorFromContext(c.Request.Context())
	return actor
}

// GetActorIDFromContext returns the authenticated actor's id, or "".
func GetActorIDFromContext(c *gin.Context) string {
	if actor := GetActorFromContext(c); actor != nil {
		return actor.ID
	}
	return ""
}
