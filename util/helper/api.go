// api/util/helper/api.go
package helper_util

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 500
)

// GetPaginationParams reads limit and offset from the query string. A limit
// above MaxPageLimit is clamped; non-numeric values are rejected.
func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = cast.ToIntE(c.DefaultQuery("limit", fmt.Sprint(DefaultPageLimit)))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid limit: %w", err)
	}
	offset, err = cast.ToIntE(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset: %w", err)
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return limit, offset, nil
}
