// api/controller/audit_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/gatekeeper/api/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/api/middleware"
	"github.com/dev-mohitbeniwal/gatekeeper/api/util"
)

type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{auditService: auditService}
}

func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup, audits *middleware.AuditRoutes) {
	r.GET("/audit-records", ac.QueryRecords)
	audits.SensitiveRead(r, "/audit-records", "read")
}

// QueryRecords endpoint
func (ac *AuditController) QueryRecords(c *gin.Context) {
	var filter audit.AuditFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid audit filter", err)
		return
	}

	records, err := ac.auditService.QueryRecords(c.Request.Context(), filter)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit records", err)
		return
	}

	c.JSON(http.StatusOK, records)
}
