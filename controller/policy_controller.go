// api/controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/api/middleware"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	"github.com/dev-mohitbeniwal/gatekeeper/api/service"
	"github.com/dev-mohitbeniwal/gatekeeper/api/util"
	helper_util "github.com/dev-mohitbeniwal/gatekeeper/api/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup, audits *middleware.AuditRoutes) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.POST("/bulk", pc.BulkCreatePolicies)
		policies.POST("/cache/reload", pc.ReloadCache)
		policies.PUT("/:id", pc.UpdatePolicy)
		policies.DELETE("/:id", pc.DeletePolicy)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("", pc.ListPolicies)
	}
	audits.Meta(policies, http.MethodPost, "/bulk", "bulk_create", "policy")
	audits.Meta(policies, http.MethodPost, "/cache/reload", "reload", "policy_cache")
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", errors.Join(gk_errors.ErrInvalidPolicyData, err))
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c.Request.Context(), policy, util.GetActorIDFromContext(c))
	if err != nil {
		respondPolicyError(c, err, "Failed to create policy")
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", errors.Join(gk_errors.ErrInvalidPolicyData, err))
		return
	}
	policy.ID = policyID

	updatedPolicy, err := pc.policyService.UpdatePolicy(c.Request.Context(), policy, util.GetActorIDFromContext(c))
	if err != nil {
		respondPolicyError(c, err, "Failed to update policy")
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	policyID := c.Param("id")

	if err := pc.policyService.DeletePolicy(c.Request.Context(), policyID, util.GetActorIDFromContext(c)); err != nil {
		respondPolicyError(c, err, "Failed to delete policy")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policy, err := pc.policyService.GetPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPolicyError(c, err, "Failed to retrieve policy")
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	policies, err := pc.policyService.ListPolicies(c.Request.Context(), limit, offset)
	if err != nil {
		respondPolicyError(c, err, "Failed to list policies")
		return
	}

	c.JSON(http.StatusOK, policies)
}

// BulkCreatePolicies endpoint
func (pc *PolicyController) BulkCreatePolicies(c *gin.Context) {
	var policies []model.Policy
	if err := c.ShouldBindJSON(&policies); err != nil || len(policies) == 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", errors.Join(gk_errors.ErrInvalidPolicyData, err))
		return
	}

	ids, err := pc.policyService.BulkCreatePolicies(c.Request.Context(), policies, util.GetActorIDFromContext(c))
	if err != nil {
		respondPolicyError(c, err, "Failed to create policies")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

// ReloadCache endpoint
func (pc *PolicyController) ReloadCache(c *gin.Context) {
	if err := pc.policyService.ReloadCache(c.Request.Context()); err != nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, "Policy store unavailable", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondPolicyError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, gk_errors.ErrInvalidPolicyData):
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, gk_errors.ErrInvalidPagination):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
	case errors.Is(err, gk_errors.ErrPolicyNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
	case errors.Is(err, gk_errors.ErrPolicyConflict):
		util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
	case errors.Is(err, gk_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, fallback, errors.Join(gk_errors.ErrInternalServer, err))
	}
}
