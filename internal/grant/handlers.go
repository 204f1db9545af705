package grant

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/auth"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// Handlers contains HTTP handlers for the access grant workflow
type Handlers struct {
	service interfaces.GrantService
	logger  *logger.Logger
}

// Middlewares are the request-pipeline pieces the routes are wired with
type Middlewares struct {
	RequireAuth  gin.HandlerFunc
	Tenant       gin.HandlerFunc
	TenantOption gin.HandlerFunc
	RateLimit    gin.HandlerFunc
}

// NewHandlers creates new access grant HTTP handlers
func NewHandlers(service interfaces.GrantService, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers the grant workflow routes with the router
func (h *Handlers) RegisterRoutes(router *gin.Engine, mw Middlewares) {
	v1 := router.Group("/api/v1")
	{
		// Doctor-facing routes
		requests := v1.Group("/access-requests")
		requests.Use(mw.RequireAuth, mw.Tenant)
		{
			requests.POST("", auth.RequireRole(types.RoleDoctor), mw.RateLimit, h.RequestAccess)
			requests.GET("", auth.RequireRole(types.RoleDoctor), h.ListMyRequests)
		}

		// Patient-facing tokened links arrive from email, unauthenticated.
		// Tokens ride in the path, never in query parameters, to keep them
		// out of referrer headers and access logs.
		decisions := v1.Group("/access-requests")
		decisions.Use(mw.TenantOption)
		{
			decisions.POST("/:id/approve/:token", h.ApproveGrant)
			decisions.POST("/:id/reject/:token", h.RejectGrant)
		}

		// Patient-facing authenticated routes
		patient := v1.Group("/patient/access-grants")
		patient.Use(mw.RequireAuth, mw.Tenant, auth.RequireRole(types.RolePatient))
		{
			patient.GET("", h.ListMyGrants)
			patient.POST("/:id/revoke", h.RevokeGrant)
		}
	}
}

// RequestAccess handles a doctor's cross-organization access request
func (h *Handlers) RequestAccess(c *gin.Context) {
	var input types.AccessRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.WithError(err).Debug("Invalid access request payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   types.ErrCodeInvalidInput,
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	claims := auth.ClaimsFromContext(c)
	grant, err := h.service.Request(c.Request.Context(), claims, &input, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Access request created; the patient has been asked to respond",
		"request": types.NewGrantView(grant, grant.CreatedAt),
	})
}

// ListMyRequests lists the authenticated doctor's own access requests
func (h *Handlers) ListMyRequests(c *gin.Context) {
	claims := auth.ClaimsFromContext(c)

	status := types.GrantStatus(c.Query("status"))
	views, err := h.service.ListForDoctor(c.Request.Context(), claims.UserID, status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": views,
		"count":    len(views),
	})
}

// ApproveGrant handles the patient's approval link
func (h *Handlers) ApproveGrant(c *gin.Context) {
	grant, err := h.service.Approve(c.Request.Context(), c.Param("id"), c.Param("token"), c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Access granted",
		"grant":   types.NewGrantView(grant, grant.UpdatedAt),
	})
}

// RejectGrant handles the patient's rejection link
func (h *Handlers) RejectGrant(c *gin.Context) {
	grant, err := h.service.Reject(c.Request.Context(), c.Param("id"), c.Param("token"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Access request rejected",
		"grant":   types.NewGrantView(grant, grant.UpdatedAt),
	})
}

// ListMyGrants lists grants against the authenticated patient
func (h *Handlers) ListMyGrants(c *gin.Context) {
	claims := auth.ClaimsFromContext(c)

	includeExpired := c.Query("include_expired") == "true"
	views, err := h.service.ListForPatient(c.Request.Context(), claims.UserID, includeExpired)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"grants": views,
		"count":  len(views),
	})
}

// RevokeGrant handles the patient's early termination of an approved grant
func (h *Handlers) RevokeGrant(c *gin.Context) {
	claims := auth.ClaimsFromContext(c)

	grant, err := h.service.Revoke(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Access grant revoked",
		"grant":   types.NewGrantView(grant, grant.UpdatedAt),
	})
}

// Helper methods

func (h *Handlers) handleError(c *gin.Context, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), gin.H{
			"error":   appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
		return
	}

	h.logger.WithError(err).Error("Internal server error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   types.ErrCodeInternalError,
		"message": "An internal error occurred",
	})
}
