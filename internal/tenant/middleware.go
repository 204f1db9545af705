package tenant

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/auth"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// ContextTenant is the gin context key holding the resolved tenant.
// The tenant is fixed once attached; nothing re-resolves it mid-request.
const ContextTenant = "tenant_context"

// Middleware resolves the organization context for every request and
// rejects requests without a valid, live tenant
func Middleware(resolver interfaces.TenantResolver, cfg *config.TenantConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := resolver.Resolve(c.Request.Context(), signalsFromRequest(c, cfg))
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) {
				c.JSON(appErr.StatusCode(), gin.H{
					"error":   appErr.Code,
					"message": appErr.Message,
				})
			} else {
				log.WithError(err).Error("Tenant resolution failed")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   types.ErrCodeInternalError,
					"message": "An internal error occurred",
				})
			}
			c.Abort()
			return
		}

		c.Set(ContextTenant, tc)
		c.Next()
	}
}

// OptionalMiddleware resolves the tenant when possible and lets the
// request through with no tenant otherwise, for public endpoints
func OptionalMiddleware(resolver interfaces.TenantResolver, cfg *config.TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tc := resolver.ResolveOptional(c.Request.Context(), signalsFromRequest(c, cfg)); tc != nil {
			c.Set(ContextTenant, tc)
		}
		c.Next()
	}
}

// FromContext returns the resolved tenant context, or nil when the
// request carries none
func FromContext(c *gin.Context) *types.TenantContext {
	if v, exists := c.Get(ContextTenant); exists {
		if tc, ok := v.(*types.TenantContext); ok {
			return tc
		}
	}
	return nil
}

func signalsFromRequest(c *gin.Context, cfg *config.TenantConfig) *types.TenantSignals {
	return &types.TenantSignals{
		Claims:         auth.ClaimsFromContext(c),
		Host:           stripPort(c.Request.Host),
		HeaderOverride: c.GetHeader(cfg.OverrideHeader),
		QueryOverride:  c.Query(cfg.OverrideQueryParam),
	}
}
