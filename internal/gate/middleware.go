package gate

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/auth"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/tenant"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/monitoring"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// ContextGrant is the gin context key holding the effective cross-org
// access context after a hit
const ContextGrant = "cross_org_grant"

// PatientIDParam is the route parameter downstream record routes use for
// the patient identifier
const PatientIDParam = "patientId"

// SoftCheck attaches the effective access context when the calling doctor
// holds a live grant for the requested patient, and lets the request
// proceed either way. Downstream logic decides whether same-org or
// cross-org access applies.
//
// The underlying check increments the grant's access count, so the
// pipeline must run it at most once per request; RequireCrossOrgAccess
// reuses an already-attached context instead of checking again.
func SoftCheck(grants interfaces.GrantService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.ClaimsFromContext(c)
		if claims == nil || claims.Role != types.RoleDoctor {
			c.Next()
			return
		}

		patientID := patientIDFromRequest(c)
		if patientID == "" {
			c.Next()
			return
		}

		actx, err := grants.CheckActive(c.Request.Context(), claims.UserID, patientID)
		if err != nil {
			log.WithError(err).Warn("Cross-organization soft check failed")
			c.Next()
			return
		}

		if actx != nil {
			monitoring.RecordCrossOrgCheck("soft", "hit")
			c.Set(ContextGrant, actx)
		} else {
			monitoring.RecordCrossOrgCheck("soft", "miss")
		}

		c.Next()
	}
}

// RequireCrossOrgAccess is the hard gate: a miss terminates the request
// with a machine-readable reason and a hint pointing at the delegation
// workflow. Must run after authentication.
func RequireCrossOrgAccess(grants interfaces.GrantService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if FromContext(c) != nil {
			c.Next()
			return
		}

		claims := auth.ClaimsFromContext(c)
		patientID := patientIDFromRequest(c)

		if claims != nil && claims.Role == types.RoleDoctor && patientID != "" {
			actx, err := grants.CheckActive(c.Request.Context(), claims.UserID, patientID)
			if err != nil {
				log.WithError(err).Error("Cross-organization access check failed")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   types.ErrCodeInternalError,
					"message": "An internal error occurred",
				})
				c.Abort()
				return
			}
			if actx != nil {
				monitoring.RecordCrossOrgCheck("hard", "hit")
				c.Set(ContextGrant, actx)
				c.Next()
				return
			}
		}

		monitoring.RecordCrossOrgCheck("hard", "deny")
		c.JSON(http.StatusForbidden, gin.H{
			"error":   types.ErrCodeCrossOrgAccess,
			"message": "No active access grant for this patient; request access through the patient access workflow",
		})
		c.Abort()
	}
}

// FromContext returns the effective cross-org access context, or nil when
// the request carries none
func FromContext(c *gin.Context) *types.ActiveGrantContext {
	if v, exists := c.Get(ContextGrant); exists {
		if actx, ok := v.(*types.ActiveGrantContext); ok {
			return actx
		}
	}
	return nil
}

// EffectiveOrganizationID returns the tenant id downstream queries must be
// scoped to: the grant's patient organization when a cross-org context is
// present, the caller's own resolved tenant otherwise. This indirection
// lets an unmodified record module serve either same-tenant or delegated
// cross-tenant reads.
func EffectiveOrganizationID(c *gin.Context) string {
	if actx := FromContext(c); actx != nil {
		return actx.PatientOrganizationID
	}
	if tc := tenant.FromContext(c); tc != nil {
		return tc.Organization.ID
	}
	return ""
}

func patientIDFromRequest(c *gin.Context) string {
	if id := c.Param(PatientIDParam); id != "" {
		return id
	}
	if id := c.GetHeader("X-Patient-ID"); id != "" {
		return id
	}
	return c.Query("patient_id")
}
