package gate

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
)

// Handlers exposes the cross-organization access context to clients and
// downstream record modules
type Handlers struct {
	grants interfaces.GrantService
	logger *logger.Logger
}

// NewHandlers creates new cross-org gate handlers
func NewHandlers(grants interfaces.GrantService, log *logger.Logger) *Handlers {
	return &Handlers{
		grants: grants,
		logger: log,
	}
}

// RegisterRoutes registers the gate routes with the router. The access
// context route is the pattern record-serving modules follow: soft check,
// then hard gate, then query against the effective organization.
func (h *Handlers) RegisterRoutes(router *gin.Engine, requireAuth, tenantMW gin.HandlerFunc) {
	v1 := router.Group("/api/v1")
	{
		patients := v1.Group("/patients/:" + PatientIDParam)
		patients.Use(requireAuth, tenantMW, SoftCheck(h.grants, h.logger))
		{
			patients.GET("/access-context",
				RequireCrossOrgAccess(h.grants, h.logger),
				h.AccessContext)
		}
	}
}

// AccessContext reports the effective access context a downstream query
// for this patient would run under
func (h *Handlers) AccessContext(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"grant":                     FromContext(c),
		"effective_organization_id": EffectiveOrganizationID(c),
	})
}
