package monitoring

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Pinger is anything with a liveness probe, typically the database
type Pinger interface {
	Health() error
}

// HealthHandler returns a gin handler reporting service and database health
func HealthHandler(serviceName string, db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := HealthStatusHealthy
		code := http.StatusOK
		checks := gin.H{}

		if db != nil {
			if err := db.Health(); err != nil {
				status = HealthStatusUnhealthy
				code = http.StatusServiceUnavailable
				checks["database"] = gin.H{"status": HealthStatusUnhealthy, "message": err.Error()}
			} else {
				checks["database"] = gin.H{"status": HealthStatusHealthy}
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"service":   serviceName,
			"timestamp": time.Now().UTC(),
			"checks":    checks,
		})
	}
}
