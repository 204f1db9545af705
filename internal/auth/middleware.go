package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// ContextUserClaims is the gin context key holding the authenticated claims
const ContextUserClaims = "user_claims"

// RequireAuth validates the bearer token and attaches the caller's claims
// to the request context
func RequireAuth(validator *TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, errMsg := claimsFromHeader(c, validator)
		if errMsg != "" {
			log.WithComponent("auth").Debug("Rejected request: " + errMsg)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": errMsg})
			c.Abort()
			return
		}

		c.Set(ContextUserClaims, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// lets anonymous requests through untouched
func OptionalAuth(validator *TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, errMsg := claimsFromHeader(c, validator); errMsg == "" {
			c.Set(ContextUserClaims, claims)
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role differs from the required one.
// Must run after RequireAuth.
func RequireRole(role types.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil || claims.Role != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   types.ErrCodeForbidden,
				"message": "This endpoint requires the " + string(role) + " role",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the authenticated claims, or nil for
// anonymous requests
func ClaimsFromContext(c *gin.Context) *types.UserClaims {
	if v, exists := c.Get(ContextUserClaims); exists {
		if claims, ok := v.(*types.UserClaims); ok {
			return claims
		}
	}
	return nil
}

func claimsFromHeader(c *gin.Context, validator *TokenValidator) (*types.UserClaims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "Authorization header required"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "Invalid authorization header format"
	}

	claims, err := validator.Validate(parts[1])
	if err != nil {
		return nil, "Invalid token"
	}

	return claims, ""
}
