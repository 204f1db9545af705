package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// JWTClaims are the signed claims carried by an access token
type JWTClaims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id"`
	jwt.RegisteredClaims
}

// TokenValidator implements JWT token validation
type TokenValidator struct {
	cfg *config.JWTConfig
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(cfg *config.JWTConfig) *TokenValidator {
	return &TokenValidator{cfg: cfg}
}

// Validate validates a JWT token and returns user claims
func (tv *TokenValidator) Validate(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tv.cfg.SecretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	return &types.UserClaims{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           types.UserRole(claims.Role),
		OrganizationID: claims.OrganizationID,
	}, nil
}

// Generate signs an access token for the given claims
func (tv *TokenValidator) Generate(user *types.UserClaims) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:         user.UserID,
		Email:          user.Email,
		Role:           string(user.Role),
		OrganizationID: user.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tv.cfg.Issuer,
			Audience:  jwt.ClaimStrings{tv.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(tv.cfg.AccessTokenTTL) * time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tv.cfg.SecretKey))
}
