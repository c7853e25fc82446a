package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vidgen/backend/internal/infrastructure/auth"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTEmailKey   = "jwt_email"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// RequireAuth creates JWT authentication middleware. Requests without a
// valid bearer access token are rejected with 401.
func RequireAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Missing authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Missing token")
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			code, message := mapAuthError(err)
			abortUnauthorized(c, code, message)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTEmailKey, claims.Email)

		c.Next()
	}
}

func mapAuthError(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrInvalidTokenType):
		return "INVALID_TOKEN_TYPE", "Invalid token type"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "TOKEN_NOT_VALID", "Token is not yet valid"
	default:
		return "INVALID_TOKEN", "Invalid token"
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	if userID, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}
