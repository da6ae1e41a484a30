package middleware

import (
	"errors"
	"strings"
	"time"

	"storefront/internal/utils"
	"storefront/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by AuthRequired.
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// JWTClaims represents the JWT token claims issued by the storefront's
// account service.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and sets user context
func AuthRequired(secret string, log *logger.Logger) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))

		if err != nil || !token.Valid || claims.UserID == "" {
			if err == nil {
				err = errors.New("token carries no user id")
			}
			log.WithContext(c).LogSecurityEvent("invalid_token", "low", map[string]interface{}{
				"path":  c.FullPath(),
				"error": err.Error(),
				"ip":    c.ClientIP(),
			})
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// AdminRequired ensures the authenticated user carries the admin role
func AdminRequired(adminRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextUserRole)
		if !exists {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		if roleStr, ok := role.(string); !ok || roleStr != adminRole {
			utils.ForbiddenResponse(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID returns the authenticated user id, or "" outside AuthRequired.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// IssueToken signs claims with the shared secret. Used by tests and the
// operator CLI.
func IssueToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
