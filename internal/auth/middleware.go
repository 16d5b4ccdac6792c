package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Middleware rejects requests without a valid bearer token and stores the
// token's claims on the context.
func Middleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		tokenString, err := ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid authorization header",
				"details": err.Error(),
			})
			return
		}

		claims, err := ValidateToken(cfg, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"details": err.Error(),
			})
			return
		}

		c.Set(claimsKey, claims)
		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}

// UserLookup is satisfied by store.UserRepository.
type UserLookup interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// RequireRole must run after Middleware. The role is read from users rather
// than the token, so demotions and deletions apply before the token expires.
func RequireRole(users UserLookup, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		user, err := users.Get(c.Request.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Account no longer exists",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to load account",
				"details": err.Error(),
			})
			return
		}

		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Access denied",
		})
	}
}

func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
