package middleware

import (
	"errors"
	"strings"

	"github.com/GuilhermeXavier08/mythic/common/auth"
	apperrors "github.com/GuilhermeXavier08/mythic/common/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
	RoleAdmin      = "admin"
)

// AuthMiddleware reads identity headers injected by the API gateway. Direct
// callers may present a Bearer access token instead.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")

		// Fallback to cookies (set by API gateway) if headers missing
		if rawID == "" {
			if v, err := c.Cookie("user_id"); err == nil && v != "" {
				rawID = v
			}
		}
		if role == "" {
			if v, err := c.Cookie("user_role"); err == nil && v != "" {
				role = v
			}
		}

		var userID uuid.UUID
		if rawID != "" {
			id, err := uuid.Parse(rawID)
			if err != nil {
				apperrors.Respond(c, apperrors.ErrUnauthorized)
				return
			}
			userID = id
		} else if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			claims, err := verifier.ParseAndValidateToken(token, "access")
			if err != nil {
				apperrors.Respond(c, apperrors.ErrUnauthorized)
				return
			}
			id, tokenRole, err := auth.Identity(claims)
			if err != nil {
				apperrors.Respond(c, apperrors.ErrUnauthorized)
				return
			}
			userID, role = id, tokenRole
		}

		if userID == uuid.Nil {
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(uuid.UUID); ok && id != uuid.Nil {
			return id, nil
		}
	}
	return uuid.Nil, errors.New("user ID not found in context")
}

// AdminOnly restricts access to admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(RoleContextKey)
		if !exists || role != RoleAdmin {
			apperrors.Respond(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
