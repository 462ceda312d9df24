package middleware

import (
	"strings"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/config"
	"biblio-reserve/internal/core/domain"
	"biblio-reserve/internal/pkg/jwt"
	"biblio-reserve/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		// 1. Try to get token from cookie first
		accessToken = c.Cookies("access_token")

		// 2. If not in cookie, try Authorization header
		if accessToken == "" {
			authHeader := c.Get("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// 3. No token found
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 4. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 5. Set user info in context
		c.Locals("userID", claims.UserID)
		c.Locals("name", claims.Name)
		c.Locals("permissions", models.PermissionList(claims.Permissions))

		return c.Next()
	}
}

// RequirePermission creates permission-based authorization middleware
// Use for routes with no owner escape hatch; the handlers apply the
// owner-or-permission rule themselves where it exists
func RequirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		perms, ok := c.Locals("permissions").(models.PermissionList)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		if !perms.Has(perm) {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}

		return c.Next()
	}
}

// CallerID extracts the authenticated user ID from the request context
func CallerID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// CallerPermissions extracts the authenticated user's permissions
func CallerPermissions(c *fiber.Ctx) models.PermissionList {
	perms, _ := c.Locals("permissions").(models.PermissionList)
	return perms
}

// CanAct reports whether the current caller may perform action on the
// resource owned by ownerID
func CanAct(c *fiber.Ctx, action domain.Action, ownerID uint) bool {
	return domain.CanAct(CallerID(c), CallerPermissions(c), action, ownerID)
}
