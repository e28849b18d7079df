package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Checker answers permission questions for a user in a project and tenant context.
// *rbac.Service implements it.
type Checker interface {
	UserHasPermission(ctx context.Context, userID uint64, code string, projectID, tenantID uint64) (bool, error)
	HasAnyPermission(ctx context.Context, userID uint64, codes []string, projectID, tenantID uint64) (bool, error)
	HasAllPermissions(ctx context.Context, userID uint64, codes []string, projectID, tenantID uint64) (bool, error)
}

type checkFunc func(ctx context.Context, id Identity) (bool, error)

// RequirePermission creates Fiber middleware that requires a specific permission.
func RequirePermission(checker Checker, permission string) fiber.Handler {
	return guard([]string{permission}, func(ctx context.Context, id Identity) (bool, error) {
		return checker.UserHasPermission(ctx, id.UserID, permission, 0, id.TenantID)
	})
}

// RequireAnyPermission creates Fiber middleware that requires at least one of the given permissions.
func RequireAnyPermission(checker Checker, permissions ...string) fiber.Handler {
	return guard(permissions, func(ctx context.Context, id Identity) (bool, error) {
		return checker.HasAnyPermission(ctx, id.UserID, permissions, 0, id.TenantID)
	})
}

// RequireAllPermissions creates Fiber middleware that requires all the given permissions.
func RequireAllPermissions(checker Checker, permissions ...string) fiber.Handler {
	return guard(permissions, func(ctx context.Context, id Identity) (bool, error) {
		return checker.HasAllPermissions(ctx, id.UserID, permissions, 0, id.TenantID)
	})
}

func guard(permissions []string, check checkFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Unauthenticated",
			})
		}

		allowed, err := check(c.UserContext(), id)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", id.UserID).Uint64("tenant_id", id.TenantID).
				Strs("permissions", permissions).Msg("failed to check permission")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal Server Error",
			})
		}

		if !allowed {
			log.Warn().Uint64("user_id", id.UserID).Uint64("tenant_id", id.TenantID).
				Strs("permissions", permissions).Msg("user lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Forbidden: You don't have permission to access this resource",
			})
		}

		return c.Next()
	}
}
