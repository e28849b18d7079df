package auth

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

// Identity headers set by the gateway in front of the service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderTenantID = "X-Tenant-ID"
)

// Middleware attaches the caller identity from the identity headers.
// A missing or malformed X-User-ID is answered with 401, a malformed or
// reserved X-Tenant-ID with 400.
func Middleware(c *fiber.Ctx) error {
	userID, ok := parseID(c.Get(HeaderUserID))
	if !ok || userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "error",
			"message": "Unauthenticated",
		})
	}

	tenantID, ok := parseID(c.Get(HeaderTenantID))
	if !ok || tenantID == rbac.AnyTenant {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": HeaderTenantID + " must be a positive integer",
		})
	}

	auth.SetIdentity(c, auth.Identity{UserID: userID, TenantID: tenantID})

	return c.Next()
}

// parseID accepts an empty header as 0.
func parseID(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}
