package auth

import "github.com/gofiber/fiber/v2"

// Locals keys holding the caller identity.
const (
	LocalUserID   = "user_id"
	LocalTenantID = "tenant_id"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uint64
	// TenantID is the tenant context of the request, 0 for none.
	TenantID uint64
}

// SetIdentity stores id in the request locals.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(LocalUserID, id.UserID)
	c.Locals(LocalTenantID, id.TenantID)
}

// IdentityFrom returns the caller stored by SetIdentity.
// ok is false when no authenticated user is attached to the request.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	userID, _ := c.Locals(LocalUserID).(uint64)
	if userID == 0 {
		return Identity{}, false
	}

	tenantID, _ := c.Locals(LocalTenantID).(uint64)

	return Identity{UserID: userID, TenantID: tenantID}, true
}
