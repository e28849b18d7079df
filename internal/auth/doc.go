// Package auth guards the RBAC admin API with the RBAC engine itself.
//
// The caller identity (user and tenant) is attached to the request by the
// web identity middleware through SetIdentity. The guards then resolve the
// caller's effective permissions in that tenant with no project context:
//   - RequirePermission: Protect routes requiring a specific permission
//   - RequireAnyPermission: Protect routes requiring any of several permissions
//   - RequireAllPermissions: Protect routes requiring all of several permissions
//
// A request without identity is answered with 401, a missing permission with
// 403 and a failing check with 500.
//
// Example usage:
//
//	app.Get("/api/rbac/roles",
//	    auth.RequirePermission(rbacService, auth.PermViewRoles),
//	    handler,
//	)
//
// The guard permissions themselves are listed by All and seeded into the
// catalog by the daemon.
package auth
