// Package auth provides the identity middleware of the RBAC API.
//
// Authentication happens upstream. The gateway forwards the authenticated
// user in X-User-ID and the active tenant in X-Tenant-ID; the middleware
// validates both and stores them with auth.SetIdentity so that the
// permission guards and handlers can read them.
//
// Usage:
//
//	api := app.Group("/api/rbac", authmiddleware.Middleware)
package auth
