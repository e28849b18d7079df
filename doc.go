// Package main provides the entry point of the zenamanage RBAC service.
// It serves a JSON API over fiber for managing the permission catalog,
// roles and role assignments of the multi-tenant project management
// platform, resolves effective permissions and keeps an audit log of every
// change. Storage is gorm over MySQL, PostgreSQL or SQLite.
package main
