// Package rbac implements the role based access control engine: the
// permission catalog, roles, user to role assignments, the effective
// permission resolver, bulk assignment, permission matrix import/export and
// the audit trail of every change.
//
// All functionality hangs off Service. Tenant and project context are always
// passed explicitly; 0 means "no tenant" or "no project".
package rbac
