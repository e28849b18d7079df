package auth

// Module is the catalog module holding the permissions that guard the admin API.
const Module = "rbac"

// Permission codes guarding the admin API. Each is Module + "." + action.
const (
	// PermViewPermissions allows listing the permission catalog.
	PermViewPermissions = "rbac.view_permissions"
	// PermCreatePermissions allows adding permissions to the catalog.
	PermCreatePermissions = "rbac.create_permissions"
	// PermDeletePermissions allows removing unreferenced permissions.
	PermDeletePermissions = "rbac.delete_permissions"

	PermViewRoles   = "rbac.view_roles"
	PermCreateRoles = "rbac.create_roles"
	PermUpdateRoles = "rbac.update_roles"
	PermDeleteRoles = "rbac.delete_roles"

	// PermViewAssignments allows reading effective permissions and role bindings of any user.
	PermViewAssignments = "rbac.view_assignments"
	// PermManageAssignments allows assigning and revoking roles, including bulk assignment.
	PermManageAssignments = "rbac.manage_assignments"

	PermViewAudit = "rbac.view_audit"

	PermExportMatrix = "rbac.export_matrix"
	PermImportMatrix = "rbac.import_matrix"
)

// Definition describes a guard permission for seeding the catalog.
type Definition struct {
	Action      string
	Description string
}

// Definitions returns every guard permission, in code order of declaration.
func Definitions() []Definition {
	return []Definition{
		{Action: "view_permissions", Description: "List the permission catalog"},
		{Action: "create_permissions", Description: "Add permissions to the catalog"},
		{Action: "delete_permissions", Description: "Delete unreferenced permissions"},
		{Action: "view_roles", Description: "List roles and their permissions"},
		{Action: "create_roles", Description: "Create roles"},
		{Action: "update_roles", Description: "Replace the permissions of a role"},
		{Action: "delete_roles", Description: "Delete roles and their assignments"},
		{Action: "view_assignments", Description: "Read role assignments and effective permissions"},
		{Action: "manage_assignments", Description: "Assign and revoke roles"},
		{Action: "view_audit", Description: "Read the RBAC audit log"},
		{Action: "export_matrix", Description: "Export the permission matrix"},
		{Action: "import_matrix", Description: "Validate and import the permission matrix"},
	}
}

// All returns every guard permission code.
func All() []string {
	defs := Definitions()
	out := make([]string, 0, len(defs))

	for _, d := range defs {
		out = append(out, Module+"."+d.Action)
	}

	return out
}
