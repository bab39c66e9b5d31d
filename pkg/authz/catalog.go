package authz

// The role→permission matrix is fixed at compile time. Owners hold every
// permission; admins hold everything except billing and account settings;
// members hold only the assigned-scope permissions.

var memberPermissions = []Permission{
	PermissionViewAssignedProjects,
	PermissionEditAssignedProjects,
	PermissionViewAssignedTasks,
	PermissionEditAssignedTasks,
	PermissionViewAssignedReports,
}

var adminPermissions = append([]Permission{
	PermissionInviteTeamMembers,
	PermissionRemoveTeamMembers,
	PermissionChangeMemberRoles,
	PermissionViewTeamMembers,
	PermissionCreateProjects,
	PermissionEditAllProjects,
	PermissionDeleteAllProjects,
	PermissionViewAllProjects,
	PermissionCreateTasks,
	PermissionEditAllTasks,
	PermissionDeleteAllTasks,
	PermissionAssignTasks,
	PermissionViewAllTasks,
	PermissionViewAllReports,
}, memberPermissions...)

var ownerPermissions = append([]Permission{
	PermissionManageBilling,
	PermissionManageAccountSettings,
}, adminPermissions...)

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner:  permissionSet(ownerPermissions),
	RoleAdmin:  permissionSet(adminPermissions),
	RoleMember: permissionSet(memberPermissions),
}

func permissionSet(perms []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// PermissionsFor returns the full permission set for a role. An
// unrecognized role yields an empty set, never an error: the catalog fails
// closed.
func PermissionsFor(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// HasPermission reports whether the role holds the given permission.
// Unrecognized roles hold nothing.
func HasPermission(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// AllPermissions returns every permission known to the catalog.
func AllPermissions() []Permission {
	return []Permission{
		PermissionInviteTeamMembers,
		PermissionRemoveTeamMembers,
		PermissionChangeMemberRoles,
		PermissionViewTeamMembers,
		PermissionCreateProjects,
		PermissionEditAllProjects,
		PermissionDeleteAllProjects,
		PermissionViewAllProjects,
		PermissionEditAssignedProjects,
		PermissionViewAssignedProjects,
		PermissionCreateTasks,
		PermissionEditAllTasks,
		PermissionDeleteAllTasks,
		PermissionAssignTasks,
		PermissionViewAllTasks,
		PermissionEditAssignedTasks,
		PermissionViewAssignedTasks,
		PermissionManageBilling,
		PermissionManageAccountSettings,
		PermissionViewAllReports,
		PermissionViewAssignedReports,
	}
}
