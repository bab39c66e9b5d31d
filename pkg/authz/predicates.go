package authz

// Access predicates are pure, total functions over resolved roles and
// resource facts. Every predicate denies on an unrecognized role or a
// missing fact; there is no implicit-allow branch anywhere in this file.

// CanManageUser reports whether a user holding managerRole may manage
// (remove, edit) a user holding targetRole. The owner is unmanageable by
// anyone; admins reach only members.
func CanManageUser(managerRole, targetRole Role) bool {
	if targetRole == RoleOwner {
		return false
	}
	switch managerRole {
	case RoleOwner:
		return targetRole == RoleAdmin || targetRole == RoleMember
	case RoleAdmin:
		return targetRole == RoleMember
	}
	return false
}

// CanAccessProject reports whether a requester with the given role may
// view or edit a project. Owners and admins reach every project in the
// account; members need an assignment or to be the creating account
// themselves.
func CanAccessProject(role Role, projectOwnerAccountID, requesterID int64, isAssigned bool) bool {
	switch role {
	case RoleOwner, RoleAdmin:
		return true
	case RoleMember:
		return isAssigned || projectOwnerAccountID == requesterID
	}
	return false
}

// CanAccessTask reports whether a requester may view or edit a task. The
// owner account id is the task's parent project's owning account; the
// assignment is the task's own.
func CanAccessTask(role Role, taskOwnerAccountID, requesterID int64, isAssigned bool) bool {
	switch role {
	case RoleOwner, RoleAdmin:
		return true
	case RoleMember:
		return isAssigned || taskOwnerAccountID == requesterID
	}
	return false
}

// CanChangeRole reports whether changerRole may move a member from
// currentRole to newRole. The owner's role is immutable, nobody can be
// promoted to owner, and only the owner may promote to admin.
func CanChangeRole(currentRole, newRole, changerRole Role) bool {
	if currentRole == RoleOwner {
		return false
	}
	if newRole != RoleAdmin && newRole != RoleMember {
		return false
	}
	switch changerRole {
	case RoleOwner:
		return true
	case RoleAdmin:
		return newRole == RoleMember
	}
	return false
}
