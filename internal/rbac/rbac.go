package rbac

import "github.com/google/uuid"

// Role constants
const (
	RoleCreator = "creator"
	RoleBacker  = "backer"
)

// Permission constants
const (
	PermPledge   = "pledge"
	PermWithdraw = "withdraw"
	PermEditPage = "edit_page"
)

// RolePermissions defines what each role can do on a campaign.
var RolePermissions = map[string][]string{
	RoleCreator: {
		PermPledge, PermWithdraw, PermEditPage,
	},
	RoleBacker: {
		PermPledge,
		// Backer CANNOT: PermWithdraw, PermEditPage
	},
}

// RoleFor returns the caller's role on a campaign owned by creator.
func RoleFor(creator, caller uuid.UUID) string {
	if caller != uuid.Nil && caller == creator {
		return RoleCreator
	}
	return RoleBacker
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation checks if permission moves escrowed funds (creator-only).
func IsFinancialOperation(permission string) bool {
	return permission == PermWithdraw
}
