// Package gate centralise l'autorisation par rôle. Chaque rôle porte un jeu
// statique de permissions "resource:action" ; les contrôles de périmètre
// (branche du cdc, région du dr) restent dans internal/services, ici on ne
// décide que du droit d'agir.
package gate

import (
	"strings"

	"github.com/hzerradi/formatrack/internal/models"
)

// Action describes the kind of operation an actor wants to perform.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionList    Action = "list"
	ActionApprove Action = "approve"
	ActionPromote Action = "promote"
	ActionRevert  Action = "revert"
)

// Permission au format "resource:action", ex: "formation:approve".
type Permission string

func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

const (
	wildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission covers a requested permission.
// Supports wildcards: "*:*" matches all, "formation:*" matches all formation actions.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act, ok := strings.Cut(string(p), ":")
	reqRes, _, reqOK := strings.Cut(string(requested), ":")
	return ok && reqOK && res == reqRes && act == wildcardAll
}

// rolePermissions is the static capability table. Le périmètre effectif
// (quelles formations) est raffiné par services.Scope.
var rolePermissions = map[models.RoleKind][]Permission{
	models.RoleAdmin: {PermissionSuperAdmin},
	models.RoleDrif: {
		"formation:*",
		"participant:*",
		"lookup:list", "lookup:view",
		"user:view", "user:list",
	},
	models.RoleCdc: {
		"formation:view", "formation:list", "formation:create", "formation:update",
		"formation:promote", "formation:approve", "formation:revert",
		"participant:view", "participant:list",
		"lookup:list", "lookup:view",
	},
	models.RoleDr: {
		"formation:view", "formation:list",
		"participant:view", "participant:list",
		"lookup:list", "lookup:view",
	},
	models.RoleAnimateur: {
		"formation:view", "formation:list",
		"participant:view", "participant:list",
		"lookup:list", "lookup:view",
	},
	models.RoleStagiaire: {
		"formation:view", "formation:list",
		"lookup:list", "lookup:view",
	},
}

// Can reports whether the role kind may perform action on resource.
func Can(kind models.RoleKind, action Action, resource string) bool {
	requested := NewPermission(resource, action)
	for _, p := range rolePermissions[kind] {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// Permissions returns the capability list of a role kind.
func Permissions(kind models.RoleKind) []Permission {
	perms := make([]Permission, len(rolePermissions[kind]))
	copy(perms, rolePermissions[kind])
	return perms
}
