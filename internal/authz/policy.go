// Package authz decides whether a role may pass an access gate.
//
// Every check normalizes the stored value first and fails closed: an empty,
// unknown, or malformed role never satisfies any gate.
package authz

import (
	"strings"

	"github.com/musicclub/apiserver/types"
)

// Predicate reports whether a role is allowed through a gate.
type Predicate func(role types.Role) bool

// legacyLabels maps the localized labels older rows were written with.
var legacyLabels = map[string]types.Role{
	"ผู้ดูแล": types.RoleAdmin,
	"กรรมการ": types.RoleCommittee,
	"สมาชิก":  types.RoleMember,
}

// Normalize trims surrounding whitespace and folds case.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseRole converts raw input into a known role.
func ParseRole(raw string) (types.Role, bool) {
	normalized := Normalize(raw)
	if role, ok := legacyLabels[normalized]; ok {
		return role, true
	}
	for _, role := range types.Roles {
		if normalized == string(role) {
			return role, true
		}
	}
	return "", false
}

// IsAdmin reports whether role is Admin.
func IsAdmin(role types.Role) bool {
	return InSet(role, types.RoleAdmin)
}

// IsAdminOrCommittee reports whether role is Admin or Committee.
func IsAdminOrCommittee(role types.Role) bool {
	return InSet(role, types.RoleAdmin, types.RoleCommittee)
}

// InSet reports whether role is one of allowed. An empty set allows nothing.
func InSet(role types.Role, allowed ...types.Role) bool {
	parsed, ok := ParseRole(string(role))
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if parsed == candidate {
			return true
		}
	}
	return false
}

// Allow builds a predicate for a fixed role set.
func Allow(allowed ...types.Role) Predicate {
	set := append([]types.Role(nil), allowed...)
	return func(role types.Role) bool {
		return InSet(role, set...)
	}
}

// Authenticated admits any principal regardless of role.
func Authenticated(types.Role) bool {
	return true
}
