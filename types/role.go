package types

import "time"

// Role is a user's authorization level. Admin > Committee > Member.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCommittee Role = "committee"
	RoleMember    Role = "member"
)

// Roles lists every assignable role, highest first.
var Roles = []Role{RoleAdmin, RoleCommittee, RoleMember}

func (r Role) String() string {
	return string(r)
}

// RoleChange is one requested assignment in a role mutation.
type RoleChange struct {
	UserID int  `json:"id"`
	Role   Role `json:"role"`
}

// RoleChangeEvent describes an applied role change. It is published after commit.
type RoleChangeEvent struct {
	UserID    int       `json:"user_id"`
	OldRole   Role      `json:"old_role"`
	NewRole   Role      `json:"new_role"`
	ChangedBy int       `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}
