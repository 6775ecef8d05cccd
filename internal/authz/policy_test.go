package authz

import (
	"testing"

	"github.com/musicclub/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw    string
		want   types.Role
		wantOK bool
	}{
		{raw: "admin", want: types.RoleAdmin, wantOK: true},
		{raw: "  Admin ", want: types.RoleAdmin, wantOK: true},
		{raw: "COMMITTEE", want: types.RoleCommittee, wantOK: true},
		{raw: "member\n", want: types.RoleMember, wantOK: true},
		{raw: " ผู้ดูแล ", want: types.RoleAdmin, wantOK: true},
		{raw: "กรรมการ", want: types.RoleCommittee, wantOK: true},
		{raw: "สมาชิก", want: types.RoleMember, wantOK: true},
		{raw: "", wantOK: false},
		{raw: "   ", wantOK: false},
		{raw: "superuser", wantOK: false},
		{raw: "ad min", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.raw)
		assert.Equal(t, tt.wantOK, ok, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin("admin"))
	assert.True(t, IsAdmin(" admin "))
	assert.False(t, IsAdmin("committee"))
	assert.False(t, IsAdmin("member"))
	assert.False(t, IsAdmin(""))
	assert.False(t, IsAdmin("root"))
}

func TestIsAdminOrCommittee(t *testing.T) {
	assert.True(t, IsAdminOrCommittee("admin"))
	assert.True(t, IsAdminOrCommittee("committee "))
	assert.False(t, IsAdminOrCommittee("member"))
	assert.False(t, IsAdminOrCommittee(""))
	assert.False(t, IsAdminOrCommittee("guest"))
}

func TestInSetFailsClosed(t *testing.T) {
	assert.False(t, InSet("admin"))
	assert.False(t, InSet("", types.RoleAdmin, types.RoleCommittee, types.RoleMember))
	assert.False(t, InSet("unknown", types.RoleAdmin, types.RoleCommittee, types.RoleMember))
	assert.True(t, InSet("member", types.RoleMember))
}

func TestAllow(t *testing.T) {
	staff := Allow(types.RoleAdmin, types.RoleCommittee)
	assert.True(t, staff("admin"))
	assert.True(t, staff("committee"))
	assert.False(t, staff("member"))

	for _, role := range []types.Role{"", "admin", "whatever"} {
		assert.True(t, Authenticated(role))
	}
}
