package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleAssignmentEffectiveAt(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Hour)

	ra := RoleAssignment{Role: RoleOfficeUser, IsActive: true, ValidFrom: now.Add(-time.Hour)}
	assert.True(t, ra.EffectiveAt(now))

	ra.IsActive = false
	assert.False(t, ra.EffectiveAt(now))

	ra.IsActive = true
	ra.ValidFrom = now.Add(time.Minute)
	assert.False(t, ra.EffectiveAt(now), "assignment not yet valid")

	ra.ValidFrom = now.Add(-time.Hour)
	ra.ValidUntil = &until
	assert.True(t, ra.EffectiveAt(now))
	assert.False(t, ra.EffectiveAt(now.Add(2*time.Hour)), "assignment expired")
}

func TestUserEffectiveRolesDeduplicates(t *testing.T) {
	now := time.Now()
	officeA, officeB := int64(1), int64(2)

	user := &User{Roles: []RoleAssignment{
		{Role: RoleOfficeUser, OfficeID: &officeA, IsActive: true, ValidFrom: now.Add(-time.Hour)},
		{Role: RoleOfficeUser, OfficeID: &officeB, IsActive: true, ValidFrom: now.Add(-time.Hour)},
		{Role: RoleSupervisor, IsActive: false, ValidFrom: now.Add(-time.Hour)},
	}}

	roles := user.EffectiveRoles(now)
	assert.Equal(t, []Role{RoleOfficeUser}, roles)
}

func TestUserCanActOnOffice(t *testing.T) {
	now := time.Now()
	officeA := int64(1)

	officeUser := &User{Roles: []RoleAssignment{
		{Role: RoleOfficeUser, OfficeID: &officeA, IsActive: true, ValidFrom: now.Add(-time.Hour)},
	}}
	assert.True(t, officeUser.CanActOnOffice(now, 1, RoleOfficeUser))
	assert.False(t, officeUser.CanActOnOffice(now, 2, RoleOfficeUser), "office roles are scoped to their office")
	assert.False(t, officeUser.CanActOnOffice(now, 1, RoleAdmin))

	admin := &User{Roles: []RoleAssignment{
		{Role: RoleAdmin, IsActive: true, ValidFrom: now.Add(-time.Hour)},
	}}
	assert.True(t, admin.CanActOnOffice(now, 1, RoleAdmin))
	assert.True(t, admin.CanActOnOffice(now, 42, RoleAdmin), "admin is portal-wide")
}

func TestUserFullName(t *testing.T) {
	user := &User{FirstName: "Asha", LastName: "Verma"}
	assert.Equal(t, "Asha Verma", user.FullName())
}
