package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin              Role = "Admin"
	RoleSupervisor         Role = "Supervisor"
	RoleOfficeUser         Role = "OfficeUser"
	RoleDeliveryCenterUser Role = "DeliveryCenterUser"
)

// RoleAssignment scopes a role to an office or delivery center and carries an
// optional validity window. A user's effective roles are the active assignments
// whose window covers the current time.
type RoleAssignment struct {
	ID               int64      `json:"id"`
	Role             Role       `json:"role"`
	OfficeID         *int64     `json:"officeId,omitempty"`
	DeliveryCenterID *int64     `json:"deliveryCenterId,omitempty"`
	Permissions      []string   `json:"permissions"`
	IsActive         bool       `json:"isActive"`
	ValidFrom        time.Time  `json:"validFrom"`
	ValidUntil       *time.Time `json:"validUntil,omitempty"`
}

func (ra *RoleAssignment) EffectiveAt(t time.Time) bool {
	if !ra.IsActive {
		return false
	}
	if ra.ValidFrom.After(t) {
		return false
	}
	if ra.ValidUntil != nil && ra.ValidUntil.Before(t) {
		return false
	}
	return true
}

type User struct {
	ID            int64            `json:"id"`
	Email         string           `json:"email"`
	EmployeeID    string           `json:"employeeId"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	Phone         string           `json:"phone,omitempty"`
	Department    string           `json:"department"`
	PasswordHash  string           `json:"-"`
	IsActive      bool             `json:"isActive"`
	EmailVerified bool             `json:"emailVerified"`
	LastLoginAt   *time.Time       `json:"lastLoginAt,omitempty"`
	Roles         []RoleAssignment `json:"roles"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Version       int32            `json:"-"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// EffectiveRoles returns the distinct role names currently in effect. The
// result is what gets embedded into token claims.
func (u *User) EffectiveRoles(t time.Time) []Role {
	seen := make(map[Role]bool)
	roles := make([]Role, 0, len(u.Roles))
	for i := range u.Roles {
		ra := &u.Roles[i]
		if !ra.EffectiveAt(t) || seen[ra.Role] {
			continue
		}
		seen[ra.Role] = true
		roles = append(roles, ra.Role)
	}
	return roles
}

func (u *User) HasRole(t time.Time, role Role) bool {
	for i := range u.Roles {
		if u.Roles[i].Role == role && u.Roles[i].EffectiveAt(t) {
			return true
		}
	}
	return false
}

func (u *User) HasAnyRole(t time.Time, roles ...Role) bool {
	for _, role := range roles {
		if u.HasRole(t, role) {
			return true
		}
	}
	return false
}

// CanActOnOffice reports whether the user holds one of the given roles scoped
// to the office. Admin and Supervisor assignments are portal-wide; office-level
// roles must match the office they were assigned to.
func (u *User) CanActOnOffice(t time.Time, officeID int64, roles ...Role) bool {
	for i := range u.Roles {
		ra := &u.Roles[i]
		if !ra.EffectiveAt(t) {
			continue
		}
		for _, role := range roles {
			if ra.Role != role {
				continue
			}
			if ra.Role == RoleAdmin || ra.Role == RoleSupervisor {
				return true
			}
			if ra.OfficeID != nil && *ra.OfficeID == officeID {
				return true
			}
		}
	}
	return false
}
