// Package policy decides what an authenticated caller may do.
package policy

import "shoestore/internal/models"

// Role is the caller's role; the zero value is Client.
type Role int

const (
	RoleClient Role = iota
	RoleManager
	RoleAdministrator
)

// ParseRole maps a stored role name to a Role. Unknown or empty names are Client.
func ParseRole(name string) Role {
	switch name {
	case models.RoleAdministrator:
		return RoleAdministrator
	case models.RoleManager:
		return RoleManager
	default:
		return RoleClient
	}
}

// ParseRolePtr is ParseRole for a nullable role reference.
func ParseRolePtr(name *string) Role {
	if name == nil {
		return RoleClient
	}
	return ParseRole(*name)
}

func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return models.RoleAdministrator
	case RoleManager:
		return models.RoleManager
	default:
		return models.RoleClient
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// IsStaff reports whether the role is Administrator or Manager.
func (r Role) IsStaff() bool {
	return r == RoleAdministrator || r == RoleManager
}

func (r Role) CanMutateCatalog() bool {
	return r.IsStaff()
}

func (r Role) CanMutateOrderLifecycle() bool {
	return r.IsStaff()
}

// CanPlaceOrder is true only for clients; staff cannot order as customers.
func (r Role) CanPlaceOrder() bool {
	return r == RoleClient
}
