package enums

import (
	"fmt"
	"strings"
)

// Role identifies what a user account is allowed to do on the platform.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleFinanceManager   Role = "finance_manager"
	RoleDispatchManager  Role = "dispatch_manager"
	RoleRider            Role = "rider"
	RoleSupplier         Role = "supplier"
	RoleInventoryManager Role = "inventory_manager"
	RoleTechnician       Role = "technician"
	RoleCustomerService  Role = "customer_service"
	RoleCustomer         Role = "customer"
	// RoleSystem is never stored on a user; background jobs act under it.
	RoleSystem Role = "system"
)

var validRoles = []Role{
	RoleAdmin,
	RoleFinanceManager,
	RoleDispatchManager,
	RoleRider,
	RoleSupplier,
	RoleInventoryManager,
	RoleTechnician,
	RoleCustomerService,
	RoleCustomer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is an assignable user role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to an internal operator.
func (r Role) IsStaff() bool {
	switch r {
	case RoleCustomer, RoleSupplier, RoleRider, "":
		return false
	}
	return r.IsValid() || r == RoleSystem
}

// In reports whether r is one of the provided roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
