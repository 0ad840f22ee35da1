package enums

import (
	"fmt"
	"strings"
)

// Role identifies the caller's tier in the distribution chain.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
)

var validRoles = []Role{
	RoleAdmin,
	RoleDistributor,
	RoleRetailer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role. Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
