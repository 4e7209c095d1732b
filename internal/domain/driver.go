package domain

import "strings"

// RoleDriver is the capability a directory identity needs to receive routes.
const RoleDriver = "driver"

// Driver is an identity from the driver directory.
type Driver struct {
	ID     string
	Name   string
	Active bool
	Roles  []string
}

func (d Driver) HasRole(role string) bool {
	for _, r := range d.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// Eligible reports whether the driver may be assigned a route.
func (d Driver) Eligible() bool {
	return d.Active && d.HasRole(RoleDriver)
}
