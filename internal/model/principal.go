package model

import (
	"fmt"
	"strings"
)

// Role is the access level of an authenticated user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleViewer     Role = "viewer"
)

// ParseRole parses a role name case-insensitively.
func ParseRole(value string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(value)))
	switch r {
	case RoleAdmin, RolePharmacist, RoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

// Principal is the authenticated caller handed to lifecycle operations.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

func (p Principal) known() bool {
	switch p.Role {
	case RoleAdmin, RolePharmacist, RoleViewer:
		return p.UserID != ""
	}
	return false
}

// CanView reports whether p may read requisitions and reports.
func (p Principal) CanView() bool {
	return p.known()
}

// CanCreate reports whether p may create requisitions.
func (p Principal) CanCreate() bool {
	return p.known() && p.Role != RoleViewer
}

// CanModify reports whether p may change a requisition owned by ownerID.
func (p Principal) CanModify(ownerID string) bool {
	if !p.known() {
		return false
	}
	switch p.Role {
	case RoleAdmin:
		return true
	case RolePharmacist:
		return p.UserID == ownerID
	}
	return false
}
