package model

import (
	"errors"
	"sort"
	"strings"
)

// Role is one of the closed set of marketplace roles. Values outside
// the set are rejected at the boundary by ParseRole; nothing downstream
// should ever see a role string that is not one of these constants.
type Role string

const (
	RoleFarmer Role = "FARMER"
	RoleBuyer  Role = "BUYER"
	RoleAdmin  Role = "ADMIN"
)

// ErrUnknownRole is returned when a role string is not in the closed set.
var ErrUnknownRole = errors.New("unknown role")

// roleRank orders roles for picking a deterministic default when a user
// has several grants and no last active role yet.
var roleRank = map[Role]int{RoleFarmer: 0, RoleBuyer: 1, RoleAdmin: 2}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleFarmer, RoleBuyer, RoleAdmin:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

// RoleSet is the set of roles granted to an account. It is stored in the
// users table as a comma-separated string (see EncodeRoleSet).
type RoleSet []Role

// ParseRoleSet decodes a comma-separated role list, rejecting unknown
// values and duplicates-collapsing. An empty input yields an error: every
// account must hold at least one role.
func ParseRoleSet(s string) (RoleSet, error) {
	seen := map[Role]bool{}
	var out RoleSet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseRole(part)
		if err != nil {
			return nil, err
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty role set")
	}
	sort.Slice(out, func(i, j int) bool { return roleRank[out[i]] < roleRank[out[j]] })
	return out, nil
}

// EncodeRoleSet renders the set back to its stored form.
func EncodeRoleSet(rs RoleSet) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// Contains reports whether r is granted.
func (rs RoleSet) Contains(r Role) bool {
	for _, g := range rs {
		if g == r {
			return true
		}
	}
	return false
}

// Default returns the role a fresh session starts in when no last active
// role is recorded: the sole grant, or the lowest-ranked grant otherwise.
func (rs RoleSet) Default() Role {
	return rs[0]
}
