package models

import "fmt"

// Role is a team-scoped permission level. The hierarchy is totally
// ordered: owner > admin > member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var roleRanks = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}

func (r Role) rank() int {
	return roleRanks[r]
}

// IsAtLeast reports whether r grants at least the permissions of other.
func (r Role) IsAtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// IsHigherThan reports whether r strictly outranks other.
func (r Role) IsHigherThan(other Role) bool {
	return r.rank() > other.rank()
}
