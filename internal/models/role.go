package models

// Role represents a permission level on a project.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// roleRank defines the strict total order viewer < editor < owner.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// Valid returns true if the role is one of the known values.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast returns true if r ranks equal to or above other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// MaxRole returns the higher-ranked of two roles.
func MaxRole(a, b Role) Role {
	if roleRank[b] > roleRank[a] {
		return b
	}
	return a
}

// ParseRole converts a string to Role. Returns false for unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
