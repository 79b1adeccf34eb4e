package models

import (
	"time"
)

// GroupMember is a user's membership entry in a group.
type GroupMember struct {
	UserID  string    `json:"user_id"`
	AddedAt time.Time `json:"added_at"`
	AddedBy string    `json:"added_by"`
}

// Group represents a named set of users.
// The owner has implicit, non-revocable access and is never listed in Members.
type Group struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	OwnerID     string        `json:"owner_id"`
	Members     []GroupMember `json:"members"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewGroup creates a new Group owned by ownerID.
func NewGroup(name, description, ownerID string) *Group {
	now := time.Now()
	return &Group{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MemberCount returns the number of members, excluding the owner.
func (g *Group) MemberCount() int {
	return len(g.Members)
}

// HasMember returns true if userID is the owner or a listed member.
func (g *Group) HasMember(userID string) bool {
	if g.OwnerID == userID {
		return true
	}
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
