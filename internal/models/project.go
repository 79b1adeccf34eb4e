package models

import (
	"time"
)

// Visibility controls ungranted view access to a project.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// Valid returns true if the visibility is one of the known values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityPublic:
		return true
	}
	return false
}

// Permission is a direct role grant to a user on a project.
// At most one exists per (project, user) pair.
type Permission struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"` // denormalized for display
	Role      Role      `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by"`
}

// GroupPermission is a role grant to a group on a project.
// At most one exists per (project, group) pair.
type GroupPermission struct {
	GroupID   string    `json:"group_id"`
	Role      Role      `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by"`
}

// Project represents a project with its access-control state and content.
type Project struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	OwnerID          string            `json:"owner_id"` // immutable once set
	Visibility       Visibility        `json:"visibility"`
	Permissions      []Permission      `json:"permissions"`
	GroupPermissions []GroupPermission `json:"group_permissions"`
	Fields           []FieldValue      `json:"fields"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewProject creates a new private Project owned by ownerID.
func NewProject(name, description, ownerID string) *Project {
	now := time.Now()
	return &Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Visibility:  VisibilityPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Grant returns the direct grant for userID, or nil.
func (p *Project) Grant(userID string) *Permission {
	for i := range p.Permissions {
		if p.Permissions[i].UserID == userID {
			return &p.Permissions[i]
		}
	}
	return nil
}

// GroupGrant returns the group grant for groupID, or nil.
func (p *Project) GroupGrant(groupID string) *GroupPermission {
	for i := range p.GroupPermissions {
		if p.GroupPermissions[i].GroupID == groupID {
			return &p.GroupPermissions[i]
		}
	}
	return nil
}

// FieldValue returns the stored value for fieldID, or nil.
func (p *Project) FieldValue(fieldID string) *FieldValue {
	for i := range p.Fields {
		if p.Fields[i].FieldID == fieldID {
			return &p.Fields[i]
		}
	}
	return nil
}
