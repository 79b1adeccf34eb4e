// Package permissions implements project access-control resolution: decision
// queries over ownership, visibility, direct grants, and group grants, plus
// the mutations that keep the grant lists consistent.
package permissions

import (
	"context"
	"fmt"
	"time"

	"github.com/slatehq/slate/internal/models"
)

// ProjectStore is the slice of project persistence the engine needs.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	UpsertPermission(ctx context.Context, projectID string, perm *models.Permission) error
	RemovePermission(ctx context.Context, projectID, userID string) error
	UpsertGroupPermission(ctx context.Context, projectID string, perm *models.GroupPermission) error
	RemoveGroupPermission(ctx context.Context, projectID, groupID string) error
	SetVisibility(ctx context.Context, projectID string, visibility models.Visibility) error
}

// PrincipalDirectory resolves user ids and emails to identity attributes.
type PrincipalDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// GroupRegistry resolves group membership. Every group-aware decision query
// goes through it; if it fails, group-derived access is denied.
type GroupRegistry interface {
	GetByID(ctx context.Context, id string) (*models.Group, error)
	GroupsOwnedBy(ctx context.Context, userID string) ([]*models.Group, error)
	GroupsContaining(ctx context.Context, userID string) ([]*models.Group, error)
}

// Engine resolves and mutates project access control.
type Engine struct {
	projects ProjectStore
	users    PrincipalDirectory
	groups   GroupRegistry
}

// NewEngine creates a permission resolution engine.
func NewEngine(projects ProjectStore, users PrincipalDirectory, groups GroupRegistry) *Engine {
	return &Engine{
		projects: projects,
		users:    users,
		groups:   groups,
	}
}

// IsOwner returns true iff userID owns the project.
func (e *Engine) IsOwner(project *models.Project, userID string) bool {
	return project.OwnerID == userID
}

// UserGroups returns the union of groups the user owns and groups the user
// is a member of, deduplicated by id.
func (e *Engine) UserGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	owned, err := e.groups.GroupsOwnedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve owned groups: %w", err)
	}
	member, err := e.groups.GroupsContaining(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve member groups: %w", err)
	}

	seen := make(map[string]bool, len(owned))
	groups := make([]*models.Group, 0, len(owned)+len(member))
	for _, g := range owned {
		seen[g.ID] = true
		groups = append(groups, g)
	}
	for _, g := range member {
		if !seen[g.ID] {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// maxGroupRole returns the highest role granted to any of the user's groups
// on the project. Fails closed: an error resolving membership denies
// group-derived access.
func (e *Engine) maxGroupRole(ctx context.Context, project *models.Project, userID string) (models.Role, bool, error) {
	if len(project.GroupPermissions) == 0 {
		return "", false, nil
	}
	groups, err := e.UserGroups(ctx, userID)
	if err != nil {
		return "", false, err
	}

	var best models.Role
	found := false
	for _, g := range groups {
		grant := project.GroupGrant(g.ID)
		if grant == nil {
			continue
		}
		if !found {
			best = grant.Role
			found = true
			continue
		}
		best = models.MaxRole(best, grant.Role)
	}
	return best, found, nil
}

// CanAccess returns true if the user may view the project: ownership, public
// visibility, any direct grant, or any group grant.
func (e *Engine) CanAccess(ctx context.Context, project *models.Project, userID string) (bool, error) {
	if e.IsOwner(project, userID) {
		return true, nil
	}
	if project.Visibility == models.VisibilityPublic {
		return true, nil
	}
	if project.Grant(userID) != nil {
		return true, nil
	}
	_, found, err := e.maxGroupRole(ctx, project, userID)
	if err != nil {
		return false, err
	}
	return found, nil
}

// CanEdit returns true if the user may modify the project: ownership, a
// direct grant of editor or above, or a group grant of editor or above.
// Public visibility never implies edit.
func (e *Engine) CanEdit(ctx context.Context, project *models.Project, userID string) (bool, error) {
	if e.IsOwner(project, userID) {
		return true, nil
	}
	if grant := project.Grant(userID); grant != nil && grant.Role.AtLeast(models.RoleEditor) {
		return true, nil
	}
	role, found, err := e.maxGroupRole(ctx, project, userID)
	if err != nil {
		return false, err
	}
	return found && role.AtLeast(models.RoleEditor), nil
}

// UserRole returns the user's ownership or direct-grant role. Group-derived
// roles are not folded in; use EffectiveRole for the full picture.
func (e *Engine) UserRole(project *models.Project, userID string) (models.Role, bool) {
	if e.IsOwner(project, userID) {
		return models.RoleOwner, true
	}
	if grant := project.Grant(userID); grant != nil {
		return grant.Role, true
	}
	return "", false
}

// EffectiveRole returns the maximum role the user holds across ownership,
// direct grant, and all applicable group grants.
func (e *Engine) EffectiveRole(ctx context.Context, project *models.Project, userID string) (models.Role, bool, error) {
	var best models.Role
	found := false
	if direct, ok := e.UserRole(project, userID); ok {
		best = direct
		found = true
	}
	groupRole, ok, err := e.maxGroupRole(ctx, project, userID)
	if err != nil {
		return "", false, err
	}
	if ok {
		if found {
			best = models.MaxRole(best, groupRole)
		} else {
			best = groupRole
			found = true
		}
	}
	return best, found, nil
}

// RequireAccess loads the project and verifies view access.
// Returns ErrNotFound if the project does not exist, ErrForbidden if the
// check fails.
func (e *Engine) RequireAccess(ctx context.Context, projectID, userID string) (*models.Project, error) {
	return e.require(ctx, projectID, userID, e.CanAccess)
}

// RequireEdit loads the project and verifies edit access.
func (e *Engine) RequireEdit(ctx context.Context, projectID, userID string) (*models.Project, error) {
	return e.require(ctx, projectID, userID, e.CanEdit)
}

// RequireOwner loads the project and verifies ownership.
func (e *Engine) RequireOwner(ctx context.Context, projectID, userID string) (*models.Project, error) {
	project, err := e.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !e.IsOwner(project, userID) {
		return nil, ErrForbidden
	}
	return project, nil
}

func (e *Engine) require(ctx context.Context, projectID, userID string, check func(context.Context, *models.Project, string) (bool, error)) (*models.Project, error) {
	project, err := e.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	ok, err := check(ctx, project, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return project, nil
}

// GrantUser grants a role to the user identified by email, or updates the
// role in place if a grant already exists. Only the owner may grant, and
// never to themself.
func (e *Engine) GrantUser(ctx context.Context, projectID, ownerID, email string, role models.Role) (*models.Project, error) {
	if !role.Valid() {
		return nil, badRequest("invalid role")
	}

	project, err := e.RequireOwner(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}

	target, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, badRequest("no user with that email")
	}
	if target.ID == project.OwnerID {
		return nil, badRequest("cannot grant to self")
	}

	perm := &models.Permission{
		UserID:    target.ID,
		Email:     target.Email,
		Role:      role,
		GrantedAt: time.Now(),
		GrantedBy: ownerID,
	}
	if err := e.projects.UpsertPermission(ctx, projectID, perm); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// UpdateUserRole changes the role of an existing direct grant, preserving
// the grant metadata.
func (e *Engine) UpdateUserRole(ctx context.Context, projectID, ownerID, targetID string, role models.Role) (*models.Project, error) {
	if !role.Valid() {
		return nil, badRequest("invalid role")
	}

	project, err := e.RequireOwner(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}

	existing := project.Grant(targetID)
	if existing == nil {
		return nil, badRequest("no permission grant for user")
	}

	perm := &models.Permission{
		UserID:    existing.UserID,
		Email:     existing.Email,
		Role:      role,
		GrantedAt: existing.GrantedAt,
		GrantedBy: existing.GrantedBy,
	}
	if err := e.projects.UpsertPermission(ctx, projectID, perm); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// RevokeUser removes the direct grant for the target user.
func (e *Engine) RevokeUser(ctx context.Context, projectID, ownerID, targetID string) (*models.Project, error) {
	project, err := e.RequireOwner(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	if project.Grant(targetID) == nil {
		return nil, badRequest("no permission grant for user")
	}
	if err := e.projects.RemovePermission(ctx, projectID, targetID); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// GrantGroup grants a role to a group, or updates the role in place if a
// grant already exists.
func (e *Engine) GrantGroup(ctx context.Context, projectID, ownerID, groupID string, role models.Role) (*models.Project, error) {
	if !role.Valid() {
		return nil, badRequest("invalid role")
	}

	if _, err := e.RequireOwner(ctx, projectID, ownerID); err != nil {
		return nil, err
	}

	group, err := e.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, badRequest("group not found")
	}

	perm := &models.GroupPermission{
		GroupID:   groupID,
		Role:      role,
		GrantedAt: time.Now(),
		GrantedBy: ownerID,
	}
	if err := e.projects.UpsertGroupPermission(ctx, projectID, perm); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// UpdateGroupRole changes the role of an existing group grant.
func (e *Engine) UpdateGroupRole(ctx context.Context, projectID, ownerID, groupID string, role models.Role) (*models.Project, error) {
	if !role.Valid() {
		return nil, badRequest("invalid role")
	}

	project, err := e.RequireOwner(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}

	existing := project.GroupGrant(groupID)
	if existing == nil {
		return nil, badRequest("no permission grant for group")
	}

	perm := &models.GroupPermission{
		GroupID:   existing.GroupID,
		Role:      role,
		GrantedAt: existing.GrantedAt,
		GrantedBy: existing.GrantedBy,
	}
	if err := e.projects.UpsertGroupPermission(ctx, projectID, perm); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// RevokeGroup removes the grant for the group.
func (e *Engine) RevokeGroup(ctx context.Context, projectID, ownerID, groupID string) (*models.Project, error) {
	project, err := e.RequireOwner(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	if project.GroupGrant(groupID) == nil {
		return nil, badRequest("no permission grant for group")
	}
	if err := e.projects.RemoveGroupPermission(ctx, projectID, groupID); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// SetVisibility changes the project visibility. Any owner may set any of
// the three values at any time.
func (e *Engine) SetVisibility(ctx context.Context, projectID, ownerID string, visibility models.Visibility) (*models.Project, error) {
	if !visibility.Valid() {
		return nil, badRequest("invalid visibility")
	}
	if _, err := e.RequireOwner(ctx, projectID, ownerID); err != nil {
		return nil, err
	}
	if err := e.projects.SetVisibility(ctx, projectID, visibility); err != nil {
		return nil, err
	}
	return e.projects.GetByID(ctx, projectID)
}

// Collaborator is a direct grant augmented with display attributes.
type Collaborator struct {
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	GrantedAt time.Time   `json:"granted_at"`
}

// ProjectUsers lists the owner and direct collaborators of a project.
// Requires view access.
type ProjectUsers struct {
	Owner         *models.User   `json:"owner"`
	Collaborators []Collaborator `json:"collaborators"`
}

// Users returns the owner and resolved direct grants. Requires view access.
func (e *Engine) Users(ctx context.Context, projectID, requesterID string) (*ProjectUsers, error) {
	project, err := e.RequireAccess(ctx, projectID, requesterID)
	if err != nil {
		return nil, err
	}

	owner, err := e.users.GetByID(ctx, project.OwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrNotFound
	}

	result := &ProjectUsers{Owner: owner, Collaborators: []Collaborator{}}
	for _, p := range project.Permissions {
		c := Collaborator{
			UserID:    p.UserID,
			Email:     p.Email,
			Role:      p.Role,
			GrantedAt: p.GrantedAt,
		}
		if u, err := e.users.GetByID(ctx, p.UserID); err != nil {
			return nil, err
		} else if u != nil {
			c.Name = u.Name
			c.Email = u.Email
		}
		result.Collaborators = append(result.Collaborators, c)
	}
	return result, nil
}

// GroupGrant is a group grant augmented with group metadata.
type GroupGrant struct {
	GroupID     string      `json:"group_id"`
	Name        string      `json:"name"`
	MemberCount int         `json:"member_count"`
	Role        models.Role `json:"role"`
	GrantedAt   time.Time   `json:"granted_at"`
}

// Groups returns the project's group grants with group metadata.
// Requires view access.
func (e *Engine) Groups(ctx context.Context, projectID, requesterID string) ([]GroupGrant, error) {
	project, err := e.RequireAccess(ctx, projectID, requesterID)
	if err != nil {
		return nil, err
	}

	grants := []GroupGrant{}
	for _, gp := range project.GroupPermissions {
		gg := GroupGrant{
			GroupID:   gp.GroupID,
			Role:      gp.Role,
			GrantedAt: gp.GrantedAt,
		}
		if g, err := e.groups.GetByID(ctx, gp.GroupID); err != nil {
			return nil, err
		} else if g != nil {
			gg.Name = g.Name
			gg.MemberCount = g.MemberCount()
		}
		grants = append(grants, gg)
	}
	return grants, nil
}
