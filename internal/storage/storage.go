// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"

	"github.com/slatehq/slate/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates a default admin if no users exist.
	EnsureAdminUser() error

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Groups() GroupRepository
	Fields() FieldRepository
	Tokens() TokenRepository
}

// UserRepository is the principal directory: it resolves user ids and
// emails to identity attributes.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for projects and their
// access-control state. Loads return the project with its grant lists and
// field values attached.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	// List returns every project. Admin and operator tooling only; API
	// listings go through ListAccessible.
	List(ctx context.Context) ([]*models.Project, error)
	// ListAccessible returns projects the user owns, is directly granted on,
	// can reach through a group grant, or that are public.
	ListAccessible(ctx context.Context, userID string) ([]*models.Project, error)

	// Grant mutations are single-row upserts/deletes so concurrent grants to
	// different targets on the same project never clobber each other.
	UpsertPermission(ctx context.Context, projectID string, perm *models.Permission) error
	RemovePermission(ctx context.Context, projectID, userID string) error
	UpsertGroupPermission(ctx context.Context, projectID string, perm *models.GroupPermission) error
	RemoveGroupPermission(ctx context.Context, projectID, groupID string) error
	SetVisibility(ctx context.Context, projectID string, visibility models.Visibility) error

	SetFieldValues(ctx context.Context, projectID string, values []models.FieldValue) error
}

// GroupRepository is the group registry. Loads return groups with their
// member roster attached.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id string) (*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID string, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	GroupsOwnedBy(ctx context.Context, userID string) ([]*models.Group, error)
	GroupsContaining(ctx context.Context, userID string) ([]*models.Group, error)
}

// FieldRepository is the field registry: custom field definitions keyed by
// a stable normalized key.
type FieldRepository interface {
	Create(ctx context.Context, def *models.FieldDefinition) error
	GetByID(ctx context.Context, id string) (*models.FieldDefinition, error)
	GetByKey(ctx context.Context, key string) (*models.FieldDefinition, error)
	Update(ctx context.Context, def *models.FieldDefinition) error
	// Delete removes the definition; stored project values referencing it are
	// cascade-removed.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.FieldDefinition, error)
	ListActive(ctx context.Context) ([]*models.FieldDefinition, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
