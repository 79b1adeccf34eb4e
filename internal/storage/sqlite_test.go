package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/slatehq/slate/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "slate-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")

	store := NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func createTestUser(t *testing.T, store *SQLiteStorage, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hashed-password",
		GlobalRole:   models.GlobalRoleMember,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createTestProject(t *testing.T, store *SQLiteStorage, ownerID string) *models.Project {
	t.Helper()
	project := models.NewProject("Test Project", "", ownerID)
	project.ID = uuid.New().String()
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tables := []string{
		"users", "projects", "project_permissions", "project_group_permissions",
		"groups", "group_members", "field_definitions", "project_field_values",
		"refresh_tokens", "schema_migrations",
	}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, store, "alice@example.com")

	got, err := store.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Email != "alice@example.com" {
		t.Fatalf("got %+v, want email alice@example.com", got)
	}

	got, err = store.Users().GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("got %+v, want id %s", got, user.ID)
	}

	got.Name = "Alice"
	got.UpdatedAt = time.Now()
	if err := store.Users().Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	count, err := store.Users().Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = store.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("user should be deleted")
	}
}

func TestProjectRepository_Grants(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	owner := createTestUser(t, store, "owner@example.com")
	collab := createTestUser(t, store, "collab@example.com")
	project := createTestProject(t, store, owner.ID)

	grantedAt := time.Now().Add(-time.Hour)
	perm := &models.Permission{
		UserID:    collab.ID,
		Email:     collab.Email,
		Role:      models.RoleViewer,
		GrantedAt: grantedAt,
		GrantedBy: owner.ID,
	}
	if err := store.Projects().UpsertPermission(ctx, project.ID, perm); err != nil {
		t.Fatalf("upsert permission: %v", err)
	}

	// Upsert again with a new role; granted_at must survive.
	perm2 := &models.Permission{
		UserID:    collab.ID,
		Email:     collab.Email,
		Role:      models.RoleEditor,
		GrantedAt: time.Now(),
		GrantedBy: owner.ID,
	}
	if err := store.Projects().UpsertPermission(ctx, project.ID, perm2); err != nil {
		t.Fatalf("upsert permission again: %v", err)
	}

	got, err := store.Projects().GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(got.Permissions) != 1 {
		t.Fatalf("permissions = %d, want 1", len(got.Permissions))
	}
	if got.Permissions[0].Role != models.RoleEditor {
		t.Errorf("role = %s, want editor", got.Permissions[0].Role)
	}
	if !got.Permissions[0].GrantedAt.Before(time.Now().Add(-30 * time.Minute)) {
		t.Error("granted_at should be preserved on upsert")
	}

	if err := store.Projects().RemovePermission(ctx, project.ID, collab.ID); err != nil {
		t.Fatalf("remove permission: %v", err)
	}
	if err := store.Projects().RemovePermission(ctx, project.ID, collab.ID); err == nil {
		t.Error("removing a missing permission should fail")
	}
}

func TestProjectRepository_ListAccessible(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	owner := createTestUser(t, store, "owner@example.com")
	member := createTestUser(t, store, "member@example.com")
	outsider := createTestUser(t, store, "outsider@example.com")

	owned := createTestProject(t, store, owner.ID)

	public := models.NewProject("Public Project", "", outsider.ID)
	public.ID = uuid.New().String()
	public.Visibility = models.VisibilityPublic
	if err := store.Projects().Create(ctx, public); err != nil {
		t.Fatalf("create public project: %v", err)
	}

	// Grant via group membership.
	group := models.NewGroup("Team", "", owner.ID)
	group.ID = uuid.New().String()
	if err := store.Groups().Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := store.Groups().AddMember(ctx, group.ID, &models.GroupMember{
		UserID: member.ID, AddedAt: time.Now(), AddedBy: owner.ID,
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := store.Projects().UpsertGroupPermission(ctx, owned.ID, &models.GroupPermission{
		GroupID: group.ID, Role: models.RoleViewer, GrantedAt: time.Now(), GrantedBy: owner.ID,
	}); err != nil {
		t.Fatalf("grant group: %v", err)
	}

	projects, err := store.Projects().ListAccessible(ctx, member.ID)
	if err != nil {
		t.Fatalf("list accessible: %v", err)
	}
	ids := map[string]bool{}
	for _, p := range projects {
		ids[p.ID] = true
	}
	if !ids[owned.ID] {
		t.Error("member should see project via group grant")
	}
	if !ids[public.ID] {
		t.Error("member should see public project")
	}

	projects, err = store.Projects().ListAccessible(ctx, outsider.ID)
	if err != nil {
		t.Fatalf("list accessible outsider: %v", err)
	}
	for _, p := range projects {
		if p.ID == owned.ID {
			t.Error("outsider should not see private project")
		}
	}
}

func TestFieldRepository_DeleteCascadesValues(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	owner := createTestUser(t, store, "owner@example.com")
	project := createTestProject(t, store, owner.ID)

	def := models.NewFieldDefinition("Budget", models.FieldTypeNumber)
	def.ID = uuid.New().String()
	if err := store.Fields().Create(ctx, def); err != nil {
		t.Fatalf("create field definition: %v", err)
	}

	if err := store.Projects().SetFieldValues(ctx, project.ID, []models.FieldValue{
		{FieldID: def.ID, Value: float64(500)},
	}); err != nil {
		t.Fatalf("set field values: %v", err)
	}

	got, err := store.Projects().GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(got.Fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(got.Fields))
	}
	if v, ok := got.Fields[0].Value.(float64); !ok || v != 500 {
		t.Errorf("value = %v, want 500", got.Fields[0].Value)
	}

	if err := store.Fields().Delete(ctx, def.ID); err != nil {
		t.Fatalf("delete field definition: %v", err)
	}

	got, err = store.Projects().GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project after delete: %v", err)
	}
	if len(got.Fields) != 0 {
		t.Errorf("fields = %d after definition delete, want 0", len(got.Fields))
	}
}

func TestGroupRepository_Membership(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	owner := createTestUser(t, store, "owner@example.com")
	member := createTestUser(t, store, "member@example.com")

	group := models.NewGroup("Platform", "platform team", owner.ID)
	group.ID = uuid.New().String()
	if err := store.Groups().Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := store.Groups().AddMember(ctx, group.ID, &models.GroupMember{
		UserID: member.ID, AddedAt: time.Now(), AddedBy: owner.ID,
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	owned, err := store.Groups().GroupsOwnedBy(ctx, owner.ID)
	if err != nil {
		t.Fatalf("groups owned by: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != group.ID {
		t.Fatalf("owned = %v, want [%s]", owned, group.ID)
	}

	containing, err := store.Groups().GroupsContaining(ctx, member.ID)
	if err != nil {
		t.Fatalf("groups containing: %v", err)
	}
	if len(containing) != 1 || containing[0].MemberCount() != 1 {
		t.Fatalf("containing = %v, want 1 group with 1 member", containing)
	}

	if err := store.Groups().RemoveMember(ctx, group.ID, member.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	containing, err = store.Groups().GroupsContaining(ctx, member.ID)
	if err != nil {
		t.Fatalf("groups containing after remove: %v", err)
	}
	if len(containing) != 0 {
		t.Errorf("containing = %d groups after remove, want 0", len(containing))
	}
}
