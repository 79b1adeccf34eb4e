package projects

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slatehq/slate/internal/api/middleware"
	"github.com/slatehq/slate/internal/fields"
	"github.com/slatehq/slate/internal/models"
	"github.com/slatehq/slate/internal/permissions"
	"github.com/slatehq/slate/internal/storage"
)

// Mock repositories
type mockProjectRepository struct {
	projects        []*models.Project
	getByIDError    error
	createError     error
	updateError     error
	deleteError     error
	listError       error
	upsertPermError error
	setFieldsError  error
}

func (m *mockProjectRepository) find(id string) *models.Project {
	for _, p := range m.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *mockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if m.createError != nil {
		return m.createError
	}
	m.projects = append(m.projects, project)
	return nil
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	if m.getByIDError != nil {
		return nil, m.getByIDError
	}
	return m.find(id), nil
}

func (m *mockProjectRepository) Update(ctx context.Context, project *models.Project) error {
	if m.updateError != nil {
		return m.updateError
	}
	for i, p := range m.projects {
		if p.ID == project.ID {
			m.projects[i] = project
			return nil
		}
	}
	return nil
}

func (m *mockProjectRepository) Delete(ctx context.Context, id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	for i, p := range m.projects {
		if p.ID == id {
			m.projects = append(m.projects[:i], m.projects[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	return m.projects, nil
}

func (m *mockProjectRepository) ListAccessible(ctx context.Context, userID string) ([]*models.Project, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var out []*models.Project
	for _, p := range m.projects {
		if p.OwnerID == userID || p.Visibility == models.VisibilityPublic || p.Grant(userID) != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjectRepository) UpsertPermission(ctx context.Context, projectID string, perm *models.Permission) error {
	if m.upsertPermError != nil {
		return m.upsertPermError
	}
	p := m.find(projectID)
	if p == nil {
		return nil
	}
	for i := range p.Permissions {
		if p.Permissions[i].UserID == perm.UserID {
			p.Permissions[i] = *perm
			return nil
		}
	}
	p.Permissions = append(p.Permissions, *perm)
	return nil
}

func (m *mockProjectRepository) RemovePermission(ctx context.Context, projectID, userID string) error {
	p := m.find(projectID)
	if p == nil {
		return nil
	}
	for i := range p.Permissions {
		if p.Permissions[i].UserID == userID {
			p.Permissions = append(p.Permissions[:i], p.Permissions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockProjectRepository) UpsertGroupPermission(ctx context.Context, projectID string, perm *models.GroupPermission) error {
	p := m.find(projectID)
	if p == nil {
		return nil
	}
	for i := range p.GroupPermissions {
		if p.GroupPermissions[i].GroupID == perm.GroupID {
			p.GroupPermissions[i] = *perm
			return nil
		}
	}
	p.GroupPermissions = append(p.GroupPermissions, *perm)
	return nil
}

func (m *mockProjectRepository) RemoveGroupPermission(ctx context.Context, projectID, groupID string) error {
	p := m.find(projectID)
	if p == nil {
		return nil
	}
	for i := range p.GroupPermissions {
		if p.GroupPermissions[i].GroupID == groupID {
			p.GroupPermissions = append(p.GroupPermissions[:i], p.GroupPermissions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockProjectRepository) SetVisibility(ctx context.Context, projectID string, visibility models.Visibility) error {
	if p := m.find(projectID); p != nil {
		p.Visibility = visibility
	}
	return nil
}

func (m *mockProjectRepository) SetFieldValues(ctx context.Context, projectID string, values []models.FieldValue) error {
	if m.setFieldsError != nil {
		return m.setFieldsError
	}
	if p := m.find(projectID); p != nil {
		p.Fields = values
	}
	return nil
}

type mockUserRepository struct {
	users []*models.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error { return nil }
func (m *mockUserRepository) Delete(ctx context.Context, id string) error         { return nil }

func (m *mockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	return m.users, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

type mockGroupRepository struct {
	groups []*models.Group
}

func (m *mockGroupRepository) Create(ctx context.Context, group *models.Group) error { return nil }

func (m *mockGroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	for _, g := range m.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGroupRepository) Update(ctx context.Context, group *models.Group) error { return nil }
func (m *mockGroupRepository) Delete(ctx context.Context, id string) error           { return nil }

func (m *mockGroupRepository) AddMember(ctx context.Context, groupID string, member *models.GroupMember) error {
	return nil
}

func (m *mockGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	return nil
}

func (m *mockGroupRepository) GroupsOwnedBy(ctx context.Context, userID string) ([]*models.Group, error) {
	var out []*models.Group
	for _, g := range m.groups {
		if g.OwnerID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGroupRepository) GroupsContaining(ctx context.Context, userID string) ([]*models.Group, error) {
	var out []*models.Group
	for _, g := range m.groups {
		for _, member := range g.Members {
			if member.UserID == userID {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

type mockFieldRepository struct {
	defs []*models.FieldDefinition
}

func (m *mockFieldRepository) Create(ctx context.Context, def *models.FieldDefinition) error {
	return nil
}

func (m *mockFieldRepository) GetByID(ctx context.Context, id string) (*models.FieldDefinition, error) {
	for _, d := range m.defs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockFieldRepository) GetByKey(ctx context.Context, key string) (*models.FieldDefinition, error) {
	for _, d := range m.defs {
		if d.Key == key {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockFieldRepository) Update(ctx context.Context, def *models.FieldDefinition) error {
	return nil
}

func (m *mockFieldRepository) Delete(ctx context.Context, id string) error { return nil }

func (m *mockFieldRepository) List(ctx context.Context) ([]*models.FieldDefinition, error) {
	return m.defs, nil
}

func (m *mockFieldRepository) ListActive(ctx context.Context) ([]*models.FieldDefinition, error) {
	var out []*models.FieldDefinition
	for _, d := range m.defs {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockStorage struct {
	projectRepo *mockProjectRepository
	userRepo    *mockUserRepository
	groupRepo   *mockGroupRepository
	fieldRepo   *mockFieldRepository
}

func (m *mockStorage) Open() error                         { return nil }
func (m *mockStorage) Close() error                        { return nil }
func (m *mockStorage) Migrate() error                      { return nil }
func (m *mockStorage) EnsureAdminUser() error              { return nil }
func (m *mockStorage) Users() storage.UserRepository       { return m.userRepo }
func (m *mockStorage) Projects() storage.ProjectRepository { return m.projectRepo }
func (m *mockStorage) Groups() storage.GroupRepository     { return m.groupRepo }
func (m *mockStorage) Fields() storage.FieldRepository     { return m.fieldRepo }
func (m *mockStorage) Tokens() storage.TokenRepository     { return nil }

func newMockStorage() *mockStorage {
	return &mockStorage{
		projectRepo: &mockProjectRepository{},
		userRepo:    &mockUserRepository{},
		groupRepo:   &mockGroupRepository{},
		fieldRepo:   &mockFieldRepository{},
	}
}

func newTestHandler(store *mockStorage) *Handler {
	engine := permissions.NewEngine(store.projectRepo, store.userRepo, store.groupRepo)
	validator := fields.NewValidator(store.fieldRepo)
	return NewHandler(store, engine, validator)
}

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserContext(req.Context(), userID, userID+"@example.com", models.GlobalRoleMember))
}

func withURLParams(req *http.Request, pairs ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(pairs); i += 2 {
		rctx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func testProject(id, ownerID string) *models.Project {
	now := time.Now()
	return &models.Project{
		ID:         id,
		Name:       "Project " + id,
		OwnerID:    ownerID,
		Visibility: models.VisibilityPrivate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestList_OwnedAndPublic(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{
		testProject("p1", "u1"),
		testProject("p2", "u2"),
	}
	public := testProject("p3", "u2")
	public.Visibility = models.VisibilityPublic
	store.projectRepo.projects = append(store.projectRepo.projects, public)

	handler := newTestHandler(store)
	req := authedRequest("GET", "/api/v1/projects", "", "u1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data []*ProjectResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Data) != 2 {
		t.Errorf("items count = %d, want 2", len(resp.Data))
	}
}

func TestCreate_CallerBecomesOwner(t *testing.T) {
	store := newMockStorage()
	handler := newTestHandler(store)

	body := `{"name": "Roadmap", "description": "Q3 planning"}`
	req := authedRequest("POST", "/api/v1/projects", body, "u1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data *ProjectResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.OwnerID != "u1" {
		t.Errorf("owner = %q, want u1", resp.Data.OwnerID)
	}
	if resp.Data.Visibility != "private" {
		t.Errorf("visibility = %q, want private", resp.Data.Visibility)
	}
	if resp.Data.ID == "" {
		t.Error("expected generated project id")
	}
}

func TestCreate_MissingName(t *testing.T) {
	store := newMockStorage()
	handler := newTestHandler(store)

	req := authedRequest("POST", "/api/v1/projects", `{"description": "no name"}`, "u1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetByID_Owner(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("GET", "/api/v1/projects/p1", "", "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GetByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestGetByID_PrivateForbidsOutsider(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("GET", "/api/v1/projects/p1", "", "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GetByID(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestGetByID_PublicVisibleToAnyone(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Visibility = models.VisibilityPublic
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("GET", "/api/v1/projects/p1", "", "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GetByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store := newMockStorage()
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("GET", "/api/v1/projects/missing", "", "u1"), "id", "missing")
	rec := httptest.NewRecorder()

	handler.GetByID(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGrantUser_Success(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	store.userRepo.users = []*models.User{
		{ID: "u1", Email: "u1@example.com"},
		{ID: "u2", Email: "u2@example.com"},
	}
	handler := newTestHandler(store)

	body := `{"email": "u2@example.com", "role": "editor"}`
	req := withURLParams(authedRequest("POST", "/api/v1/projects/p1/permissions", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GrantUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data *ProjectResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Data.Permissions) != 1 {
		t.Fatalf("permissions count = %d, want 1", len(resp.Data.Permissions))
	}
	perm := resp.Data.Permissions[0]
	if perm.UserID != "u2" || perm.Role != models.RoleEditor {
		t.Errorf("grant = %s/%s, want u2/editor", perm.UserID, perm.Role)
	}
	if perm.GrantedBy != "u1" {
		t.Errorf("granted_by = %q, want u1", perm.GrantedBy)
	}
}

func TestGrantUser_ToOwnerRejected(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	store.userRepo.users = []*models.User{{ID: "u1", Email: "u1@example.com"}}
	handler := newTestHandler(store)

	body := `{"email": "u1@example.com", "role": "viewer"}`
	req := withURLParams(authedRequest("POST", "/api/v1/projects/p1/permissions", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GrantUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGrantUser_NonOwnerForbidden(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	store.userRepo.users = []*models.User{
		{ID: "u2", Email: "u2@example.com"},
		{ID: "u3", Email: "u3@example.com"},
	}
	handler := newTestHandler(store)

	body := `{"email": "u3@example.com", "role": "viewer"}`
	req := withURLParams(authedRequest("POST", "/api/v1/projects/p1/permissions", body, "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GrantUser(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestGrantUser_UnknownEmail(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	body := `{"email": "ghost@example.com", "role": "viewer"}`
	req := withURLParams(authedRequest("POST", "/api/v1/projects/p1/permissions", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GrantUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpdateUserRole_PreservesGrantMetadata(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	grantedAt := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	p.Permissions = []models.Permission{
		{UserID: "u2", Email: "u2@example.com", Role: models.RoleViewer, GrantedAt: grantedAt, GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	body := `{"role": "editor"}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/permissions/u2", body, "u1"), "id", "p1", "userId", "u2")
	rec := httptest.NewRecorder()

	handler.UpdateUserRole(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	grant := p.Grant("u2")
	if grant == nil {
		t.Fatal("expected grant to remain")
	}
	if grant.Role != models.RoleEditor {
		t.Errorf("role = %s, want editor", grant.Role)
	}
	if !grant.GrantedAt.Equal(grantedAt) {
		t.Errorf("granted_at = %v, want %v", grant.GrantedAt, grantedAt)
	}
}

func TestRevokeUser_Success(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Permissions = []models.Permission{
		{UserID: "u2", Email: "u2@example.com", Role: models.RoleViewer, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("DELETE", "/api/v1/projects/p1/permissions/u2", "", "u1"), "id", "p1", "userId", "u2")
	rec := httptest.NewRecorder()

	handler.RevokeUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if p.Grant("u2") != nil {
		t.Error("expected grant to be removed")
	}
}

func TestRevokeUser_NoGrant(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("DELETE", "/api/v1/projects/p1/permissions/u2", "", "u1"), "id", "p1", "userId", "u2")
	rec := httptest.NewRecorder()

	handler.RevokeUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGrantGroup_Success(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	store.groupRepo.groups = []*models.Group{{ID: "g1", Name: "Platform", OwnerID: "u1"}}
	handler := newTestHandler(store)

	body := `{"role": "viewer"}`
	req := withURLParams(authedRequest("POST", "/api/v1/projects/p1/groups/g1", body, "u1"), "id", "p1", "groupId", "g1")
	rec := httptest.NewRecorder()

	handler.GrantGroup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data *ProjectResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data.GroupPermissions) != 1 || resp.Data.GroupPermissions[0].GroupID != "g1" {
		t.Errorf("group permissions = %+v, want one grant for g1", resp.Data.GroupPermissions)
	}
}

func TestGrantGroup_UnknownGroup(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	body := `{"role": "viewer"}`
	req := withURLParams(authedRequest("POST", "/api/v1/projects/p1/groups/ghost", body, "u1"), "id", "p1", "groupId", "ghost")
	rec := httptest.NewRecorder()

	handler.GrantGroup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRevokeGroup_Success(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.GroupPermissions = []models.GroupPermission{
		{GroupID: "g1", Role: models.RoleViewer, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("DELETE", "/api/v1/projects/p1/groups/g1", "", "u1"), "id", "p1", "groupId", "g1")
	rec := httptest.NewRecorder()

	handler.RevokeGroup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if p.GroupGrant("g1") != nil {
		t.Error("expected group grant to be removed")
	}
}

func TestSetVisibility_Owner(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	body := `{"visibility": "public"}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/visibility", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.SetVisibility(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if store.projectRepo.projects[0].Visibility != models.VisibilityPublic {
		t.Errorf("visibility = %s, want public", store.projectRepo.projects[0].Visibility)
	}
}

func TestSetVisibility_NonOwnerForbidden(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Permissions = []models.Permission{
		{UserID: "u2", Role: models.RoleEditor, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	body := `{"visibility": "public"}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/visibility", body, "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.SetVisibility(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestSetVisibility_InvalidValue(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	handler := newTestHandler(store)

	body := `{"visibility": "hidden"}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/visibility", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.SetVisibility(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSetFields_Success(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	store.fieldRepo.defs = []*models.FieldDefinition{
		{ID: "f1", Name: "Budget", Key: "budget", Type: models.FieldTypeNumber, Active: true},
	}
	handler := newTestHandler(store)

	body := `{"values": [{"field_id": "budget", "value": 1200}]}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/fields", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.SetFields(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	stored := store.projectRepo.projects[0].Fields
	if len(stored) != 1 {
		t.Fatalf("stored values = %d, want 1", len(stored))
	}
	// Key references are normalized to the definition id before storage.
	if stored[0].FieldID != "f1" {
		t.Errorf("field id = %q, want f1", stored[0].FieldID)
	}
}

func TestSetFields_ValidationFailure(t *testing.T) {
	store := newMockStorage()
	store.projectRepo.projects = []*models.Project{testProject("p1", "u1")}
	store.fieldRepo.defs = []*models.FieldDefinition{
		{ID: "f1", Name: "Budget", Key: "budget", Type: models.FieldTypeNumber, Active: true},
	}
	handler := newTestHandler(store)

	body := `{"values": [{"field_id": "budget", "value": "a lot"}]}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/fields", body, "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.SetFields(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(store.projectRepo.projects[0].Fields) != 0 {
		t.Error("expected no values written on validation failure")
	}
}

func TestSetFields_ViewerForbidden(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Permissions = []models.Permission{
		{UserID: "u2", Role: models.RoleViewer, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	body := `{"values": []}`
	req := withURLParams(authedRequest("PUT", "/api/v1/projects/p1/fields", body, "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.SetFields(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestGetRole_FoldsGroupGrants(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Permissions = []models.Permission{
		{UserID: "u2", Role: models.RoleViewer, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	p.GroupPermissions = []models.GroupPermission{
		{GroupID: "g1", Role: models.RoleEditor, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	store.groupRepo.groups = []*models.Group{
		{ID: "g1", Name: "Platform", OwnerID: "u3", Members: []models.GroupMember{{UserID: "u2"}}},
	}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("GET", "/api/v1/projects/p1/role", "", "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GetRole(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data *RoleResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Data.HasRole || resp.Data.Role != "editor" {
		t.Errorf("role = %q has_role = %v, want editor/true", resp.Data.Role, resp.Data.HasRole)
	}
}

func TestGetUsers_ListsOwnerAndCollaborators(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Permissions = []models.Permission{
		{UserID: "u2", Email: "u2@example.com", Role: models.RoleViewer, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	store.userRepo.users = []*models.User{
		{ID: "u1", Name: "Owner", Email: "u1@example.com"},
		{ID: "u2", Name: "Viewer", Email: "u2@example.com"},
	}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("GET", "/api/v1/projects/p1/users", "", "u1"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.GetUsers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data *permissions.ProjectUsers `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Owner == nil || resp.Data.Owner.ID != "u1" {
		t.Errorf("owner = %+v, want u1", resp.Data.Owner)
	}
	if len(resp.Data.Collaborators) != 1 || resp.Data.Collaborators[0].Name != "Viewer" {
		t.Errorf("collaborators = %+v, want one resolved entry", resp.Data.Collaborators)
	}
}

func TestDelete_OwnerOnly(t *testing.T) {
	store := newMockStorage()
	p := testProject("p1", "u1")
	p.Permissions = []models.Permission{
		{UserID: "u2", Role: models.RoleEditor, GrantedAt: time.Now(), GrantedBy: "u1"},
	}
	store.projectRepo.projects = []*models.Project{p}
	handler := newTestHandler(store)

	req := withURLParams(authedRequest("DELETE", "/api/v1/projects/p1", "", "u2"), "id", "p1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = withURLParams(authedRequest("DELETE", "/api/v1/projects/p1", "", "u1"), "id", "p1")
	rec = httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(store.projectRepo.projects) != 0 {
		t.Error("expected project to be deleted")
	}
}
